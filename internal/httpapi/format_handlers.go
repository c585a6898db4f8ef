package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/qazna-labs/recordvault/internal/audit"
	"github.com/qazna-labs/recordvault/internal/domain"
)

type columnDTO struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type formatResponse struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      []columnDTO `json:"schema"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   string      `json:"createdAt"`
}

func toFormatResponse(f domain.Format) formatResponse {
	schema := make([]columnDTO, len(f.Schema))
	for i, c := range f.Schema {
		schema[i] = columnDTO{Name: c.Name, Kind: string(c.Kind)}
	}
	return formatResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Schema:      schema,
		CreatedBy:   f.CreatedBy.String(),
		CreatedAt:   f.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

type createFormatRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      []columnDTO `json:"schema"`
}

func (a *API) handleCreateFormat(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req createFormatRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(req.Schema) == 0 {
		writeErrorMessage(w, r, http.StatusBadRequest, "name and a non-empty schema are required")
		return
	}
	schema := make([]domain.Column, len(req.Schema))
	for i, c := range req.Schema {
		kind := domain.ColumnKind(c.Kind)
		if kind != domain.KindNumber && kind != domain.KindString {
			writeErrorMessage(w, r, http.StatusBadRequest, "column kind must be Number or String")
			return
		}
		schema[i] = domain.Column{Name: c.Name, Kind: kind}
	}
	format := &domain.Format{Name: name, Description: req.Description, Schema: schema, CreatedBy: principal.User.ID}
	if err := a.store.Formats().Create(r.Context(), format); err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "format.create", "format", strconv.FormatInt(format.ID, 10), nil)
	writeJSON(w, http.StatusCreated, toFormatResponse(*format))
}

func (a *API) handleListFormats(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	formats, err := a.store.Formats().ListReadable(r.Context(), principal.User.ID, principal.User.IsSuperuser)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]formatResponse, len(formats))
	for i, f := range formats {
		out[i] = toFormatResponse(f)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) handleGetFormat(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePrincipal(w, r); !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid format id")
		return
	}
	format, storeErr := a.store.Formats().Get(r.Context(), id)
	if storeErr != nil || format == nil {
		writeErrorMessage(w, r, http.StatusNotFound, "format not found")
		return
	}
	writeJSON(w, http.StatusOK, toFormatResponse(*format))
}

func (a *API) handleDeleteFormat(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid format id")
		return
	}
	format, storeErr := a.store.Formats().Get(r.Context(), id)
	if storeErr != nil || format == nil {
		writeErrorMessage(w, r, http.StatusNotFound, "format not found")
		return
	}
	if !principal.User.IsSuperuser && format.CreatedBy != principal.User.ID {
		writeErrorMessage(w, r, http.StatusForbidden, "only the creator or a superuser may delete a format")
		return
	}
	if storeErr := a.store.Formats().Delete(r.Context(), id); storeErr != nil {
		writeAppError(w, r, storeErr)
		return
	}
	audit.LogEvent(r.Context(), "format.delete", "format", strconv.FormatInt(id, 10), nil)
	w.WriteHeader(http.StatusNoContent)
}
