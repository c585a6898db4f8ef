package httpapi

import (
	"net/http"
	"strconv"

	"github.com/qazna-labs/recordvault/internal/apperr"
	"github.com/qazna-labs/recordvault/internal/audit"
	"github.com/qazna-labs/recordvault/internal/query"
	"github.com/qazna-labs/recordvault/internal/queryengine"
)

type ingestRequest struct {
	FormatID int64            `json:"formatId"`
	Data     []map[string]any `json:"data"`
}

func (a *API) handleIngestRecords(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req ingestRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Data) == 0 {
		writeErrorMessage(w, r, http.StatusBadRequest, "data must not be empty")
		return
	}
	outcome, aerr := a.ingest.Ingest(r.Context(), principal.User, req.FormatID, req.Data)
	if aerr != nil {
		writeAppError(w, r, aerr)
		return
	}
	audit.LogEvent(r.Context(), "record.ingest", "uploadSession", strconv.FormatInt(outcome.UploadSessionID, 10),
		map[string]any{"formatId": req.FormatID, "recordCount": outcome.RecordCount})
	writeJSON(w, http.StatusCreated, map[string]any{
		"uploadSessionId": outcome.UploadSessionID,
		"recordCount":     outcome.RecordCount,
	})
}

type filterRequest struct {
	FormatID int64             `json:"formatId"`
	Query    query.FilterQuery `json:"query"`
	Page     int               `json:"page"`
	PerPage  int               `json:"perPage"`
	OrderBy  string            `json:"orderBy"`
}

func (a *API) handleFilterRecords(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, aerr := a.query.Run(r.Context(), principal.User, queryengine.Request{
		FormatID: req.FormatID,
		Query:    req.Query,
		Page:     req.Page,
		PerPage:  req.PerPage,
		OrderBy:  req.OrderBy,
	})
	if aerr != nil {
		writeAppError(w, r, aerr)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleFilterStreamRecords(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}

	guard, aerr := a.csvLimiter.Acquire(principal.User.ID)
	if aerr != nil {
		writeAppError(w, r, aerr)
		return
	}
	defer guard.Release()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=records.csv")

	if aerr := a.csv.Stream(r.Context(), principal.User, req.FormatID, req.Query, w); aerr != nil {
		// Stream returns NotFound, Forbidden and BadRequest before writing
		// anything, so those still get a normal error response. A
		// StorageError may arrive after the 200 status and CSV bytes are
		// sent; it is logged rather than written as a second response.
		if aerr.Kind != apperr.StorageError {
			writeAppError(w, r, aerr)
			return
		}
		audit.LogEvent(r.Context(), "record.stream.failed", "format", strconv.FormatInt(req.FormatID, 10),
			map[string]any{"error": aerr.Error(), "kind": string(apperr.KindOf(aerr))})
	}
}
