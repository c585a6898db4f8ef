package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/qazna-labs/recordvault/internal/audit"
)

type uploadSessionResponse struct {
	ID          int64  `json:"id"`
	UserID      string `json:"userId"`
	FormatID    int64  `json:"formatId"`
	RecordCount int    `json:"recordCount"`
	CreatedAt   string `json:"createdAt"`
}

func (a *API) handleListUploadSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	sessions, err := a.store.UploadSessions().ListByUser(r.Context(), principal.User.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]uploadSessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = uploadSessionResponse{
			ID:          s.ID,
			UserID:      s.UserID.String(),
			FormatID:    s.FormatID,
			RecordCount: s.RecordCount,
			CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// handleDeleteUploadSession deletes a session and, via cascade, its
// records. Authorization is scoped to (userId, formatId) by the entitlement
// resolver, not session ownership: any principal holding delete or
// limitedDelete on the session's format may delete it, matching the
// documented endpoint auth table.
func (a *API) handleDeleteUploadSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid upload session id")
		return
	}
	session, storeErr := a.store.UploadSessions().Get(r.Context(), id)
	if storeErr != nil || session == nil {
		writeErrorMessage(w, r, http.StatusNotFound, "upload session not found")
		return
	}
	if aerr := a.resolver.RequireDelete(r.Context(), principal.User, session.FormatID, session.CreatedAt, time.Now().UTC()); aerr != nil {
		writeAppError(w, r, aerr)
		return
	}
	if storeErr := a.store.UploadSessions().Delete(r.Context(), id); storeErr != nil {
		writeAppError(w, r, storeErr)
		return
	}
	audit.LogEvent(r.Context(), "uploadSession.delete", "uploadSession", strconv.FormatInt(id, 10), nil)
	w.WriteHeader(http.StatusNoContent)
}
