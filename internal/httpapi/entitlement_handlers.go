package httpapi

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/audit"
	"github.com/qazna-labs/recordvault/internal/domain"
)

type entitlementResponse struct {
	UserID   string   `json:"userId"`
	FormatID int64    `json:"formatId"`
	Access   []string `json:"access"`
}

func toEntitlementResponse(e domain.Entitlement) entitlementResponse {
	access := make([]string, len(e.Access))
	for i, a := range e.Access {
		access[i] = string(a)
	}
	return entitlementResponse{UserID: e.UserID.String(), FormatID: e.FormatID, Access: access}
}

// handleGetEntitlement lists entitlements for a user. Superusers may query
// any user via ?userId=; everyone else sees only their own.
func (a *API) handleGetEntitlement(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID := principal.User.ID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeErrorMessage(w, r, http.StatusBadRequest, "invalid userId")
			return
		}
		if id != principal.User.ID && !principal.User.IsSuperuser {
			writeErrorMessage(w, r, http.StatusForbidden, "only a superuser may query another user's entitlements")
			return
		}
		userID = id
	}
	entitlements, err := a.store.Entitlements().ListByUser(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]entitlementResponse, len(entitlements))
	for i, e := range entitlements {
		out[i] = toEntitlementResponse(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

type grantEntitlementRequest struct {
	UserID   string   `json:"userId"`
	FormatID int64    `json:"formatId"`
	Access   []string `json:"access"`
}

func (a *API) handleGrantEntitlement(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuperuser(w, r); !ok {
		return
	}
	var req grantEntitlementRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid userId")
		return
	}
	access := make([]domain.Access, len(req.Access))
	for i, raw := range req.Access {
		acc := domain.Access(raw)
		switch acc {
		case domain.AccessRead, domain.AccessWrite, domain.AccessDelete, domain.AccessLimitedDelete:
		default:
			writeErrorMessage(w, r, http.StatusBadRequest, "unknown access token: "+raw)
			return
		}
		access[i] = acc
	}
	ent := &domain.Entitlement{UserID: userID, FormatID: req.FormatID, Access: access}
	if storeErr := a.store.Entitlements().Grant(r.Context(), ent); storeErr != nil {
		writeAppError(w, r, storeErr)
		return
	}
	audit.LogEvent(r.Context(), "entitlement.grant", "format", strconv.FormatInt(req.FormatID, 10),
		map[string]any{"userId": req.UserID, "access": req.Access})
	writeJSON(w, http.StatusOK, toEntitlementResponse(*ent))
}

func (a *API) handleRevokeEntitlement(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuperuser(w, r); !ok {
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid userId")
		return
	}
	formatID, err := strconv.ParseInt(r.URL.Query().Get("formatId"), 10, 64)
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid formatId")
		return
	}
	if storeErr := a.store.Entitlements().Revoke(r.Context(), userID, formatID); storeErr != nil {
		writeAppError(w, r, storeErr)
		return
	}
	audit.LogEvent(r.Context(), "entitlement.revoke", "format", strconv.FormatInt(formatID, 10),
		map[string]any{"userId": userID.String()})
	w.WriteHeader(http.StatusNoContent)
}
