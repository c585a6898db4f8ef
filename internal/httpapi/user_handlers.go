package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/audit"
	"github.com/qazna-labs/recordvault/internal/auth"
	"github.com/qazna-labs/recordvault/internal/domain"
)

type createUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	IsSuperuser bool   `json:"isSuperuser"`
}

type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"isSuperuser"`
	CreatedAt   string `json:"createdAt"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          u.ID.String(),
		Username:    u.Username,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuperuser(w, r); !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeErrorMessage(w, r, http.StatusBadRequest, "username and password are required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid password")
		return
	}
	user := &domain.User{Username: username, PasswordHash: hash, IsSuperuser: req.IsSuperuser}
	if err := a.store.Users().Create(r.Context(), user); err != nil {
		writeAppError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "user.create", "user", user.ID.String(), nil)
	writeJSON(w, http.StatusCreated, toUserResponse(*user))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireSuperuser(w, r); !ok {
		return
	}
	limit, offset := paginationParams(r, a.cfg.DefaultPaginationSize, a.cfg.MaxPaginationSize)
	users, err := a.store.Users().List(r.Context(), limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if id != principal.User.ID && !principal.User.IsSuperuser {
		writeErrorMessage(w, r, http.StatusForbidden, "may only view self")
		return
	}
	user, storeErr := a.store.Users().Get(r.Context(), id)
	if storeErr != nil || user == nil {
		writeErrorMessage(w, r, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

type updateUserRequest struct {
	Password    *string `json:"password,omitempty"`
	IsSuperuser *bool   `json:"isSuperuser,omitempty"`
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if id != principal.User.ID && !principal.User.IsSuperuser {
		writeErrorMessage(w, r, http.StatusForbidden, "may only update self")
		return
	}
	user, storeErr := a.store.Users().Get(r.Context(), id)
	if storeErr != nil || user == nil {
		writeErrorMessage(w, r, http.StatusNotFound, "user not found")
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			writeErrorMessage(w, r, http.StatusBadRequest, "invalid password")
			return
		}
		user.PasswordHash = hash
	}
	if req.IsSuperuser != nil {
		if a.cfg.ProtectSuperuser && user.IsSuperuser && !*req.IsSuperuser {
			writeErrorMessage(w, r, http.StatusForbidden, "cannot demote a protected superuser")
			return
		}
		if !principal.User.IsSuperuser {
			writeErrorMessage(w, r, http.StatusForbidden, "only a superuser may change superuser status")
			return
		}
		user.IsSuperuser = *req.IsSuperuser
	}
	if storeErr := a.store.Users().Update(r.Context(), user); storeErr != nil {
		writeAppError(w, r, storeErr)
		return
	}
	audit.LogEvent(r.Context(), "user.update", "user", user.ID.String(), nil)
	writeJSON(w, http.StatusOK, toUserResponse(*user))
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if id != principal.User.ID && !principal.User.IsSuperuser {
		writeErrorMessage(w, r, http.StatusForbidden, "may only delete self")
		return
	}
	if a.cfg.ProtectSuperuser {
		target, storeErr := a.store.Users().Get(r.Context(), id)
		if storeErr == nil && target != nil && target.IsSuperuser {
			writeErrorMessage(w, r, http.StatusForbidden, "cannot delete a protected superuser")
			return
		}
	}
	if storeErr := a.store.Users().Delete(r.Context(), id); storeErr != nil {
		writeAppError(w, r, storeErr)
		return
	}
	audit.LogEvent(r.Context(), "user.delete", "user", id.String(), nil)
	w.WriteHeader(http.StatusNoContent)
}

type apiKeyResponse struct {
	ID        string  `json:"id"`
	Credential string `json:"credential,omitempty"`
	Active    bool    `json:"active"`
	ExpiresAt string  `json:"expiresAt"`
	CreatedAt string  `json:"createdAt"`
}

func (a *API) handleIssueAPIKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if id != principal.User.ID && !principal.User.IsSuperuser {
		writeErrorMessage(w, r, http.StatusForbidden, "may only issue keys for self")
		return
	}
	credential, key, aerr := a.authSvc.IssueAPIKey(r.Context(), id)
	if aerr != nil {
		writeAppError(w, r, aerr)
		return
	}
	audit.LogEvent(r.Context(), "apikey.issue", "apiKey", key.ID.String(), nil)
	writeJSON(w, http.StatusCreated, apiKeyResponse{
		ID:         key.ID.String(),
		Credential: credential,
		Active:     key.Active,
		ExpiresAt:  key.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		CreatedAt:  key.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

type rotateAPIKeyRequest struct {
	Rotate bool `json:"rotate"`
}

func (a *API) handleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != principal.User.ID && !principal.User.IsSuperuser {
		writeErrorMessage(w, r, http.StatusForbidden, "may only rotate keys for self")
		return
	}
	var req rotateAPIKeyRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Rotate {
		writeErrorMessage(w, r, http.StatusBadRequest, `expected {"rotate": true}`)
		return
	}
	keyID, err := requireSingleAPIKey(r, a, userID)
	if err != nil {
		writeErrorMessage(w, r, http.StatusNotFound, err.Error())
		return
	}
	credential, aerr := a.authSvc.RotateAPIKey(r.Context(), keyID)
	if aerr != nil {
		writeAppError(w, r, aerr)
		return
	}
	audit.LogEvent(r.Context(), "apikey.rotate", "apiKey", keyID.String(), nil)
	writeJSON(w, http.StatusOK, map[string]string{"credential": credential})
}

func (a *API) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != principal.User.ID && !principal.User.IsSuperuser {
		writeErrorMessage(w, r, http.StatusForbidden, "may only delete keys for self")
		return
	}
	keyID, err := requireSingleAPIKey(r, a, userID)
	if err != nil {
		writeErrorMessage(w, r, http.StatusNotFound, err.Error())
		return
	}
	if storeErr := a.store.ApiKeys().Delete(r.Context(), keyID); storeErr != nil {
		writeAppError(w, r, storeErr)
		return
	}
	audit.LogEvent(r.Context(), "apikey.delete", "apiKey", keyID.String(), nil)
	w.WriteHeader(http.StatusNoContent)
}

// requireSingleAPIKey resolves which key a PATCH/DELETE targets. The
// endpoint is scoped by user id rather than key id: a key named via
// ?keyId= must belong to that user; without it the user must hold exactly
// one key.
func requireSingleAPIKey(r *http.Request, a *API, userID uuid.UUID) (uuid.UUID, error) {
	if raw := r.URL.Query().Get("keyId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.UUID{}, err
		}
		key, err := a.store.ApiKeys().Get(r.Context(), id)
		if err != nil || key == nil || key.UserID != userID {
			return uuid.UUID{}, errors.New("api key not found for this user")
		}
		return id, nil
	}
	keys, err := a.store.ApiKeys().ListByUser(r.Context(), userID)
	if err != nil {
		return uuid.UUID{}, err
	}
	if len(keys) != 1 {
		return uuid.UUID{}, errAmbiguousAPIKey
	}
	return keys[0].ID, nil
}

var errAmbiguousAPIKey = errors.New("user does not hold exactly one api key; specify ?keyId=")

func (a *API) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	keys, err := a.store.ApiKeys().ListByUser(r.Context(), principal.User.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	out := make([]apiKeyResponse, len(keys))
	for i, k := range keys {
		out[i] = apiKeyResponse{
			ID:        k.ID.String(),
			Active:    k.Active,
			ExpiresAt: k.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
			CreatedAt: k.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
