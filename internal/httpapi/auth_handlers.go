package httpapi

import (
	"net/http"
	"strings"

	"github.com/qazna-labs/recordvault/internal/audit"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, a.cfg.MaxJSONPayloadSize, &req); err != nil {
		writeErrorMessage(w, r, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeErrorMessage(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	token, aerr := a.authSvc.Login(r.Context(), username, req.Password)
	if aerr != nil {
		writeAppError(w, r, aerr)
		return
	}
	audit.LogEvent(r.Context(), "login", "user", username, nil)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

type principalResponse struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"isSuperuser"`
	TokenKind   string `json:"tokenKind"`
}

func (a *API) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, principalResponse{
		UserID:      principal.User.ID.String(),
		Username:    principal.User.Username,
		IsSuperuser: principal.User.IsSuperuser,
		TokenKind:   string(principal.TokenKind),
	})
}
