package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/qazna-labs/recordvault/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = map[string]bool{
	"/login":     true,
	"/metrics":   true,
	"/healthz":   true,
	"/readyz":    true,
	"/v1/info":   true,
}

// withAuth authenticates the bearer token on every request except the
// public paths, attaching the resolved Principal to the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.authSvc == nil || !a.authSvc.SupportsTokens() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeErrorMessage(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.authSvc.AuthenticateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrKeyRevoked):
				writeErrorMessage(w, r, http.StatusUnauthorized, "invalid or expired token")
			default:
				writeErrorMessage(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireSuperuser returns the caller's Principal, or false after writing a
// 401/403 response if the caller is missing or not a superuser.
func requireSuperuser(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	if !principal.User.IsSuperuser {
		writeErrorMessage(w, r, http.StatusForbidden, "superuser required")
		return auth.Principal{}, false
	}
	return principal, true
}

// requirePrincipal returns the caller's Principal, or false after writing a
// 401 response if the request is unauthenticated.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return principal, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
