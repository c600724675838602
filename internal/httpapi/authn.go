package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"lexdesk.org/internal/auth"
	"lexdesk.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// authRequiredMessage is the body of every 401 in the API. Missing,
	// malformed, badly signed and expired tokens all read the same.
	authRequiredMessage = "authentication required"
)

var publicPaths = []string{
	"/v1/auth/login",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
}

// withAuth authenticates every request outside the public surface and
// stores the principal in the context. Failures carry the same body
// shape as every other error in the API.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.CountDenial("missing_token")
			writeError(w, r, http.StatusUnauthorized, authRequiredMessage)
			return
		}

		principal, err := a.auth.VerifyToken(r.Context(), token)
		if err != nil {
			// The failure mode (expired vs malformed vs bad signature)
			// goes to metrics and logs only; the response body is the
			// same for every 401 so callers cannot tell token states apart.
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				obs.CountDenial("token_expired")
			case errors.Is(err, auth.ErrInvalidToken):
				obs.CountDenial("invalid_token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
				return
			}
			obs.LogEvent("warn", "token rejected", map[string]any{
				"reason":     err.Error(),
				"path":       r.URL.Path,
				"request_id": RequestIDFromContext(r.Context()),
			})
			writeError(w, r, http.StatusUnauthorized, authRequiredMessage)
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensurePermission authorizes the request against one permission key and
// writes the uniform 401/403 response on failure. An empty key means
// authenticated access is enough.
func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, perm string) bool {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		obs.CountDenial("no_principal")
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	if err := a.auth.Authorize(principal, perm); err != nil {
		// Denials land in the denial counter and the event log, not in
		// the audit trail; the trail records state changes only.
		obs.CountDenial("permission")
		obs.LogEvent("warn", "permission denied", map[string]any{
			"user_id":    principal.UserID,
			"permission": perm,
			"path":       r.URL.Path,
			"request_id": RequestIDFromContext(r.Context()),
		})
		writeError(w, r, http.StatusForbidden, "permission denied")
		return false
	}
	return true
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

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
