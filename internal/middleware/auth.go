package middleware

import (
	"net/http"
	"strings"

	"inkflow/internal/httputil"
)

// TokenVerifier validates a bearer token and returns the user id it belongs to
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// publicPaths are reachable without a bearer token
func isPublicPath(path string) bool {
	if path == "/health" || path == "/api/v1/themes" {
		return true
	}
	return strings.HasPrefix(path, "/api/v1/auth/")
}

// Auth extracts and verifies the Authorization bearer token, placing the
// authenticated user id in the request context. Health and auth endpoints
// pass through unauthenticated.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, userID))
		})
	}
}
