package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"specboard/internal/auth"
	"specboard/internal/httputil"
)

// AuthMiddleware verifies the bearer token on every request except the
// listed public paths, and stores the caller's identity in the request
// context for auth.ContextIdentityProvider. CORS preflight requests are
// passed through untouched.
func AuthMiddleware(verifier auth.JWTVerifier, publicPaths []string, logger *slog.Logger) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || public[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("rejected token",
					"path", r.URL.Path,
					"request_id", httputil.GetRequestID(r.Context()),
					"error", err,
				)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := auth.WithIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
