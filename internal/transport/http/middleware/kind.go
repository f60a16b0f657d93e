package middleware

import (
	"net/http"

	"github.com/latent-app/latent-api/internal/domain"
)

// RequireKind returns middleware that allows access only to principals whose
// JWT kind matches one of the provided kinds (e.g. domain.KindAgent).
func RequireKind(allowed ...domain.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			for _, kind := range allowed {
				if claims.Kind == string(kind) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		})
	}
}
