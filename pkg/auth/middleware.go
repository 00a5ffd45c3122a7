package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rhuss/enginehub/pkg/api"
	"github.com/rhuss/enginehub/pkg/observability"
)

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}

// Middleware authenticates every request outside the bypass list, applies
// the optional per-subject limiter and stores the identity in the context.
func Middleware(chain *Chain, limiter *Limiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				observability.AuthRejectedTotal.WithLabelValues("unauthenticated").Inc()
				writeError(w, http.StatusUnauthorized, api.NewUnauthorizedError("authentication required"))
				return
			}

			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				writeError(w, http.StatusInternalServerError, api.NewServerError("internal authentication error"))
				return
			}

			if !limiter.Allow(result.Identity.Subject) {
				slog.Warn("rate limit exceeded", "subject", result.Identity.Subject)
				observability.AuthRejectedTotal.WithLabelValues("rate_limited").Inc()
				writeError(w, http.StatusTooManyRequests, api.NewTooManyRequestsError("rate limit exceeded"))
				return
			}

			slog.Debug("authentication succeeded",
				"subject", result.Identity.Subject,
				"method", result.Identity.Method,
				"path", r.URL.Path,
			)
			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), result.Identity)))
		})
	}
}

// RequireScope rejects requests whose identity lacks scope. Requests that
// carry no identity (auth disabled upstream) pass.
func RequireScope(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Allowed(r.Context(), scope) {
			observability.AuthRejectedTotal.WithLabelValues("forbidden").Inc()
			writeError(w, http.StatusForbidden, api.NewUnauthorizedError("missing scope "+scope))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}
