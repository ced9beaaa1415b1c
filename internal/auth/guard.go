package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Guard returns middleware that runs the strategy before the handler.
// On success the principal is attached to the request context and the
// handler runs; on rejection a fixed unauthorized response is written and
// the handler never runs. Collaborator failures surface as a server
// error, since they are not a credential problem.
func Guard(strategy Strategy, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := strategy.Authenticate(r)
			if err != nil {
				if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidToken) {
					if logger != nil {
						logger.InfoContext(r.Context(), "request rejected",
							"path", r.URL.Path, "reason", err.Error())
					}
					writeGuardError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				if logger != nil {
					logger.ErrorContext(r.Context(), "authentication unavailable",
						"path", r.URL.Path, "error", err)
				}
				writeGuardError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func writeGuardError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
