package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oriys/searchgate/internal/auth"
)

// Auth rejects requests the authenticator does not accept with a 401 and a
// Basic challenge for realm. Accepted identities are stored in the context.
func Auth(authenticator auth.Authenticator, realm string) Middleware {
	challenge := "Basic realm=" + strconv.Quote(realm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticator.Authenticate(r)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(auth.IdentityToContext(r.Context(), identity)))
				return
			}

			if !errors.Is(err, auth.ErrMissingCredentials) {
				user, _, _ := r.BasicAuth()
				slog.Warn("authentication failed",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("user", user),
					slog.String("remote_addr", r.RemoteAddr),
				)
			}

			h := w.Header()
			h.Set("Content-Type", "application/json")
			h.Set("WWW-Authenticate", challenge)
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "unauthorized",
				"message": err.Error(),
			})
		})
	}
}
