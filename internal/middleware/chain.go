package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps handler so that middlewares[0] runs first. A Recover layer is
// placed around handler and after every middleware, so a panic unwinds only
// to the nearest layer and the middlewares outside it still finish.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	recoverer := Recover()
	handler = recoverer(handler)
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = recoverer(middlewares[i](handler))
	}
	return handler
}

// Recover turns a panic into a 500 JSON response. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("handler panic recovered",
					slog.Any("panic", v),
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error":      "internal_error",
					"request_id": GetRequestID(r.Context()),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
