package middleware

import (
	"net/http"
	"time"

	"github.com/oriys/searchgate/internal/metrics"
)

// RouteNamer resolves the identifier of the route serving a request.
type RouteNamer func(r *http.Request) string

// Metrics returns a middleware that records Prometheus request metrics
// labelled by route identifier rather than raw path, so path variables do
// not explode label cardinality.
func Metrics(routeName RouteNamer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeName(r)
			rec := newResponseRecorder(w)
			next.ServeHTTP(rec, r)
			metrics.RecordRequest(route, r.Method, rec.status, time.Since(start))
		})
	}
}
