package reqmetrics

import (
	"net/http"
)

// RouteResolver maps a request to the identifier of the route that will
// serve it, or "" when no route matches.
type RouteResolver interface {
	RouteName(r *http.Request) string
}

// RequestMetricsHandler identifies the route of each request and times the
// downstream handler when that route is in the measured set.
type RequestMetricsHandler struct {
	resolver        RouteResolver
	measureRoutes   map[string]struct{}
	requestMeasured RequestMeasured
}

// NewRequestMetricsHandler builds the middleware. measureRoutes is copied and
// never changes afterwards.
func NewRequestMetricsHandler(resolver RouteResolver, measureRoutes []string, requestMeasured RequestMeasured) *RequestMetricsHandler {
	set := make(map[string]struct{}, len(measureRoutes))
	for _, name := range measureRoutes {
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return &RequestMetricsHandler{
		resolver:        resolver,
		measureRoutes:   set,
		requestMeasured: requestMeasured,
	}
}

// IsRouteMeasurable reports whether name is in the measured set.
func (h *RequestMetricsHandler) IsRouteMeasurable(name string) bool {
	_, ok := h.measureRoutes[name]
	return ok
}

// RouteName resolves the route identifier of r.
func (h *RequestMetricsHandler) RouteName(r *http.Request) string {
	if h.resolver == nil {
		return ""
	}
	return h.resolver.RouteName(r)
}

// Wrap returns next instrumented with route timing. It has the shape of a
// middleware.Middleware.
func (h *RequestMetricsHandler) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := h.RouteName(r)
		if !h.IsRouteMeasurable(name) {
			next.ServeHTTP(w, r)
			return
		}
		Measure(name, h.requestMeasured, func() {
			next.ServeHTTP(w, r)
		})
	})
}
