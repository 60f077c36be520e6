// Package admin serves the operator API on a separate listener.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/oriys/searchgate/internal/config"
	"github.com/oriys/searchgate/internal/health"
	"github.com/oriys/searchgate/internal/metrics"
	"github.com/oriys/searchgate/internal/routes"
)

// MeasuredChecker reports whether a route identifier is timed.
type MeasuredChecker interface {
	IsRouteMeasurable(name string) bool
}

// DropCounter reports how many benchmark records were dropped.
type DropCounter interface {
	Dropped() uint64
}

// RouteInfo is a route table entry as shown by the admin API.
type RouteInfo struct {
	routes.Entry
	Measured bool `json:"measured"`
}

// Server is the admin API server.
type Server struct {
	configLoader *config.Loader
	table        *routes.Table
	measured     MeasuredChecker
	drops        DropCounter
	mux          *http.ServeMux
}

// New creates a new admin server and registers routes. drops may be nil.
func New(cl *config.Loader, table *routes.Table, measured MeasuredChecker, drops DropCounter, checker *health.Checker) *Server {
	s := &Server{
		configLoader: cl,
		table:        table,
		measured:     measured,
		drops:        drops,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/v1/config", s.getConfig)
	s.mux.HandleFunc("GET /api/v1/routes", s.listRoutes)
	s.mux.HandleFunc("GET /api/v1/status", s.getStatus)
	s.mux.Handle("GET /prometheus", metrics.Handler())
	s.mux.Handle("GET /readyz", checker.ReadyzHandler())
	return s
}

// Handler returns the HTTP handler for the admin server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.configLoader.Current()
	if cfg == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no configuration loaded"})
		return
	}
	writeJSON(w, http.StatusOK, cfg.Redacted())
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	entries := s.table.Routes()
	result := make([]RouteInfo, len(entries))
	for i, e := range entries {
		result[i] = RouteInfo{
			Entry:    e,
			Measured: s.measured != nil && s.measured.IsRouteMeasurable(e.Name),
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "running",
		"routes": len(s.table.Routes()),
	}
	if s.drops != nil {
		status["benchmark_records_dropped"] = s.drops.Dropped()
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
