package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oriys/searchgate/internal/routes"
)

// HealthcheckRoute identifies the liveness endpoint in the route table.
const HealthcheckRoute = "searchgate.health.healthcheck"

// Probe checks a dependency the service needs to serve traffic.
type Probe func(ctx context.Context) error

// Checker provides health and readiness check endpoints.
type Checker struct {
	ready        atomic.Bool
	probe        Probe
	probeTimeout time.Duration
}

// NewChecker creates a health checker. probe may be nil.
func NewChecker(probe Probe) *Checker {
	return &Checker{probe: probe, probeTimeout: 2 * time.Second}
}

// SetReady marks the service as ready to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

// Register adds GET /healthcheck to table.
func (c *Checker) Register(table *routes.Table) {
	table.HandleFunc(HealthcheckRoute, http.MethodGet, "/healthcheck", c.HealthcheckHandler())
}

// HealthcheckHandler always answers {"status":"OK"} while the process runs.
func (c *Checker) HealthcheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
	}
}

// ReadyzHandler reports readiness: the service was marked ready and the
// probe, if any, succeeds.
func (c *Checker) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !c.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}

		if c.probe != nil {
			ctx, cancel := context.WithTimeout(r.Context(), c.probeTimeout)
			defer cancel()
			if err := c.probe(ctx); err != nil {
				slog.Warn("readiness probe failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
				})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}
