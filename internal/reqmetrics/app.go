package reqmetrics

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oriys/searchgate/internal/routes"
)

const (
	// MetricsRouteName identifies the summary endpoint in the route table.
	MetricsRouteName = "searchgate.metrics.get_metrics"
	// MetricsPath is where the summary endpoint is mounted.
	MetricsPath = "/metrics/"
)

// AddMetricsApp registers the GET /metrics/ summary endpoint on app and puts
// the timing middleware in front of every request the table serves. Records
// of the routes named in measureRoutes are handed to manager.Store.
//
// Call it before registering routes whose patterns could also match
// /metrics/, since the first registered match wins.
func AddMetricsApp(app *routes.Table, manager Manager, measureRoutes []string) *RequestMetricsHandler {
	handler := NewRequestMetricsHandler(app, measureRoutes, manager.Store)

	app.HandleFunc(MetricsRouteName, http.MethodGet, MetricsPath, metricsHandler(manager))
	app.Use(handler.Wrap)

	slog.Info("request metrics enabled", slog.Int("measured_routes", len(handler.measureRoutes)))
	return handler
}

// metricsHandler serves the aggregated summary. A missing interval parameter
// means 24h; any other value is passed through to the manager unchanged.
func metricsHandler(manager Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interval := DefaultInterval.String()
		if values, ok := r.URL.Query()["interval"]; ok && len(values) > 0 {
			interval = values[0]
		}

		result, err := manager.Retrieve(r.Context(), interval)
		if err != nil {
			slog.Error("metrics retrieval failed",
				slog.String("interval", interval),
				slog.String("error", err.Error()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "metrics_unavailable",
				"message": err.Error(),
			})
			return
		}
		if result == nil {
			result = []EndpointMetric{}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result)
	}
}
