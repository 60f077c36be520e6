package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/oriys/searchgate/internal/admin"
	"github.com/oriys/searchgate/internal/auth"
	"github.com/oriys/searchgate/internal/circuitbreaker"
	"github.com/oriys/searchgate/internal/config"
	"github.com/oriys/searchgate/internal/health"
	"github.com/oriys/searchgate/internal/middleware"
	"github.com/oriys/searchgate/internal/proxy"
	"github.com/oriys/searchgate/internal/reqmetrics"
	"github.com/oriys/searchgate/internal/reqmetrics/elastic"
	"github.com/oriys/searchgate/internal/reqmetrics/sqlite"
	"github.com/oriys/searchgate/internal/routes"
	"github.com/oriys/searchgate/internal/search"
)

func main() {
	logLevel := new(slog.LevelVar)
	slog.SetDefault(newLogger("json", logLevel))

	configPath := os.Getenv("SEARCHGATE_CONFIG")
	if configPath == "" {
		configPath = "configs/searchgate.yaml"
	}

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logLevel.Set(parseLevel(cfg.Logging.Level))
	slog.SetDefault(newLogger(cfg.Logging.Format, logLevel))
	slog.Info("configuration loaded", slog.String("path", configPath))

	esClient, err := search.NewClient(cfg.Elasticsearch)
	if err != nil {
		slog.Error("failed to create elasticsearch client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	backend, closeBackend, err := newMetricsBackend(cfg.Metrics, esClient)
	if err != nil {
		slog.Error("failed to create metrics backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	manager := reqmetrics.NewManager(backend, managerConfig(cfg.Metrics))
	slog.Info("metrics store ready", slog.String("backend", cfg.Metrics.Backend))

	breaker := circuitbreaker.New("elasticsearch", circuitbreaker.Settings{
		FailureThreshold: cfg.Elasticsearch.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Elasticsearch.Breaker.SuccessThreshold,
		Timeout:          cfg.Elasticsearch.Breaker.Timeout,
	})
	executor := search.NewExecutor(esClient, breaker)

	authenticator := auth.NewBasicAuthenticator(cfg.Auth.Users)
	if authenticator.Len() == 0 {
		slog.Warn("no auth users configured, proxy routes will reject every request")
	}

	checker := health.NewChecker(pingProbe(esClient))

	measureRoutes := cfg.Metrics.MeasureRoutes
	if measureRoutes == nil {
		measureRoutes = proxy.DefaultMeasureRoutes
	}

	// Registration order matters: the first matching route wins, and
	// /{index_name} would otherwise shadow the fixed paths.
	table := routes.NewTable()
	table.Use(
		middleware.RequestID(),
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Logging(table.RouteName),
		middleware.Metrics(table.RouteName),
	)
	timing := reqmetrics.AddMetricsApp(table, manager, measureRoutes)
	checker.Register(table)
	proxy.Register(table, proxy.NewHandlers(executor), middleware.Auth(authenticator, cfg.Auth.Realm))

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      table.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var adminSrv *http.Server
	if cfg.Admin.Enabled && cfg.Admin.Listen != "" {
		adminServer := admin.New(loader, table, timing, manager, checker)
		adminSrv = &http.Server{
			Addr:    cfg.Admin.Listen,
			Handler: adminServer.Handler(),
		}
		go func() {
			slog.Info("admin API starting", slog.String("listen", cfg.Admin.Listen))
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("admin server error", slog.String("error", err.Error()))
			}
		}()
	}

	// Measured routes and backends are fixed at startup; credentials and the
	// log level follow the file.
	done := make(chan struct{})
	go func() {
		if err := loader.Watch(func(newCfg *config.Config) {
			authenticator.Reload(newCfg.Auth.Users)
			logLevel.Set(parseLevel(newCfg.Logging.Level))
			slog.Info("auth users reloaded", slog.Int("users", authenticator.Len()))
		}, done); err != nil {
			slog.Error("config watcher error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("searchgate starting",
			slog.String("listen", cfg.Server.Listen),
			slog.Int("measured_routes", len(measureRoutes)),
		)
		checker.SetReady(true)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", slog.String("signal", sig.String()))

	checker.SetReady(false)
	close(done)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if adminSrv != nil {
		if err := adminSrv.Shutdown(ctx); err != nil {
			slog.Error("admin shutdown error", slog.String("error", err.Error()))
		}
	}

	exitCode := 0
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", slog.String("error", err.Error()))
		exitCode = 1
	}

	// Flush pending benchmark records after the last request has finished.
	if err := manager.Close(ctx); err != nil {
		slog.Warn("benchmark queue not fully drained",
			slog.String("error", err.Error()),
			slog.Uint64("dropped", manager.Dropped()),
		)
	}
	if closeBackend != nil {
		if err := closeBackend(); err != nil {
			slog.Error("metrics backend close error", slog.String("error", err.Error()))
		}
	}

	slog.Info("searchgate stopped")
	os.Exit(exitCode)
}

// newMetricsBackend builds the configured benchmark store. The returned close
// function may be nil.
func newMetricsBackend(cfg config.MetricsConfig, client *elasticsearch.Client) (reqmetrics.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendElasticsearch:
		return elastic.New(client, elastic.WithIndex(cfg.Index), elastic.WithTermsSize(cfg.TermsSize)), nil, nil
	case config.BackendSQLite:
		b, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case config.BackendMemory:
		return reqmetrics.NewMemoryBackend(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics backend %q", cfg.Backend)
	}
}

func managerConfig(cfg config.MetricsConfig) reqmetrics.ManagerConfig {
	mc := reqmetrics.DefaultManagerConfig()
	if cfg.QueueSize > 0 {
		mc.QueueSize = cfg.QueueSize
	}
	if cfg.Workers > 0 {
		mc.Workers = cfg.Workers
	}
	if cfg.WriteTimeout > 0 {
		mc.WriteTimeout = cfg.WriteTimeout
	}
	return mc
}

func pingProbe(client *elasticsearch.Client) health.Probe {
	return func(ctx context.Context) error {
		res, err := client.Ping(client.Ping.WithContext(ctx))
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return errors.New("elasticsearch ping: " + res.Status())
		}
		return nil
	}
}

func newLogger(format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
