package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ApplyDefaults fills in settings left empty in the file.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	es := &cfg.Elasticsearch
	if len(es.Addresses) == 0 {
		es.Addresses = []string{"http://localhost:9200"}
	}
	if es.Timeout == 0 {
		es.Timeout = 10 * time.Second
	}
	if es.Breaker.FailureThreshold == 0 {
		es.Breaker.FailureThreshold = 5
	}
	if es.Breaker.SuccessThreshold == 0 {
		es.Breaker.SuccessThreshold = 1
	}
	if es.Breaker.Timeout == 0 {
		es.Breaker.Timeout = 30 * time.Second
	}

	if cfg.Auth.Realm == "" {
		cfg.Auth.Realm = "searchgate"
	}

	m := &cfg.Metrics
	if m.Backend == "" {
		m.Backend = BackendElasticsearch
	}
	if m.Index == "" {
		m.Index = "searchgate.metrics"
	}
	if m.TermsSize == 0 {
		m.TermsSize = 10
	}
	if m.SQLitePath == "" {
		m.SQLitePath = "searchgate-metrics.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for correctness.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if cfg.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if cfg.Admin.Enabled && cfg.Admin.Listen == "" {
		return errors.New("admin.listen is required when admin is enabled")
	}

	if len(cfg.Elasticsearch.Addresses) == 0 {
		return errors.New("elasticsearch.addresses must not be empty")
	}
	for i, addr := range cfg.Elasticsearch.Addresses {
		u, err := url.Parse(addr)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("elasticsearch.addresses[%d] must be an http(s) URL, got %q", i, addr)
		}
	}
	if cfg.Elasticsearch.Breaker.FailureThreshold < 0 || cfg.Elasticsearch.Breaker.SuccessThreshold < 0 {
		return errors.New("elasticsearch.breaker thresholds must not be negative")
	}

	for name, password := range cfg.Auth.Users {
		if name == "" {
			return errors.New("auth.users contains an empty username")
		}
		if password == "" {
			return fmt.Errorf("auth.users %q has an empty password", name)
		}
	}

	m := cfg.Metrics
	switch m.Backend {
	case BackendElasticsearch, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("metrics.backend must be one of %q, %q or %q, got %q",
			BackendElasticsearch, BackendSQLite, BackendMemory, m.Backend)
	}
	if m.Backend == BackendSQLite && m.SQLitePath == "" {
		return errors.New("metrics.sqlite_path is required for the sqlite backend")
	}
	if m.Backend == BackendElasticsearch && m.Index == "" {
		return errors.New("metrics.index is required for the elasticsearch backend")
	}
	if m.QueueSize < 0 || m.Workers < 0 || m.TermsSize < 0 {
		return errors.New("metrics.queue_size, metrics.workers and metrics.terms_size must not be negative")
	}
	for i, name := range m.MeasureRoutes {
		if name == "" {
			return fmt.Errorf("metrics.measure_routes[%d] is empty", i)
		}
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}

	return nil
}
