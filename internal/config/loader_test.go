package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadValidConfig(t *testing.T) {
	content := `
server:
  listen: ":8000"
  read_timeout: 30s
  write_timeout: 30s
  shutdown_timeout: 30s

elasticsearch:
  addresses:
    - "http://127.0.0.1:9200"
  timeout: 5s

auth:
  users:
    quepid: secret

metrics:
  backend: sqlite
  sqlite_path: /tmp/metrics.db
  queue_size: 16
  measure_routes:
    - searchgate.proxy.search_proxy

logging:
  level: debug
  format: text
`
	path := writeTemp(t, content)
	loader := NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Listen != ":8000" {
		t.Errorf("expected listen :8000, got %s", cfg.Server.Listen)
	}
	if cfg.Elasticsearch.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %s", cfg.Elasticsearch.Timeout)
	}
	if cfg.Auth.Users["quepid"] != "secret" {
		t.Errorf("expected quepid user, got %v", cfg.Auth.Users)
	}
	if cfg.Metrics.Backend != BackendSQLite {
		t.Errorf("expected sqlite backend, got %s", cfg.Metrics.Backend)
	}
	if len(cfg.Metrics.MeasureRoutes) != 1 || cfg.Metrics.MeasureRoutes[0] != "searchgate.proxy.search_proxy" {
		t.Errorf("unexpected measure routes %v", cfg.Metrics.MeasureRoutes)
	}

	// Defaults are applied on load.
	if cfg.Metrics.Index != "searchgate.metrics" {
		t.Errorf("expected default index, got %s", cfg.Metrics.Index)
	}
	if cfg.Metrics.QueueSize != 16 {
		t.Errorf("expected queue size 16, got %d", cfg.Metrics.QueueSize)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("expected default CORS origins, got %v", cfg.Server.CORSOrigins)
	}

	cur := loader.Current()
	if cur == nil {
		t.Fatal("Current() should return loaded config")
	}
	if cur.Server.Listen != cfg.Server.Listen {
		t.Error("Current() should match loaded config")
	}
}

func TestLoadEmptyMeasureRoutesStaysEmpty(t *testing.T) {
	content := `
server:
  listen: ":8000"
metrics:
  measure_routes: []
`
	cfg, err := NewLoader(writeTemp(t, content)).Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Metrics.MeasureRoutes == nil || len(cfg.Metrics.MeasureRoutes) != 0 {
		t.Errorf("expected explicit empty list, got %#v", cfg.Metrics.MeasureRoutes)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	loader := NewLoader(path)
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewLoader("/nonexistent/path.yaml")
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	content := `
server:
  listen: ""
`
	path := writeTemp(t, content)
	loader := NewLoader(path)
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCurrentReturnsNilBeforeLoad(t *testing.T) {
	loader := NewLoader("nonexistent.yaml")
	if loader.Current() != nil {
		t.Error("Current() should return nil before Load()")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeTemp(t, "server:\n  listen: \":8000\"\nlogging:\n  level: info\n")
	loader := NewLoader(path)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	changed := make(chan *Config, 1)
	done := make(chan struct{})
	defer close(done)
	go loader.Watch(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	}, done)

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("server:\n  listen: \":8000\"\nlogging:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-changed:
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected reloaded level debug, got %s", cfg.Logging.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestWatchKeepsCurrentOnInvalidEdit(t *testing.T) {
	path := writeTemp(t, "server:\n  listen: \":8000\"\n")
	loader := NewLoader(path)
	if _, err := loader.Load(); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	changed := make(chan *Config, 1)
	done := make(chan struct{})
	defer close(done)
	go loader.Watch(func(cfg *Config) { changed <- cfg }, done)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("server:\n  listen: \"\"\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("invalid config must not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
	if loader.Current().Server.Listen != ":8000" {
		t.Errorf("expected previous config to stay current, got %q", loader.Current().Server.Listen)
	}
	if loader.Path() != path {
		t.Errorf("unexpected path %s", loader.Path())
	}
}
