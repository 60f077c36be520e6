package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDebounce coalesces the burst of events a single save produces.
const reloadDebounce = 100 * time.Millisecond

// Loader reads the YAML configuration file and keeps the last valid result.
type Loader struct {
	path    string
	current atomic.Pointer[Config]
}

// NewLoader creates a loader for the file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the watched file.
func (l *Loader) Path() string {
	return l.path
}

// Load parses the file, applies defaults and validates it. The result becomes
// Current only when it is valid.
func (l *Loader) Load() (*Config, error) {
	cfg, err := parseFile(l.path)
	if err != nil {
		return nil, err
	}
	l.current.Store(cfg)
	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Current returns the last valid configuration, or nil before the first Load.
func (l *Loader) Current() *Config {
	return l.current.Load()
}

// Watch reloads the file whenever it changes and passes every valid result to
// onChange. Invalid edits are logged and the current config is kept. Watch
// blocks until done is closed.
//
// The parent directory is watched because editors usually save by renaming a
// temporary file over the original.
func (l *Loader) Watch(onChange func(*Config), done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}
	target := filepath.Clean(l.path)
	slog.Info("watching config file for changes", slog.String("path", l.path))

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(reloadDebounce)
			}
		case <-timer.C:
			l.reload(onChange)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", slog.String("error", err.Error()))
		case <-done:
			return nil
		}
	}
}

func (l *Loader) reload(onChange func(*Config)) {
	cfg, err := l.Load()
	if err != nil {
		slog.Error("failed to reload config, keeping current",
			slog.String("path", l.path),
			slog.String("error", err.Error()),
		)
		return
	}
	slog.Info("config reloaded", slog.String("path", l.path))
	if onChange != nil {
		onChange(cfg)
	}
}
