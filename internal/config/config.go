package config

import "time"

// Config is the top-level service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Admin         AdminConfig         `yaml:"admin"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Auth          AuthConfig          `yaml:"auth"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the public HTTP server settings.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// AdminConfig defines the optional admin listener (routes, config, Prometheus).
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ElasticsearchConfig defines the search cluster the proxy forwards to.
type ElasticsearchConfig struct {
	Addresses []string      `yaml:"addresses"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of Elasticsearch.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// AuthConfig holds the HTTP basic credentials accepted by the proxy routes.
type AuthConfig struct {
	Realm string            `yaml:"realm"`
	Users map[string]string `yaml:"users"`
}

// Metrics store backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendSQLite        = "sqlite"
	BackendMemory        = "memory"
)

// MetricsConfig configures request timing and its persistence.
type MetricsConfig struct {
	// MeasureRoutes lists the route identifiers to time. Read once at startup.
	MeasureRoutes []string `yaml:"measure_routes"`
	Backend       string   `yaml:"backend"`
	Index         string   `yaml:"index"`
	TermsSize     int      `yaml:"terms_size"`
	SQLitePath    string   `yaml:"sqlite_path"`

	// QueueSize bounds the write queue; timings that do not fit are dropped.
	QueueSize    int           `yaml:"queue_size"`
	Workers      int           `yaml:"workers"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const redactedValue = "[REDACTED]"

// Redacted returns a copy of c with credentials masked, suitable for the
// admin API.
func (c Config) Redacted() Config {
	out := c
	if out.Elasticsearch.Password != "" {
		out.Elasticsearch.Password = redactedValue
	}
	if out.Elasticsearch.APIKey != "" {
		out.Elasticsearch.APIKey = redactedValue
	}
	out.Elasticsearch.Addresses = append([]string(nil), c.Elasticsearch.Addresses...)
	if c.Auth.Users != nil {
		out.Auth.Users = make(map[string]string, len(c.Auth.Users))
		for user := range c.Auth.Users {
			out.Auth.Users[user] = redactedValue
		}
	}
	return out
}
