package shelfd

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by Config.Validate when fields are unset.
const (
	DefaultListen          = ":9191"
	DefaultStore           = "mem://"
	DefaultLogLevel        = "info"
	DefaultJSONMaxBytes    = 1 << 20
	DefaultShutdownTimeout = 15 * time.Second
	DefaultRetryAttempts   = 4
	DefaultRetryBaseDelay  = 50 * time.Millisecond
	DefaultRetryMaxDelay   = 2 * time.Second
)

// Config holds the server configuration.
type Config struct {
	// Listen is the address of the main HTTP listener.
	Listen string `mapstructure:"listen" yaml:"listen"`
	// Store selects the storage backend by URL: mem:// or disk:///path.
	Store string `mapstructure:"store" yaml:"store"`
	// LogLevel sets the minimum log level (trace, debug, info, warn, error).
	LogLevel string `mapstructure:"log-level" yaml:"log-level"`
	// JSONMaxBytes caps JSON request body size in bytes.
	JSONMaxBytes int64 `mapstructure:"json-max-bytes" yaml:"json-max-bytes"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" yaml:"shutdown-timeout"`
	// RetryAttempts caps storage retries for transient backend failures.
	RetryAttempts int `mapstructure:"retry-attempts" yaml:"retry-attempts"`
	// RetryBaseDelay is the first retry backoff delay.
	RetryBaseDelay time.Duration `mapstructure:"retry-base-delay" yaml:"retry-base-delay"`
	// RetryMaxDelay caps the retry backoff delay.
	RetryMaxDelay time.Duration `mapstructure:"retry-max-delay" yaml:"retry-max-delay"`
	// MetricsListen, when set, serves Prometheus metrics on /metrics.
	MetricsListen string `mapstructure:"metrics-listen" yaml:"metrics-listen"`
	// PprofListen, when set, serves net/http/pprof handlers.
	PprofListen string `mapstructure:"pprof-listen" yaml:"pprof-listen"`
	// OTLPEndpoint, when set, exports traces over OTLP/HTTP and enables
	// per-request span emission.
	OTLPEndpoint string `mapstructure:"otlp-endpoint" yaml:"otlp-endpoint"`
	// ProfilingMetrics exports Go runtime metrics via the metrics listener.
	ProfilingMetrics bool `mapstructure:"profiling-metrics" yaml:"profiling-metrics"`
}

// Validate normalizes cfg in place, applying defaults and rejecting
// inconsistent settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = DefaultListen
	}
	if strings.TrimSpace(c.Store) == "" {
		c.Store = DefaultStore
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.JSONMaxBytes <= 0 {
		c.JSONMaxBytes = DefaultJSONMaxBytes
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = DefaultRetryMaxDelay
	}
	if c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("retry-max-delay %s is below retry-base-delay %s", c.RetryMaxDelay, c.RetryBaseDelay)
	}
	if c.ProfilingMetrics && strings.TrimSpace(c.MetricsListen) == "" {
		return fmt.Errorf("profiling-metrics requires metrics-listen")
	}
	return nil
}
