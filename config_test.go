package shelfd

import (
	"testing"
	"time"
)

func TestConfigValidateDefaults(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Fatalf("expected listen default %q, got %q", DefaultListen, cfg.Listen)
	}
	if cfg.Store != DefaultStore {
		t.Fatalf("expected store default %q, got %q", DefaultStore, cfg.Store)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected log level default %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.JSONMaxBytes != DefaultJSONMaxBytes {
		t.Fatal("expected json max default")
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Fatal("expected shutdown timeout default")
	}
	if cfg.RetryAttempts <= 0 || cfg.RetryBaseDelay <= 0 || cfg.RetryMaxDelay <= 0 {
		t.Fatal("expected storage retry defaults")
	}
}

func TestConfigValidateKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Listen:       "127.0.0.1:8080",
		Store:        "disk:///tmp/shelfd",
		JSONMaxBytes: 4096,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Fatalf("listen overwritten: %q", cfg.Listen)
	}
	if cfg.Store != "disk:///tmp/shelfd" {
		t.Fatalf("store overwritten: %q", cfg.Store)
	}
	if cfg.JSONMaxBytes != 4096 {
		t.Fatalf("json max overwritten: %d", cfg.JSONMaxBytes)
	}
}

func TestConfigValidateRejectsRetryDelayInversion(t *testing.T) {
	cfg := Config{
		RetryBaseDelay: 2 * time.Second,
		RetryMaxDelay:  time.Second,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for retry-max-delay below retry-base-delay")
	}
}

func TestConfigValidateRejectsProfilingWithoutMetrics(t *testing.T) {
	cfg := Config{ProfilingMetrics: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for profiling-metrics without metrics-listen")
	}
}
