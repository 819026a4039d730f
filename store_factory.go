package shelfd

import (
	"fmt"
	"net/url"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/shelfd/internal/clock"
	"pkt.systems/shelfd/internal/storage"
	"pkt.systems/shelfd/internal/storage/disk"
	"pkt.systems/shelfd/internal/storage/logging"
	"pkt.systems/shelfd/internal/storage/memory"
	"pkt.systems/shelfd/internal/storage/retry"
)

// openBackend builds the storage stack selected by the store URL and wraps
// it with retry and debug logging decorators.
func openBackend(cfg Config, logger pslog.Logger, clk clock.Clock) (storage.Backend, error) {
	raw := strings.TrimSpace(cfg.Store)
	if raw == "" {
		raw = DefaultStore
	}
	var inner storage.Backend
	switch {
	case raw == "mem://" || raw == "mem":
		inner = memory.New()
	case strings.HasPrefix(raw, "disk://"):
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse store url %q: %w", raw, err)
		}
		dir := u.Path
		if u.Host != "" {
			// disk://relative/path keeps the host segment as path head.
			dir = u.Host + u.Path
		}
		if dir == "" {
			return nil, fmt.Errorf("store url %q: missing directory", raw)
		}
		inner, err = disk.New(disk.Config{Root: dir})
		if err != nil {
			return nil, fmt.Errorf("open disk backend: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported store url %q (use mem:// or disk:///path)", raw)
	}

	wrapped := retry.Wrap(inner, logger, clk, retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	})
	return logging.Wrap(wrapped, logger, clk), nil
}
