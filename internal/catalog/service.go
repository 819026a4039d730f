package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/shelfd/internal/clock"
	"pkt.systems/shelfd/internal/storage"
	"pkt.systems/shelfd/internal/svcfields"
)

// DefaultListPageSize bounds a single backend listing call during full scans.
const DefaultListPageSize = 256

// Config wires the dependencies a Service needs.
type Config struct {
	Store  storage.Backend
	Logger pslog.Logger
	Clock  clock.Clock
	// ListPageSize caps per-page listing size; defaults to DefaultListPageSize.
	ListPageSize int
}

// Service implements the catalog operations on top of a storage backend.
type Service struct {
	store        storage.Backend
	logger       pslog.Logger
	clock        clock.Clock
	listPageSize int

	// createLocks serializes author creation per canonical name within this
	// process. The storage backend's create-only put remains the authority
	// across processes; the mutex only avoids redundant local put attempts.
	createLocks sync.Map
}

// New constructs a Service from cfg. The store is required.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: storage backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	pageSize := cfg.ListPageSize
	if pageSize <= 0 {
		pageSize = DefaultListPageSize
	}
	return &Service{
		store:        cfg.Store,
		logger:       svcfields.WithSubsystem(logger, "catalog"),
		clock:        clk,
		listPageSize: pageSize,
	}, nil
}

func (s *Service) creationMutex(name string) *sync.Mutex {
	actual, _ := s.createLocks.LoadOrStore(name, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func (s *Service) putRecord(ctx context.Context, key string, record any, opts storage.PutObjectOptions) (*storage.ObjectInfo, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", key, err)
	}
	opts.ContentType = storage.ContentTypeJSON
	return s.store.PutObject(ctx, key, bytes.NewReader(payload), opts)
}

func (s *Service) getRecord(ctx context.Context, key string, record any) error {
	res, err := s.store.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer res.Reader.Close()
	dec := json.NewDecoder(res.Reader)
	if err := dec.Decode(record); err != nil {
		return fmt.Errorf("decode record %s: %w", key, err)
	}
	// Drain so pooled connections in remote backends can be reused.
	_, _ = io.Copy(io.Discard, res.Reader)
	return nil
}
