package shelfd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pkt.systems/pslog"
	"pkt.systems/shelfd/internal/catalog"
	"pkt.systems/shelfd/internal/clock"
	"pkt.systems/shelfd/internal/httpapi"
	"pkt.systems/shelfd/internal/storage"
)

// Server wraps the HTTP server, storage backend, and catalog service.
type Server struct {
	cfg          Config
	logger       pslog.Logger
	backend      storage.Backend
	catalog      *catalog.Service
	handler      *httpapi.Handler
	httpSrv      *http.Server
	listener     net.Listener
	clock        clock.Clock
	telemetry    *telemetryBundle
	lastServeErr error

	mu        sync.Mutex
	shutdown  bool
	readyOnce sync.Once
	readyCh   chan struct{}
}

// Option configures server instances.
type Option func(*options)

type options struct {
	Logger       pslog.Logger
	Backend      storage.Backend
	Clock        clock.Clock
	OTLPEndpoint string
}

// WithLogger supplies a custom logger.
func WithLogger(l pslog.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithBackend injects a pre-built backend (useful for tests).
func WithBackend(b storage.Backend) Option {
	return func(o *options) {
		o.Backend = b
	}
}

// WithClock injects a custom clock implementation.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.Clock = c
	}
}

// WithOTLPEndpoint overrides the OTLP collector endpoint used for telemetry.
func WithOTLPEndpoint(endpoint string) Option {
	return func(o *options) {
		o.OTLPEndpoint = endpoint
	}
}

// NewServer constructs a shelfd server according to cfg.
// Example:
//
//	cfg := shelfd.Config{Store: "mem://", Listen: ":9191"}
//	srv, err := shelfd.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go srv.Start()
func NewServer(cfg Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := o.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	serverClock := o.Clock
	if serverClock == nil {
		serverClock = clock.Real{}
	}

	otlpEndpoint := cfg.OTLPEndpoint
	if o.OTLPEndpoint != "" {
		otlpEndpoint = o.OTLPEndpoint
	}
	telemetry, err := setupTelemetry(context.Background(), telemetryConfig{
		OTLPEndpoint:     otlpEndpoint,
		MetricsListen:    cfg.MetricsListen,
		PprofListen:      cfg.PprofListen,
		ProfilingMetrics: cfg.ProfilingMetrics,
	}, logger.With("svc", "telemetry"))
	if err != nil {
		return nil, err
	}
	shutdownTelemetry := func() {
		if telemetry == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = telemetry.Shutdown(ctx)
		cancel()
	}

	backend := o.Backend
	ownedBackend := false
	if backend == nil {
		backend, err = openBackend(cfg, logger, serverClock)
		if err != nil {
			shutdownTelemetry()
			return nil, err
		}
		ownedBackend = true
	}

	catalogSvc, err := catalog.New(catalog.Config{
		Store:  backend,
		Logger: logger,
		Clock:  serverClock,
	})
	if err != nil {
		if ownedBackend {
			_ = backend.Close()
		}
		shutdownTelemetry()
		return nil, err
	}

	var metricsRegistry prometheus.Registerer
	if telemetry != nil {
		metricsRegistry = telemetry.Registry()
	}
	srv := &Server{
		cfg:       cfg,
		logger:    logger.With("svc", "server"),
		backend:   backend,
		catalog:   catalogSvc,
		clock:     serverClock,
		telemetry: telemetry,
		readyCh:   make(chan struct{}),
	}
	handler, err := httpapi.New(httpapi.Config{
		Catalog:            catalogSvc,
		Logger:             logger,
		Clock:              serverClock,
		JSONMaxBytes:       cfg.JSONMaxBytes,
		Ready:              srv.ready,
		HTTPTracingEnabled: otlpEndpoint != "",
		Metrics:            httpapi.NewMetrics(metricsRegistry),
	})
	if err != nil {
		if ownedBackend {
			_ = backend.Close()
		}
		shutdownTelemetry()
		return nil, err
	}
	srv.handler = handler

	mux := http.NewServeMux()
	handler.Register(mux)
	srv.httpSrv = &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return context.Background()
		},
	}
	return srv, nil
}

// Handler returns the underlying HTTP handler so shelfd can be mounted inside
// an existing mux when embedding the server into another program.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start begins serving requests and blocks until the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen (%s): %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.signalReady()
	s.logger.Info("listening", "address", ln.Addr().String(), "store", s.cfg.Store)
	serveErr := s.httpSrv.Serve(ln)
	s.recordServeErr(serveErr)
	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	if serveErr != nil {
		return fmt.Errorf("http serve: %w", serveErr)
	}
	return nil
}

// Shutdown gracefully stops the server and returns any fatal serve/shutdown
// error. The returned error will be nil for clean shutdowns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.mu.Unlock()

	if err := s.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if l := s.listener; l != nil {
		_ = l.Close()
		s.listener = nil
	}
	if err := s.backend.Close(); err != nil {
		return err
	}
	if s.telemetry != nil {
		telemetryCtx := ctx
		if telemetryCtx.Err() != nil {
			var cancel context.CancelFunc
			telemetryCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
		}
		if err := s.telemetry.Shutdown(telemetryCtx); err != nil {
			return err
		}
		s.telemetry = nil
	}
	if err := s.LastServeError(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts the server down using a background context.
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}

func (s *Server) signalReady() {
	s.readyOnce.Do(func() {
		close(s.readyCh)
	})
}

func (s *Server) ready() bool {
	select {
	case <-s.readyCh:
		return true
	default:
		return false
	}
}

// WaitUntilReady blocks until the server listener is initialized or context ends.
func (s *Server) WaitUntilReady(ctx context.Context) error {
	select {
	case <-s.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListenerAddr returns the bound listener address once available.
func (s *Server) ListenerAddr() net.Addr {
	if l := s.listener; l != nil {
		return l.Addr()
	}
	return nil
}

func (s *Server) recordServeErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.lastServeErr = err
	}
}

// LastServeError returns the last fatal error recorded by Start, if any.
func (s *Server) LastServeError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastServeErr
}
