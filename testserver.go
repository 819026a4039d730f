package shelfd

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/shelfd/client"
	"pkt.systems/shelfd/internal/storage"
)

// StartServer constructs and starts a server, returning a stop function that
// shuts it down gracefully. Start errors surface through the stop function.
func StartServer(cfg Config, opts ...Option) (*Server, func(context.Context) error, error) {
	srv, err := NewServer(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()
	readyCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.WaitUntilReady(readyCtx); err != nil {
		_ = srv.Close()
		<-serveErr
		return nil, nil, fmt.Errorf("server did not become ready: %w", err)
	}
	stop := func(ctx context.Context) error {
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		return <-serveErr
	}
	return srv, stop, nil
}

// TestServer wraps a running shelfd.Server with convenient handles for tests.
type TestServer struct {
	Server   *Server
	BaseURL  string
	Listener net.Addr
	Client   *client.Client
	Config   Config

	stop    func(context.Context) error
	backend storage.Backend
}

type testingWriter struct {
	t  testing.TB
	mu sync.Mutex
	// closed guards against writes after the associated test has finished.
	closed bool
}

func (w *testingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return len(p), nil
	}
	lines := bytes.Split(p, []byte{'\n'})
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		w.t.Helper()
		func(entry string) {
			defer func() {
				if r := recover(); r != nil {
					msg := fmt.Sprint(r)
					if strings.Contains(msg, "Log in goroutine after") {
						return
					}
					if strings.Contains(msg, "Log in goroutine during concurrent Cleanups") {
						return
					}
					panic(r)
				}
			}()
			w.t.Log(entry)
		}(string(line))
	}
	w.mu.Unlock()
	return len(p), nil
}

func (w *testingWriter) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

// NewTestingLogger creates a logger that writes through testing.TB.
func NewTestingLogger(t testing.TB, level pslog.Level) pslog.Logger {
	writer := &testingWriter{t: t}
	t.Cleanup(writer.close)
	return pslog.NewStructured(writer).LogLevel(level).With("app", "testserver")
}

// Stop shuts down the server using the provided context.
func (ts *TestServer) Stop(ctx context.Context) error {
	if ts == nil || ts.stop == nil {
		return nil
	}
	if ts.Client != nil {
		_ = ts.Client.Close()
	}
	return ts.stop(ctx)
}

// URL returns the base URL clients should use to reach the server.
func (ts *TestServer) URL() string {
	if ts == nil {
		return ""
	}
	return ts.BaseURL
}

// Backend exposes the storage backend used by the server.
func (ts *TestServer) Backend() storage.Backend {
	if ts == nil {
		return nil
	}
	return ts.backend
}

type testServerOptions struct {
	mutators     []func(*Config)
	backend      storage.Backend
	logger       pslog.Logger
	testTB       testing.TB
	testLogLevel pslog.Level
}

// TestServerOption customises NewTestServer/StartTestServer behaviour.
type TestServerOption func(*testServerOptions)

// WithTestConfigFunc applies a mutation to the server configuration before start.
func WithTestConfigFunc(fn func(*Config)) TestServerOption {
	return func(o *testServerOptions) {
		if fn != nil {
			o.mutators = append(o.mutators, fn)
		}
	}
}

// WithTestStore sets the storage URL while still defaulting other values.
func WithTestStore(store string) TestServerOption {
	return WithTestConfigFunc(func(cfg *Config) {
		cfg.Store = store
	})
}

// WithTestBackend injects a pre-built backend (shared between servers if desired).
func WithTestBackend(backend storage.Backend) TestServerOption {
	return func(o *testServerOptions) {
		o.backend = backend
	}
}

// WithTestLogger supplies a custom logger.
func WithTestLogger(logger pslog.Logger) TestServerOption {
	return func(o *testServerOptions) {
		o.logger = logger
	}
}

// WithTestLoggerFromTB routes server logs to the provided testing logger at the supplied level.
func WithTestLoggerFromTB(t testing.TB, level pslog.Level) TestServerOption {
	return func(o *testServerOptions) {
		o.testTB = t
		o.testLogLevel = level
	}
}

// NewTestServer starts a shelfd server suitable for tests. Call Stop to clean
// up resources.
func NewTestServer(opts ...TestServerOption) (*TestServer, error) {
	options := testServerOptions{
		testLogLevel: pslog.DebugLevel,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := Config{
		Store:  "mem://",
		Listen: "127.0.0.1:0",
	}
	for _, mut := range options.mutators {
		mut(&cfg)
	}

	logger := options.logger
	if logger == nil {
		if options.testTB != nil {
			logger = NewTestingLogger(options.testTB, options.testLogLevel)
		} else {
			logger = pslog.NoopLogger()
		}
	}

	startOpts := []Option{WithLogger(logger)}
	if options.backend != nil {
		startOpts = append(startOpts, WithBackend(options.backend))
	}
	srv, stop, err := StartServer(cfg, startOpts...)
	if err != nil {
		return nil, err
	}

	addr := srv.ListenerAddr()
	if addr == nil {
		_ = stop(context.Background())
		return nil, fmt.Errorf("test server: listener not initialised")
	}
	baseURL := "http://" + addr.String()

	cli, err := client.New(baseURL)
	if err != nil {
		_ = stop(context.Background())
		return nil, err
	}

	return &TestServer{
		Server:   srv,
		BaseURL:  baseURL,
		Listener: addr,
		Client:   cli,
		Config:   cfg,
		stop:     stop,
		backend:  options.backend,
	}, nil
}

// StartTestServer is a convenience wrapper that fails the test on error and
// registers cleanup.
func StartTestServer(t testing.TB, opts ...TestServerOption) *TestServer {
	t.Helper()
	ts, err := NewTestServer(opts...)
	if err != nil {
		t.Fatalf("start test server: %v", err)
	}
	t.Cleanup(func() {
		if err := ts.Stop(context.Background()); err != nil {
			t.Fatalf("stop test server: %v", err)
		}
	})
	return ts
}
