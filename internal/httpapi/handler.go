// Package httpapi adapts the catalog service to the HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pkt.systems/pslog"
	"pkt.systems/shelfd/api"
	"pkt.systems/shelfd/internal/catalog"
	"pkt.systems/shelfd/internal/clock"
	"pkt.systems/shelfd/internal/svcfields"
	"pkt.systems/shelfd/internal/uuidv7"
)

// DefaultJSONMaxBytes caps request bodies accepted by the JSON endpoints.
const DefaultJSONMaxBytes = 1 << 20

// Config wires a Handler.
type Config struct {
	Catalog *catalog.Service
	Logger  pslog.Logger
	Clock   clock.Clock
	// JSONMaxBytes caps request body size; defaults to DefaultJSONMaxBytes.
	JSONMaxBytes int64
	// Ready reports readiness for /readyz; nil means always ready.
	Ready func() bool
	// HTTPTracingEnabled turns on otelhttp wrapping and span emission.
	HTTPTracingEnabled bool
	Metrics            *Metrics
}

// Handler wires HTTP endpoints to catalog operations.
type Handler struct {
	catalog            *catalog.Service
	logger             pslog.Logger
	clock              clock.Clock
	jsonMaxBytes       int64
	ready              func() bool
	tracer             trace.Tracer
	httpTracingEnabled bool
	metrics            *Metrics
}

// New constructs a Handler from cfg. The catalog service is required.
func New(cfg Config) (*Handler, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("httpapi: catalog service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	maxBytes := cfg.JSONMaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultJSONMaxBytes
	}
	return &Handler{
		catalog:            cfg.Catalog,
		logger:             logger,
		clock:              clk,
		jsonMaxBytes:       maxBytes,
		ready:              cfg.Ready,
		tracer:             otel.Tracer("pkt.systems/shelfd/internal/httpapi"),
		httpTracingEnabled: cfg.HTTPTracingEnabled,
		metrics:            cfg.Metrics,
	}, nil
}

// Register installs all catalog routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/books", h.wrap("books", h.handleBooks))
	mux.Handle("/authors", h.wrap("authors", h.handleAuthors))
	mux.Handle("/stats", h.wrap("stats", h.handleStats))
	mux.Handle("/healthz", h.wrap("healthz", h.handleHealth))
	mux.Handle("/readyz", h.wrap("readyz", h.handleReady))
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (h *Handler) wrap(operation string, fn handlerFunc) http.Handler {
	sys := routerSys(operation)
	httpSpanName := "shelfd.http." + operation

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.clock.Now()
		ctx := r.Context()
		reqID := uuidv7.NewString()
		instrument := h.httpTracingEnabled
		var span trace.Span
		if instrument {
			ctx, span = h.tracer.Start(ctx, "shelfd.op."+operation,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("shelfd.sys", sys)),
			)
			span.SetAttributes(
				attribute.String("shelfd.operation", operation),
				attribute.String("shelfd.route", r.URL.Path),
			)
			defer span.End()
		} else {
			span = trace.SpanFromContext(ctx)
		}

		logger := svcfields.WithSubsystem(h.logger, sys).With(
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = pslog.ContextWithLogger(ctx, logger)
		r = r.WithContext(ctx)

		logger.Trace("http.request.start", "remote_addr", r.RemoteAddr)

		sw := &statusWriter{ResponseWriter: w}
		if err := fn(sw, r); err != nil {
			if instrument {
				span.RecordError(err)
				span.SetStatus(codes.Error, "handler_error")
			}
			logger.Debug("http.request.error", "elapsed", h.clock.Now().Sub(start), "error", err)
			status := h.handleError(ctx, w, err)
			h.observe(operation, status, h.clock.Now().Sub(start))
			return
		}
		if instrument {
			span.SetStatus(codes.Ok, "")
		}
		logger.Trace("http.request.complete", "elapsed", h.clock.Now().Sub(start))
		h.observe(operation, sw.writtenStatus(), h.clock.Now().Sub(start))
	})

	if !h.httpTracingEnabled {
		return handler
	}
	return otelhttp.NewHandler(handler, httpSpanName,
		otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents))
}

// statusWriter remembers the first status code written so metrics reflect
// what actually went on the wire.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) writtenStatus() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (h *Handler) observe(operation string, status int, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.Observe(operation, status, elapsed)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}

type httpError struct {
	Status int
	Code   string
	Detail string
}

func (e httpError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}

// handleError renders err as a structured error response and returns the
// status code it wrote.
func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error) int {
	logger := pslog.LoggerFromContext(ctx)
	if logger == nil {
		logger = h.logger
	}
	var httpErr httpError
	if errors.As(err, &httpErr) {
		logger.Debug("http.request.failure",
			"status", httpErr.Status,
			"code", httpErr.Code,
			"detail", httpErr.Detail,
		)
		h.writeJSON(w, httpErr.Status, api.ErrorResponse{
			ErrorCode: httpErr.Code,
			Detail:    httpErr.Detail,
		})
		return httpErr.Status
	}
	logger.Error("http.request.internal", "error", err)
	h.writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{
		ErrorCode: "internal_error",
		Detail:    "internal server error",
	})
	return http.StatusInternalServerError
}

func routerSys(operation string) string {
	parts := strings.FieldsFunc(operation, func(r rune) bool {
		switch r {
		case '.', '/', '-', '_':
			return true
		}
		return false
	})
	if len(parts) == 0 {
		return "api.http.router"
	}
	return "api.http.router." + strings.Join(parts, ".")
}
