package shelfd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"pkt.systems/pslog"
)

type telemetryConfig struct {
	OTLPEndpoint     string
	MetricsListen    string
	PprofListen      string
	ProfilingMetrics bool
}

type telemetryBundle struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prometheus.Registry
	metricsServer  *http.Server
	metricsLn      net.Listener
	pprofServer    *http.Server
	pprofLn        net.Listener
	logger         pslog.Logger
}

// Registry exposes the Prometheus registry when the metrics listener is
// enabled, nil otherwise.
func (t *telemetryBundle) Registry() prometheus.Registerer {
	if t == nil || t.registry == nil {
		return nil
	}
	return t.registry
}

type otelErrorHandler struct {
	logger pslog.Logger
}

func (h otelErrorHandler) Handle(err error) {
	if err == nil {
		return
	}
	if h.logger != nil {
		h.logger.Warn("telemetry.exporter.error", "error", err)
	}
}

func (t *telemetryBundle) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	var errs []error
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric shutdown: %w", err))
		}
	}
	if t.metricsServer != nil {
		if err := t.metricsServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if t.metricsLn != nil {
		_ = t.metricsLn.Close()
	}
	if t.pprofServer != nil {
		if err := t.pprofServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, fmt.Errorf("pprof server shutdown: %w", err))
		}
	}
	if t.pprofLn != nil {
		_ = t.pprofLn.Close()
	}
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if t.logger != nil {
		t.logger.Info("telemetry.shutdown.complete")
	}
	return nil
}

var runtimeMetricsOnce sync.Once
var runtimeMetricsErr error

func setupTelemetry(ctx context.Context, cfg telemetryConfig, logger pslog.Logger) (*telemetryBundle, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	metricsListen := strings.TrimSpace(cfg.MetricsListen)
	pprofListen := strings.TrimSpace(cfg.PprofListen)
	if endpoint == "" && metricsListen == "" && pprofListen == "" && !cfg.ProfilingMetrics {
		return nil, nil
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName("shelfd"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	bundle := &telemetryBundle{logger: logger}
	fail := func(err error) (*telemetryBundle, error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = bundle.Shutdown(shutdownCtx)
		cancel()
		return nil, err
	}

	if endpoint != "" {
		bundle.tracerProvider, err = setupHTTPTracing(ctx, endpoint, res)
		if err != nil {
			return fail(err)
		}
		otel.SetTracerProvider(bundle.tracerProvider)
		logger.Info("telemetry.tracing.enabled", "endpoint", endpoint)
	}

	if metricsListen != "" {
		bundle.registry = prometheus.NewRegistry()
		exporterOpts := []otelprometheus.Option{otelprometheus.WithRegisterer(bundle.registry)}
		if cfg.ProfilingMetrics {
			exporterOpts = append(exporterOpts, otelprometheus.WithProducer(otelruntime.NewProducer()))
		}
		exporter, err := otelprometheus.New(exporterOpts...)
		if err != nil {
			return fail(fmt.Errorf("telemetry: start prometheus exporter: %w", err))
		}
		bundle.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(bundle.meterProvider)
		if cfg.ProfilingMetrics {
			if err := startRuntimeMetricsWithProvider(bundle.meterProvider); err != nil {
				return fail(err)
			}
			logger.Info("profiling.metrics.enabled")
		}
		handler := promhttp.HandlerFor(bundle.registry, promhttp.HandlerOpts{})
		bundle.metricsServer, bundle.metricsLn, err = startMetricsServer(metricsListen, handler, logger)
		if err != nil {
			return fail(err)
		}
		logger.Info("telemetry.metrics.enabled", "listen", metricsListen)
	} else if cfg.ProfilingMetrics {
		return fail(fmt.Errorf("telemetry: profiling metrics require metrics listen address"))
	}

	if pprofListen != "" {
		bundle.pprofServer, bundle.pprofLn, err = startPprofServer(pprofListen, logger)
		if err != nil {
			return fail(err)
		}
		logger.Info("profiling.pprof.enabled", "listen", pprofListen)
	}

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	otel.SetErrorHandler(otelErrorHandler{logger: logger})

	return bundle, nil
}

func setupHTTPTracing(ctx context.Context, raw string, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	endpoint, path, insecureTransport, err := resolveOTLPTarget(raw)
	if err != nil {
		return nil, err
	}
	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithTimeout(10 * time.Second),
	}
	if insecureTransport {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	if path != "" && path != "/" {
		traceOpts = append(traceOpts, otlptracehttp.WithURLPath(path))
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: start trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1.0))),
		sdktrace.WithBatcher(traceExporter),
	), nil
}

func startMetricsServer(addr string, handler http.Handler, logger pslog.Logger) (*http.Server, net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Handler: mux,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if logger != nil {
				logger.Warn("telemetry.metrics.serve_error", "error", err)
			}
		}
	}()
	return srv, ln, nil
}

func startPprofServer(addr string, logger pslog.Logger) (*http.Server, net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("profiling: pprof listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	srv := &http.Server{
		Handler: mux,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if logger != nil {
				logger.Warn("profiling.pprof.serve_error", "error", err)
			}
		}
	}()
	return srv, ln, nil
}

func startRuntimeMetricsWithProvider(provider metric.MeterProvider) error {
	if provider == nil {
		return fmt.Errorf("profiling: meter provider unavailable")
	}
	runtimeMetricsOnce.Do(func() {
		runtimeMetricsErr = otelruntime.Start(otelruntime.WithMeterProvider(provider))
	})
	return runtimeMetricsErr
}

// resolveOTLPTarget accepts host, host:port, or http(s)://host[:port][/path]
// and normalizes it for the OTLP/HTTP exporter.
func resolveOTLPTarget(raw string) (endpoint, path string, insecureTransport bool, err error) {
	if raw == "" {
		return "", "", false, fmt.Errorf("telemetry: empty endpoint")
	}
	if !strings.Contains(raw, "://") {
		endpoint = raw
		if !strings.Contains(endpoint, ":") {
			endpoint = net.JoinHostPort(endpoint, "4318")
		}
		return endpoint, "", true, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false, fmt.Errorf("telemetry: parse endpoint: %w", err)
	}
	host := u.Host
	if host == "" {
		host = u.Path
		u.Path = ""
	}
	endpoint = host
	path = strings.TrimSuffix(u.Path, "/")
	switch strings.ToLower(u.Scheme) {
	case "http":
		insecureTransport = true
	case "https":
		insecureTransport = false
	default:
		return "", "", false, fmt.Errorf("telemetry: unknown scheme %q (use http or https)", u.Scheme)
	}
	if endpoint == "" {
		return "", "", false, fmt.Errorf("telemetry: missing endpoint host")
	}
	if !strings.Contains(endpoint, ":") {
		endpoint = net.JoinHostPort(endpoint, "4318")
	}
	return endpoint, path, insecureTransport, nil
}
