package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"pkt.systems/pslog"
	"pkt.systems/shelfd"
	"pkt.systems/shelfd/internal/svcfields"
)

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("SHELFD_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "shelfd")
	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	if _, err := cmd.ExecuteContextC(ctx); err != nil {
		if err != context.Canceled {
			svcfields.WithSubsystem(baseLogger, "cli.root").Error("command failed", "error", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	var cfg shelfd.Config

	cmd := &cobra.Command{
		Use:           "shelfd",
		Short:         "shelfd is a small catalog server with a concurrency-safe author/book write path over pluggable storage",
		SilenceErrors: true,
		Example: `
  # In-memory storage (tests/dev only)
  shelfd --store mem://

  # Disk backend rooted at /var/lib/shelfd-data
  shelfd --store disk:///var/lib/shelfd-data

  # Prometheus metrics on :9192 and OTLP tracing
  shelfd --store mem:// --metrics-listen :9192 --otlp-endpoint http://localhost:4318
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := baseLogger
			cliLogger := svcfields.WithSubsystem(logger, "cli.root")
			ctx := cmd.Context()
			cmd.SilenceUsage = true

			configFile, err := loadConfigFile()
			if err != nil {
				return err
			}
			if configFile != "" {
				cliLogger.Info("loaded config file", "path", configFile)
			}

			if err := bindConfig(&cfg); err != nil {
				return err
			}
			logLevel := strings.TrimSpace(viper.GetString("log-level"))
			if logLevel == "" {
				logLevel = shelfd.DefaultLogLevel
			}
			if level, ok := pslog.ParseLevel(logLevel); ok {
				logger = logger.LogLevel(level)
				cliLogger = svcfields.WithSubsystem(logger, "cli.root")
			}

			server, err := shelfd.NewServer(cfg, shelfd.WithLogger(logger))
			if err != nil {
				return err
			}

			shutdownTimeout := cfg.ShutdownTimeout
			if shutdownTimeout <= 0 {
				shutdownTimeout = shelfd.DefaultShutdownTimeout
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					cliLogger.Error("shutdown failed", "error", err)
				}
			}()

			err = server.Start()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	persistentFlags := cmd.PersistentFlags()
	persistentFlags.StringP("config", "c", "", "path to YAML config file")

	flags := cmd.Flags()
	flags.String("listen", shelfd.DefaultListen, "listen address")
	flags.String("store", "", "storage backend URL (mem://, disk:///path)")
	flags.String("log-level", shelfd.DefaultLogLevel, "minimum log level (trace, debug, info, warn, error)")
	flags.String("json-max", humanizeBytes(shelfd.DefaultJSONMaxBytes), "maximum JSON payload size")
	flags.Duration("shutdown-timeout", shelfd.DefaultShutdownTimeout, "overall graceful shutdown timeout")
	flags.Int("retry-attempts", shelfd.DefaultRetryAttempts, "maximum storage retry attempts")
	flags.Duration("retry-base-delay", shelfd.DefaultRetryBaseDelay, "initial backoff for storage retries")
	flags.Duration("retry-max-delay", shelfd.DefaultRetryMaxDelay, "maximum backoff delay for storage retries")
	flags.String("metrics-listen", "", "metrics listen address (Prometheus scrape endpoint; empty disables)")
	flags.String("pprof-listen", "", "pprof listen address (debug/pprof endpoints; empty disables)")
	flags.Bool("enable-profiling-metrics", false, "enable Go runtime profiling metrics on the Prometheus endpoint")
	flags.String("otlp-endpoint", "", "OTLP collector endpoint (e.g. http://localhost:4318)")

	bindFlag := func(name string) {
		flag := flags.Lookup(name)
		if flag == nil {
			flag = persistentFlags.Lookup(name)
		}
		if flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := viper.BindPFlag(name, flag); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("SHELFD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	names := []string{
		"config",
		"listen", "store", "log-level", "json-max", "shutdown-timeout",
		"retry-attempts", "retry-base-delay", "retry-max-delay",
		"metrics-listen", "pprof-listen", "enable-profiling-metrics", "otlp-endpoint",
	}
	for _, name := range names {
		bindFlag(name)
	}

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func bindConfig(cfg *shelfd.Config) error {
	cfg.Listen = viper.GetString("listen")
	cfg.Store = viper.GetString("store")
	cfg.LogLevel = viper.GetString("log-level")
	if maxBytes := viper.GetString("json-max"); maxBytes != "" {
		size, err := humanize.ParseBytes(maxBytes)
		if err != nil {
			return fmt.Errorf("parse json-max: %w", err)
		}
		cfg.JSONMaxBytes = int64(size)
	}
	cfg.ShutdownTimeout = viper.GetDuration("shutdown-timeout")
	cfg.RetryAttempts = viper.GetInt("retry-attempts")
	cfg.RetryBaseDelay = viper.GetDuration("retry-base-delay")
	cfg.RetryMaxDelay = viper.GetDuration("retry-max-delay")
	cfg.MetricsListen = viper.GetString("metrics-listen")
	cfg.PprofListen = viper.GetString("pprof-listen")
	cfg.ProfilingMetrics = viper.GetBool("enable-profiling-metrics")
	cfg.OTLPEndpoint = viper.GetString("otlp-endpoint")
	return nil
}

func loadConfigFile() (string, error) {
	cfgPath := strings.TrimSpace(viper.GetString("config"))
	if cfgPath == "" {
		return "", nil
	}
	expanded, err := expandPath(cfgPath)
	if err != nil {
		return "", fmt.Errorf("expand config path %q: %w", cfgPath, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("config file %q: %w", expanded, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config file %q is a directory", expanded)
	}
	viper.SetConfigFile(expanded)
	if err := viper.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config file %q: %w", expanded, err)
	}
	return expanded, nil
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if len(p) == 1 {
			p = home
		} else if p[1] == '/' || p[1] == '\\' {
			p = filepath.Join(home, p[2:])
		}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return abs, nil
}

func humanizeBytes(n int64) string {
	return strings.ReplaceAll(humanize.Bytes(uint64(n)), " ", "")
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
