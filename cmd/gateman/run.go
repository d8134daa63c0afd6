package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/sschakraborty/gateman-go/internal/acceptor"
	"github.com/sschakraborty/gateman-go/internal/configmgr"
	"github.com/sschakraborty/gateman-go/internal/definitions"
	"github.com/sschakraborty/gateman-go/internal/dispatch"
	"github.com/sschakraborty/gateman-go/internal/forwarder"
	"github.com/sschakraborty/gateman-go/internal/management"
	"github.com/sschakraborty/gateman-go/internal/procconfig"
	"github.com/sschakraborty/gateman-go/internal/ratelimit"
	"github.com/sschakraborty/gateman-go/internal/telemetry"
	"github.com/sschakraborty/gateman-go/internal/worker"
)

func run(configPath string) error {
	cfg, err := procconfig.Load(configPath)
	if err != nil {
		return err
	}

	initLogging(cfg.Log)
	slog.Info("starting gateman", "version", version,
		"plaintext_addr", cfg.Proxy.PlaintextAddr,
		"tls_enabled", cfg.Proxy.TLSEnabled,
		"management_addr", cfg.Management.Addr,
	)

	store, err := definitions.Load(cfg.Definitions.APIDefDir, cfg.Definitions.OriginDefDir)
	if err != nil {
		return fmt.Errorf("load definitions: %w", err)
	}
	slog.Info("definitions loaded", "apis", len(store.APIs()), "origins", len(store.Origins()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := ratelimit.New()
	manager := configmgr.New(store)
	// The engine only drains its mailbox once the runner below starts it, so
	// seeding runs alongside it instead of blocking on a full mailbox.
	go manager.SeedRateLimiter(ctx, engine)

	resolver := forwarder.NewResolver(ctx)
	fwd := forwarder.New(resolver)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promRegistry.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.NewMetrics(promRegistry)
	metricsHandler := promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})

	// OpenTelemetry tracing is opt-in: nil tracer disables the Tracing
	// middleware layer entirely.
	var tracer trace.Tracer
	var tracingShutdown func(context.Context) error
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			slog.Warn("tracing setup failed, continuing without tracing", "error", err)
		} else {
			tracingShutdown = shutdown
			tracer = telemetry.Tracer("gateman/proxy")
			slog.Info("opentelemetry tracing enabled",
				"endpoint", cfg.Telemetry.Tracing.Endpoint,
				"sample_rate", cfg.Telemetry.Tracing.SampleRate,
			)
		}
	}

	proxyHandler := dispatch.Chain(dispatch.New(manager, engine, fwd, metrics), metrics, tracer)

	workers := []worker.Worker{
		engine,
		&acceptor.Plaintext{Addr: cfg.Proxy.PlaintextAddr, Handler: proxyHandler},
		&acceptor.Plaintext{Addr: cfg.Management.Addr, Handler: management.New(metricsHandler)},
	}
	if cfg.Proxy.TLSEnabled {
		workers = append(workers, &acceptor.TLS{
			Addr:    cfg.Proxy.TLSAddr,
			Handler: proxyHandler,
			Certs:   acceptor.FileCertificateSource{CertFile: cfg.TLS.CertFile, KeyFile: cfg.TLS.KeyFile},
			Metrics: metrics,
		})
	}

	runner := worker.NewRunner(workers...)
	runErr := runner.Run(ctx)

	if tracingShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracingShutdown(shutdownCtx); err != nil {
			slog.Error("tracing shutdown error", "error", err)
		}
		cancel()
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	slog.Info("gateman stopped")
	return nil
}

// initLogging installs a slog handler at the configured level. JSON output
// is used when cfg.JSON is set, matching the teacher's resources/config
// split between process config and logging setup.
func initLogging(cfg procconfig.LogConfig) {
	level := parseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
