// Package main is the entry point for the DEX quote aggregator service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fd1az/dex-aggregator/business/quoting"
	"github.com/fd1az/dex-aggregator/business/quoting/infra/rest"
	"github.com/fd1az/dex-aggregator/internal/apm"
	"github.com/fd1az/dex-aggregator/internal/config"
	"github.com/fd1az/dex-aggregator/internal/health"
	"github.com/fd1az/dex-aggregator/internal/metrics"
	"github.com/fd1az/dex-aggregator/internal/token"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dex-aggregator %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting dex-aggregator",
		zap.String("version", version),
		zap.String("environment", cfg.App.Environment),
	)

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}

		traceProvider = apm.NewTraceProvider(
			apm.WithProvider(apm.ZipkinProvider, cfg.Telemetry.OTLPEndpoint, log),
		)
		log.Info("tracing initialized", zap.String("endpoint", cfg.Telemetry.OTLPEndpoint))

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		// Start Prometheus metrics server in background
		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info("prometheus metrics server started", zap.Int("port", port))
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Connect to the Ethereum node
	client, err := ethclient.DialContext(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to ethereum node: %w", err)
	}
	defer client.Close()

	// Start health check server on port 8081
	healthServer := health.NewServer(8081, version)
	healthServer.RegisterCheck("ethereum", func(ctx context.Context) (bool, string) {
		if _, err := client.ChainID(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})
	if err := healthServer.Start(); err != nil {
		log.Warn("failed to start health server", zap.Error(err))
	} else {
		log.Info("health server started", zap.Int("port", 8081))
	}
	defer healthServer.Stop(ctx)

	// Build the quoting context: chain reader, adapters, aggregator
	registry := token.DefaultRegistry()
	aggregator, err := quoting.New(cfg, client, registry, log)
	if err != nil {
		return fmt.Errorf("failed to build aggregator: %w", err)
	}

	venues := make([]string, 0, len(aggregator.Adapters()))
	for _, a := range aggregator.Adapters() {
		venues = append(venues, fmt.Sprintf("%s %s", a.Name(), a.Version()))
	}
	log.Info("venues configured", zap.Strings("venues", venues))

	// REST surface
	server := rest.NewServer(rest.Config{
		Port:               cfg.Server.Port,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, aggregator, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.App.Environment == "development" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.App.LogLevel)
	if err == nil {
		zapCfg.Level = level
	}

	return zapCfg.Build()
}
