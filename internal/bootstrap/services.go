package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/treadscan/treadscan/config"
	"github.com/treadscan/treadscan/internal/compute"
	"github.com/treadscan/treadscan/internal/core"
	"github.com/treadscan/treadscan/internal/data"
	"github.com/treadscan/treadscan/internal/events"
	"github.com/treadscan/treadscan/internal/observability/statsd"
	"github.com/treadscan/treadscan/internal/pipeline"
	"github.com/treadscan/treadscan/internal/worker"
)

// shutdownWaitTimeout bounds how long shutdown waits for the worker to
// finish the in-flight job.
const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Registry  *core.JobRegistry
	Broker    *events.Broker
	Artifacts core.ArtifactRepository
	Snapshots *core.SnapshotService
	Compute   *compute.Client
	Pipeline  *pipeline.Runner
	Worker    *worker.Worker

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig

	// RedisClient backs the artifact store when set; a process-local
	// store is used otherwise.
	RedisClient redis.UniversalClient

	Logger *slog.Logger
}

// buildObservability configures the metrics sink.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "treadscan",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildArtifactRepository picks the artifact store backing snapshot images.
//
//nolint:ireturn // returning the port lets the redis and in-memory stores swap freely.
func buildArtifactRepository(redisClient redis.UniversalClient, logger *slog.Logger) core.ArtifactRepository {
	if redisClient != nil {
		return data.NewRedisArtifactRepo(redisClient)
	}
	logger.Warn("no redis configured, snapshot artifacts are held in process memory")
	return data.NewMemoryArtifactRepo(data.MemoryArtifactRepoOptions{})
}

// NewServices initializes all application services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	observability := buildObservability(logger, cfg.Observability)
	artifacts := buildArtifactRepository(deps.RedisClient, logger)

	registry := core.NewJobRegistry(core.JobRegistryOptions{})
	broker := events.NewBroker(events.BrokerOptions{})

	computeClient, err := compute.NewClient(compute.ClientOptions{
		BaseURL:        cfg.Compute.BaseURL,
		PollInterval:   cfg.Compute.PollInterval,
		RequestTimeout: cfg.Compute.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build compute client: %w", err)
	}

	pipelineRunner := pipeline.NewRunner(pipeline.RunnerOptions{
		Compute:       computeClient,
		ComputeConfig: cfg.Compute,
		Logger:        logger,
	})

	snapshots := core.NewSnapshotService(core.SnapshotServiceOptions{
		Artifacts: artifacts,
		Registry:  registry,
		TTL:       cfg.Snapshots.TTL,
	})

	var sink statsd.Sink
	if observability.MetricsSink != nil {
		sink = observability.MetricsSink
	}

	pipelineWorker, err := worker.NewWorker(worker.Options{
		Registry:      registry,
		Pipeline:      pipelineRunner,
		Publisher:     broker,
		Artifacts:     artifacts,
		QueueCapacity: cfg.Worker.QueueCapacity,
		Metrics:       sink,
		Logger:        logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build worker: %w", err)
	}

	return ServiceContainer{
		Registry:      registry,
		Broker:        broker,
		Artifacts:     artifacts,
		Snapshots:     snapshots,
		Compute:       computeClient,
		Pipeline:      pipelineRunner,
		Worker:        pipelineWorker,
		Observability: observability,
	}, nil
}

// ServiceOrchestrationConfig groups dependencies for running services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var httpServer *http.Server
	if cfg.Config.IsHTTPServerEnabled() {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	group, groupCtx := errgroup.WithContext(serviceCtx)
	if cfg.Config.IsWorkerEnabled() {
		group.Go(func() error {
			return cfg.Services.Worker.Run(groupCtx)
		})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.Info("shutting down services...")

	return gracefulStop(stopConfig{
		cancel:     cancel,
		httpServer: httpServer,
		group:      group,
		services:   cfg.Services,
		logger:     logger,
	})
}

type stopConfig struct {
	cancel     context.CancelFunc
	httpServer *http.Server
	group      *errgroup.Group
	services   ServiceContainer
	logger     *slog.Logger
}

// gracefulStop stops the HTTP surface first so no new jobs arrive, then
// lets the worker finish or abandon the job in flight.
func gracefulStop(cfg stopConfig) error {
	// Closing the broker first ends open SSE streams; otherwise the HTTP
	// shutdown would wait out its whole timeout on them.
	cfg.services.Broker.Close()

	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			cfg.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	cfg.cancel()

	workerDone := make(chan error, 1)
	go func() { workerDone <- cfg.group.Wait() }()
	select {
	case err := <-workerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			cfg.logger.Error("worker stopped with error", "error", err)
		}
	case <-time.After(shutdownWaitTimeout):
		cfg.logger.Warn("worker did not drain in time, abandoning in-flight job")
	}

	if cfg.services.Observability.MetricsSink != nil {
		if err := cfg.services.Observability.MetricsSink.Close(); err != nil {
			cfg.logger.Error("close metrics sink failed", "error", err)
		}
	}

	cfg.logger.Info("services stopped")
	return nil
}
