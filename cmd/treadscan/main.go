package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/treadscan/treadscan/config"
	"github.com/treadscan/treadscan/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	cfgPtr := &cfg

	logStartupInfo(ctx, logger, cfgPtr)

	if err = bootstrap.ValidateServiceConfig(cfgPtr); err != nil {
		return err
	}

	redisClient, err := connectRedisIfConfigured(ctx, cfgPtr, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfgPtr,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   cfgPtr,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting treadscan service",
		"compute_base_url", cfg.Compute.BaseURL,
		"work_dir", cfg.Compute.WorkDir,
		"enabled_services", bootstrap.GetEnabledServices(cfg))
}

// connectRedisIfConfigured connects the snapshot artifact store when Redis
// settings are present. Without them the process falls back to in-memory
// artifacts, which is fine for development.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectRedisIfConfigured(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (redis.UniversalClient, error) {
	if !cfg.Snapshots.Redis.IsConfigured() {
		logger.InfoContext(ctx, "redis not configured, using in-memory artifact store")
		return nil, nil
	}

	return bootstrap.ConnectRedis(bootstrap.RedisConnConfig{
		RedisConfig: cfg.Snapshots.Redis,
		Logger:      logger,
	})
}
