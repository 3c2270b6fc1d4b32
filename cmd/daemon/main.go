// Command sptrsv-simd is the daemon entry point: it loads the configured
// DAG job sources, drains them through the rewrite -> compile -> schedule
// pipeline, and persists each run's outcome until told to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sptrsv/sptrsv-sim/internal/pipeline"
	"github.com/sptrsv/sptrsv-sim/internal/repository"
	"github.com/sptrsv/sptrsv-sim/internal/scheduler/source"
	"github.com/sptrsv/sptrsv-sim/internal/storage"
	"github.com/sptrsv/sptrsv-sim/pkg/config"
	"github.com/sptrsv/sptrsv-sim/pkg/telemetry"
	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

var (
	configPath = flag.String("c", "", "Path to configuration file")
	version    = flag.Bool("v", false, "Print version and exit")
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("sptrsv-simd version %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	logger := utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	utils.SetGlobalLogger(logger)

	logger.Info("Starting sptrsv-sim daemon...")
	logger.Info("Version: %s, Commit: %s, Built: %s", Version, GitCommit, BuildTime)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Info("Configuration loaded successfully")
	logger.Info("Scheduler: pe_limit=%d nfu_limit=%d max_lc=%d", cfg.Scheduler.PELimit, cfg.Scheduler.NFULimit, cfg.Scheduler.MaxLC)
	logger.Info("Database: %s://%s:%d/%s", cfg.Database.Type, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	logger.Info("Storage: %s", cfg.Storage.Type)

	if cfg.Log.OutputPath != "" {
		fileLogger, err := utils.NewFileLogger(utils.ParseLogLevel(cfg.Log.Level), cfg.Log.OutputPath)
		if err != nil {
			logger.Error("Failed to open configured log file %s, keeping stdout logger: %v", cfg.Log.OutputPath, err)
		} else {
			logger = fileLogger
			utils.SetGlobalLogger(logger)
			logger.Info("Switched logging to %s at level %s", cfg.Log.OutputPath, cfg.Log.Level)
		}
	} else if cfg.Log.Level != "" {
		logger.SetLevel(utils.ParseLogLevel(cfg.Log.Level))
	}

	if err := cfg.EnsureDataDir(); err != nil {
		logger.Error("Failed to create data directory: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applyTelemetryConfig(cfg.Telemetry)
	shutdownTelemetry, err := telemetry.Init(ctx)
	if err != nil {
		logger.Warn("Failed to initialize telemetry: %v", err)
	} else {
		defer shutdownTelemetry(ctx)
	}

	gormDB, err := repository.NewGormDB(&repository.DBConfig{
		Type:     cfg.Database.Type,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(gormDB, cfg.Database.Type)
	if err := repos.AutoMigrate(); err != nil {
		logger.Error("Failed to migrate database: %v", err)
		os.Exit(1)
	}
	defer repos.Close()

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize storage: %v", err)
		os.Exit(1)
	}

	sources, err := buildSources(cfg.Sources, repos.Run, logger)
	if err != nil {
		logger.Error("Failed to build job sources: %v", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		logger.Warn("No job sources configured; the daemon will idle until stopped")
	}

	agg := source.NewAggregator(sources, 100, logger)
	if err := agg.Start(ctx); err != nil {
		logger.Error("Failed to start job sources: %v", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	deps := pipeline.Deps{Repo: repos.Run, Store: store, Logger: logger}
	opts := pipeline.DefaultOptions()
	opts.Scheduler.PELimit = cfg.Scheduler.PELimit
	opts.Scheduler.NFULimit = cfg.Scheduler.NFULimit
	opts.Scheduler.MaxLC = cfg.Scheduler.MaxLC
	opts.Rewrite.Threshold = cfg.Rewrite.Threshold
	opts.Rewrite.ChunkSize = cfg.Rewrite.ChunkSize

	batchDone := make(chan error, 1)
	go func() {
		batchDone <- pipeline.Batch(ctx, agg, deps, opts)
	}()

	logger.Info("Daemon started, draining %d job source(s)...", len(sources))

	select {
	case sig := <-sigChan:
		logger.Info("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	case err := <-batchDone:
		if err != nil {
			logger.Error("Job batch loop exited: %v", err)
		}
	}

	if err := agg.Stop(); err != nil {
		logger.Error("Error stopping job sources: %v", err)
	}

	logger.Info("Daemon stopped")
}

// applyTelemetryConfig bridges the daemon's own config.TelemetryConfig (loaded
// through viper from the config file) into the OTEL_*
// environment variables telemetry.LoadFromEnv actually reads. Existing OTEL_*
// values always win, so an operator can still override via the environment
// without touching the config file.
func applyTelemetryConfig(tc config.TelemetryConfig) {
	setIfUnset := func(key, value string) {
		if value != "" {
			if _, ok := os.LookupEnv(key); !ok {
				os.Setenv(key, value)
			}
		}
	}

	if tc.Enabled {
		setIfUnset("OTEL_ENABLED", "true")
	}
	setIfUnset("OTEL_SERVICE_NAME", tc.ServiceName)
	setIfUnset("OTEL_EXPORTER_OTLP_ENDPOINT", tc.Endpoint)

	if tc.SampleRatio > 0 && tc.SampleRatio < 1.0 {
		setIfUnset("OTEL_TRACES_SAMPLER", "traceidratio")
		setIfUnset("OTEL_TRACES_SAMPLER_ARG", strconv.FormatFloat(tc.SampleRatio, 'g', -1, 64))
	}
}

// buildSources converts the configured sources into DAGSource instances,
// wiring the database source's repository since source.CreateSource cannot
// see the already-connected RunRepository.
func buildSources(configs []config.SourceConfig, runRepo repository.RunRepository, logger utils.Logger) ([]source.DAGSource, error) {
	var out []source.DAGSource

	for _, sc := range configs {
		if !sc.Enabled {
			continue
		}

		srcCfg := &source.SourceConfig{
			Type:    source.SourceType(sc.Type),
			Name:    sc.Name,
			Enabled: sc.Enabled,
			Options: sc.Options,
		}

		src, err := source.CreateSource(srcCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %q: %w", sc.Name, err)
		}

		if dbSrc, ok := src.(*source.DatabaseSource); ok {
			dbSrc.SetRepository(runRepo)
		}

		out = append(out, src)
	}

	return out, nil
}
