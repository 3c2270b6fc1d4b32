package cmd

import (
	"fmt"

	"github.com/sptrsv/sptrsv-sim/internal/pipeline"
	"github.com/sptrsv/sptrsv-sim/internal/repository"
	"github.com/sptrsv/sptrsv-sim/internal/storage"
	"github.com/sptrsv/sptrsv-sim/pkg/config"
	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

// buildPipelineDeps wires a pipeline.Deps from a config file. When
// configPath is empty, it returns a Deps with no repository or storage
// backend, so the pipeline still runs but skips persistence and upload.
func buildPipelineDeps(configPath string, log utils.Logger) (pipeline.Deps, func(), error) {
	if configPath == "" {
		return pipeline.Deps{Logger: log}, nil, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return pipeline.Deps{}, nil, fmt.Errorf("failed to load config: %w", err)
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
		return pipeline.Deps{}, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos := repository.NewRepositories(gormDB, cfg.Database.Type)
	if err := repos.AutoMigrate(); err != nil {
		return pipeline.Deps{}, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		repos.Close()
		return pipeline.Deps{}, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps := pipeline.Deps{Repo: repos.Run, Store: store, Logger: log}
	closeFn := func() {
		if err := repos.Close(); err != nil {
			log.Warn("failed to close database: %v", err)
		}
	}
	return deps, closeFn, nil
}
