package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockopt/backend-go/internal/cache"
	"github.com/andresuchdata/stockopt/backend-go/internal/config"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
	"github.com/andresuchdata/stockopt/backend-go/internal/repository"
	"github.com/andresuchdata/stockopt/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockopt/backend-go/internal/service"
	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
	"github.com/andresuchdata/stockopt/backend-go/internal/storage"
)

// deps holds everything built from configuration. close releases it.
type deps struct {
	service *service.ScenarioService
	storage storage.ObjectStorage
	db      *postgres.DB
}

func (d *deps) close() {
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}

type wiring struct {
	persist bool
	cache   bool
	storage bool
}

// newEngine builds the engine for the configured backend. When the cbc
// binary cannot be found the dense simplex backend is used instead and
// cfg.Optimization.Solver is updated so cache fingerprints name the backend
// that actually ran.
func newEngine(cfg *config.Config) (*optimizer.Engine, error) {
	backend, err := solver.New(cfg.Optimization.Solver)
	if err != nil {
		return nil, err
	}
	if cbc, ok := backend.(*solver.CBC); ok {
		if cfg.Optimization.CBCPath != "" {
			cbc.Binary = cfg.Optimization.CBCPath
		}
		if _, err := cbc.LookPath(); err != nil {
			log.Warn().Err(err).
				Int("max_columns", solver.DefaultSimplexMaxColumns).
				Msg("cbc unavailable, falling back to the dense simplex backend")
			backend = solver.NewSimplex()
			cfg.Optimization.Solver = solver.SimplexName
		}
	}
	return optimizer.NewEngine(backend, cfg.Optimization.Params())
}

func buildDeps(ctx context.Context, cfg *config.Config, w wiring) (*deps, error) {
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}

	d := &deps{}
	var opts []service.Option

	var repo repository.ScenarioRepository = repository.NewMemoryScenarioRepository()
	if w.persist {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		d.db, err = postgres.NewDB(connectCtx, &cfg.Database, postgres.DriverPgx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := d.db.Migrate(ctx); err != nil {
			d.close()
			return nil, err
		}
		repo = postgres.NewScenarioRepository(d.db)
	}

	if w.cache {
		scenarioCache, err := cache.NewScenarioCache(cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Msg("redis cache unavailable, continuing without cache")
		} else {
			opts = append(opts, service.WithCache(scenarioCache))
		}
	}

	if w.storage {
		client, err := storage.NewMinioClient(ctx, storage.MinioConfig{
			Endpoint:     cfg.Storage.Endpoint,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			Bucket:       cfg.Storage.Bucket,
			Region:       cfg.Storage.Region,
			UseSSL:       cfg.Storage.UseSSL,
			CreateBucket: cfg.Storage.CreateBucket,
		})
		if err != nil {
			d.close()
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		d.storage = client
		opts = append(opts, service.WithStorage(client, cfg.Storage.OutputPrefix))
	}

	d.service = service.NewScenarioService(engine, cfg.Optimization.Solver, repo, opts...)
	return d, nil
}

// flushScenarioCache connects to the configured cache and drops every run.
// Unlike buildDeps, an unreachable cache is an error here.
func flushScenarioCache(ctx context.Context, cfg *config.Config) (int64, error) {
	if !cfg.Cache.Enabled {
		return 0, fmt.Errorf("scenario cache is disabled (set CACHE_ENABLED)")
	}
	scenarioCache, err := cache.NewScenarioCache(cfg.Cache)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to cache: %w", err)
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return 0, err
	}
	svc := service.NewScenarioService(engine, cfg.Optimization.Solver, repository.NewMemoryScenarioRepository(),
		service.WithCache(scenarioCache))
	return svc.FlushCache(ctx)
}
