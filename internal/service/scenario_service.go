package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockopt/backend-go/internal/cache"
	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/loader"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
	"github.com/andresuchdata/stockopt/backend-go/internal/report"
	"github.com/andresuchdata/stockopt/backend-go/internal/repository"
	"github.com/andresuchdata/stockopt/backend-go/internal/storage"
)

// ErrStorageDisabled is returned when an operation needs object storage but
// none is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

const maxParallelUploads = 4

// Outcome is what one Optimize call produced.
type Outcome struct {
	Run    *domain.ScenarioRun
	Result *optimizer.Result
	Files  []report.File
	Cached bool
}

type ScenarioService struct {
	engine       *optimizer.Engine
	backend      string
	repo         repository.ScenarioRepository
	cache        cache.ScenarioCache
	storage      storage.ObjectStorage
	outputPrefix string

	now   func() time.Time
	newID func() string
}

// Option customizes a ScenarioService.
type Option func(*ScenarioService)

// WithStorage uploads every run's files below prefix/<run id>/.
func WithStorage(s storage.ObjectStorage, prefix string) Option {
	return func(svc *ScenarioService) {
		svc.storage = s
		svc.outputPrefix = prefix
	}
}

func WithCache(c cache.ScenarioCache) Option {
	return func(svc *ScenarioService) {
		if c != nil {
			svc.cache = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *ScenarioService) { svc.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(svc *ScenarioService) { svc.newID = newID }
}

func NewScenarioService(engine *optimizer.Engine, backend string, repo repository.ScenarioRepository, opts ...Option) *ScenarioService {
	if repo == nil {
		repo = repository.NewMemoryScenarioRepository()
	}
	svc := &ScenarioService{
		engine:  engine,
		backend: backend,
		repo:    repo,
		cache:   cache.NewNoopScenarioCache(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Optimize runs a scenario end to end. Identical inputs under identical
// parameters are served from the cache. Solve failures are recorded as runs
// without a report before the error is returned.
func (s *ScenarioService) Optimize(ctx context.Context, in domain.ScenarioInput) (*Outcome, error) {
	fingerprint, err := cache.Fingerprint(in, s.engine.Params(), s.backend)
	if err != nil {
		return nil, err
	}

	if run, ok, err := s.cache.GetRun(ctx, fingerprint); err == nil && ok {
		log.Info().Str("run_id", run.ID).Str("scenario", run.Name).Msg("scenario: served from cache")
		files, err := s.reportFiles(run.Report, nil)
		if err != nil {
			return nil, err
		}
		return &Outcome{Run: run, Files: files, Cached: true}, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("scenario: cache get run failed")
	}

	res, err := s.engine.Optimize(ctx, in)
	if err != nil {
		var solveErr *optimizer.SolveError
		if errors.As(err, &solveErr) {
			s.recordFailure(ctx, in.Name, fingerprint, solveErr)
		}
		return nil, err
	}

	rep := report.Build(res, s.engine.Params())
	report.LogCostBreakdown(log.Logger, res)

	run := &domain.ScenarioRun{
		ID:        s.newID(),
		Name:      in.Name,
		Status:    optimizer.RunStatus(res.Status),
		Optimal:   res.Optimal,
		InputHash: fingerprint,
		TotalCost: report.Currency(res.Costs.Total()),
		Runtime:   res.Runtime,
		CreatedAt: s.now().UTC(),
		Report:    rep,
	}

	files, err := s.reportFiles(rep, res)
	if err != nil {
		return nil, err
	}

	if s.storage != nil {
		keys, err := s.upload(ctx, run.ID, files)
		if err != nil {
			return nil, err
		}
		run.StorageKeys = keys
	}

	if err := s.repo.SaveRun(ctx, run, res.Transfers, res.Manufacturing); err != nil {
		return nil, fmt.Errorf("save scenario run: %w", err)
	}

	if err := s.cache.SetRun(ctx, fingerprint, run); err != nil {
		log.Warn().Err(err).Msg("scenario: cache set run failed")
	}

	return &Outcome{Run: run, Result: res, Files: files}, nil
}

// LoadFromStorage reads the input CSVs stored below prefix.
func (s *ScenarioService) LoadFromStorage(ctx context.Context, name, prefix string, files loader.Files) (domain.ScenarioInput, error) {
	if s.storage == nil {
		return domain.ScenarioInput{}, ErrStorageDisabled
	}
	return loader.Load(ctx, loader.ObjectSource{Storage: s.storage, Prefix: prefix}, name, files)
}

func (s *ScenarioService) GetRun(ctx context.Context, id string) (*domain.ScenarioRun, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *ScenarioService) ListRuns(ctx context.Context, filter domain.ScenarioRunFilter) ([]domain.ScenarioRun, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.ListRuns(ctx, filter)
}

// FlushCache drops every cached run so the next Optimize call solves again.
// Call it after a migration or a solver upgrade.
func (s *ScenarioService) FlushCache(ctx context.Context) (int64, error) {
	n, err := s.cache.InvalidateAll(ctx)
	if err != nil {
		return n, fmt.Errorf("flush scenario cache: %w", err)
	}
	log.Info().Int64("keys", n).Msg("scenario: cache flushed")
	return n, nil
}

func (s *ScenarioService) reportFiles(rep *domain.ScenarioReport, res *optimizer.Result) ([]report.File, error) {
	if rep == nil {
		return nil, nil
	}
	files, err := report.RenderJSON(rep)
	if err != nil {
		return nil, err
	}
	if res != nil {
		csvFiles, err := report.RenderCSV(res)
		if err != nil {
			return nil, err
		}
		files = append(files, csvFiles...)
	}
	return files, nil
}

func (s *ScenarioService) upload(ctx context.Context, runID string, files []report.File) ([]string, error) {
	keys := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, f := range files {
		key := path.Join(s.outputPrefix, runID, f.Name)
		keys[i] = key
		g.Go(func() error {
			if err := s.storage.UploadObject(gctx, key, f.Data, f.ContentType); err != nil {
				return fmt.Errorf("upload %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info().Str("run_id", runID).Int("files", len(keys)).Msg("scenario: outputs uploaded")
	return keys, nil
}

func (s *ScenarioService) recordFailure(ctx context.Context, name, fingerprint string, solveErr *optimizer.SolveError) {
	run := &domain.ScenarioRun{
		ID:        s.newID(),
		Name:      name,
		Status:    optimizer.RunStatus(solveErr.Status),
		InputHash: fingerprint,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.SaveRun(ctx, run, nil, nil); err != nil {
		log.Warn().Err(err).Str("scenario", name).Msg("scenario: failed to record unsolved run")
	}
}
