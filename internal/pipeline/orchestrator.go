package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/andresuchdata/stockopt/backend-go/internal/loader"
)

// Orchestrator runs every scenario found below an input root.
type Orchestrator struct {
	cfg   Config
	makeW func(opt Optimizer, cfg Config) *Worker
	opt   Optimizer
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(opt Optimizer, cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		makeW: NewWorker,
		opt:   opt,
	}
}

// Discover returns one job per immediate sub-directory of root that holds a
// forecast file, ordered by directory name.
func Discover(root string, files loader.Files) ([]*Job, error) {
	forecast := files.Forecast
	if forecast == "" {
		forecast = loader.ForecastFile
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read input root: %w", err)
	}

	var jobs []*Job
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, forecast)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		jobs = append(jobs, &Job{Name: e.Name(), Dir: dir, Status: JobQueued})
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs, nil
}

// Run discovers the scenarios below root and processes them as one batch.
func (o *Orchestrator) Run(ctx context.Context, root string) ([]*Job, Summary, error) {
	jobs, err := Discover(root, o.cfg.Files)
	if err != nil {
		return nil, Summary{}, err
	}
	if len(jobs) == 0 {
		return nil, Summary{}, fmt.Errorf("no scenario directories with %s below %s", forecastName(o.cfg.Files), root)
	}

	summary, err := o.makeW(o.opt, o.cfg).ProcessBatch(ctx, jobs)
	return jobs, summary, err
}

func forecastName(f loader.Files) string {
	if f.Forecast != "" {
		return f.Forecast
	}
	return loader.ForecastFile
}
