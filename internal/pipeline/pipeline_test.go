package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/loader"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
	"github.com/andresuchdata/stockopt/backend-go/internal/report"
	"github.com/andresuchdata/stockopt/backend-go/internal/service"
	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
)

const forecastCSV = "store_id,product_id,day+1,day+2\n0,1,5,5\n"

type fakeOptimizer struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string][]error
}

func newFakeOptimizer() *fakeOptimizer {
	return &fakeOptimizer{calls: make(map[string]int), failures: make(map[string][]error)}
}

func (f *fakeOptimizer) Optimize(_ context.Context, in domain.ScenarioInput) (*service.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[in.Name]++
	if errs := f.failures[in.Name]; len(errs) > 0 {
		f.failures[in.Name] = errs[1:]
		return nil, errs[0]
	}
	return &service.Outcome{
		Run:   &domain.ScenarioRun{ID: "run-" + in.Name, Name: in.Name, Status: domain.RunStatusOptimal},
		Files: []report.File{{Name: report.SummaryFile, ContentType: "application/json", Data: []byte("{}\n")}},
	}, nil
}

func writeScenario(t *testing.T, root, name, forecast string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, loader.ForecastFile), []byte(forecast), 0o644))
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root, "west", forecastCSV)
	writeScenario(t, root, "east", forecastCSV)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	jobs, err := Discover(root, loader.Files{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "east", jobs[0].Name)
	assert.Equal(t, "west", jobs[1].Name)
	assert.Equal(t, JobQueued, jobs[0].Status)
}

func TestProcessBatchContinuesPastFailures(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()
	writeScenario(t, root, "good", forecastCSV)
	writeScenario(t, root, "broken", "store_id,product_id\n0,1\n")
	writeScenario(t, root, "infeasible", forecastCSV)

	opt := newFakeOptimizer()
	opt.failures["infeasible"] = []error{&optimizer.SolveError{Status: solver.StatusInfeasible, Err: optimizer.ErrInfeasible}}

	cfg := DefaultConfig(out)
	cfg.WorkerCount = 2
	o := NewOrchestrator(opt, cfg)
	o.makeW = func(opt Optimizer, cfg Config) *Worker {
		w := NewWorker(opt, cfg)
		w.sleep = noSleep
		return w
	}

	jobs, summary, err := o.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Completed: 1, Failed: 2, Duration: summary.Duration}, summary)

	byName := make(map[string]*Job)
	for _, j := range jobs {
		byName[j.Name] = j
	}

	assert.Equal(t, JobFailed, byName["broken"].Status)
	assert.ErrorIs(t, byName["broken"].Err, loader.ErrInvalidInput)
	assert.Equal(t, 1, byName["broken"].Attempts)

	assert.Equal(t, JobFailed, byName["infeasible"].Status)
	assert.Equal(t, domain.RunStatusInfeasible, byName["infeasible"].RunStatus)
	assert.Equal(t, 1, byName["infeasible"].Attempts)

	assert.Equal(t, JobCompleted, byName["good"].Status)
	assert.Equal(t, "run-good", byName["good"].RunID)
	assert.FileExists(t, filepath.Join(out, "good", report.SummaryFile))
}

func TestProcessJobRetriesTransientErrors(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root, "flaky", forecastCSV)

	opt := newFakeOptimizer()
	opt.failures["flaky"] = []error{errors.New("connection reset"), errors.New("connection reset")}

	var slept []time.Duration
	w := NewWorker(opt, Config{WorkerCount: 1, RetryAttempts: 3, RetryBackoff: time.Second})
	w.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	job := &Job{Name: "flaky", Dir: filepath.Join(root, "flaky")}
	require.NoError(t, w.processJob(context.Background(), job))
	assert.Equal(t, JobCompleted, job.Status)
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, slept)
	assert.Equal(t, 3, opt.calls["flaky"])
}

func TestProcessJobGivesUpAfterRetryAttempts(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root, "down", forecastCSV)

	opt := newFakeOptimizer()
	boom := errors.New("storage unavailable")
	opt.failures["down"] = []error{boom, boom, boom}

	w := NewWorker(opt, Config{RetryAttempts: 2})
	w.sleep = noSleep

	job := &Job{Name: "down", Dir: filepath.Join(root, "down")}
	err := w.processJob(context.Background(), job)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, JobFailed, job.Status)
	assert.Equal(t, 2, job.Attempts)
}

func TestRunWithoutScenarios(t *testing.T) {
	_, _, err := NewOrchestrator(newFakeOptimizer(), DefaultConfig("")).Run(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no scenario directories")
}
