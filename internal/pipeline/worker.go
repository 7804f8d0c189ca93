package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockopt/backend-go/internal/loader"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
	"github.com/andresuchdata/stockopt/backend-go/internal/report"
)

// Worker solves scenario jobs with a fixed-size pool.
type Worker struct {
	optimizer Optimizer
	config    Config
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewWorker creates a new batch worker
func NewWorker(opt Optimizer, config Config) *Worker {
	return &Worker{optimizer: opt, config: config, sleep: sleepCtx}
}

// ProcessBatch runs every job. A failed job does not stop the others; only a
// cancelled context aborts the batch.
func (w *Worker) ProcessBatch(ctx context.Context, jobs []*Job) (Summary, error) {
	start := time.Now()
	log.Info().Int("jobs", len(jobs)).Int("workers", w.workerCount()).Msg("pipeline: starting batch")

	jobChan := make(chan *Job, len(jobs))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < w.workerCount(); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				if err := w.processJob(ctx, job); err != nil {
					log.Warn().Err(err).Int("worker", workerID).Str("scenario", job.Name).Msg("pipeline: scenario failed")
				}
			}
		}(i)
	}

	// Enqueue jobs
	var cancelled error
enqueue:
	for _, job := range jobs {
		job.Status = JobQueued
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break enqueue
		case jobChan <- job:
		}
	}
	close(jobChan)
	wg.Wait()

	summary := Summary{Total: len(jobs), Duration: time.Since(start)}
	for _, job := range jobs {
		switch job.Status {
		case JobCompleted:
			summary.Completed++
		case JobFailed:
			summary.Failed++
		}
	}

	log.Info().
		Int("completed", summary.Completed).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("pipeline: batch finished")

	return summary, cancelled
}

func (w *Worker) workerCount() int {
	if w.config.WorkerCount < 1 {
		return 1
	}
	return w.config.WorkerCount
}

// processJob solves one scenario, retrying transient failures.
func (w *Worker) processJob(ctx context.Context, job *Job) error {
	startTime := time.Now()
	job.Status = JobProcessing

	attempts := max(w.config.RetryAttempts, 1)
	var err error
	for job.Attempts < attempts {
		job.Attempts++
		if err = w.solve(ctx, job); err == nil || permanent(err) || job.Attempts == attempts {
			break
		}
		log.Warn().Err(err).
			Str("scenario", job.Name).
			Int("attempt", job.Attempts).
			Int("max_attempts", attempts).
			Msg("pipeline: will retry scenario")
		if sleepErr := w.sleep(ctx, w.config.RetryBackoff); sleepErr != nil {
			err = sleepErr
			break
		}
	}

	job.Duration = time.Since(startTime)
	if err != nil {
		job.Status = JobFailed
		job.Err = err
		return err
	}

	job.Status = JobCompleted
	log.Info().
		Str("scenario", job.Name).
		Str("run_id", job.RunID).
		Str("status", job.RunStatus).
		Dur("duration", job.Duration).
		Msg("pipeline: scenario completed")
	return nil
}

func (w *Worker) solve(ctx context.Context, job *Job) error {
	in, err := loader.Load(ctx, loader.DirSource{Dir: job.Dir}, job.Name, w.config.Files)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	out, err := w.optimizer.Optimize(ctx, in)
	if err != nil {
		var solveErr *optimizer.SolveError
		if errors.As(err, &solveErr) {
			job.RunStatus = optimizer.RunStatus(solveErr.Status)
		}
		return err
	}

	job.RunID = out.Run.ID
	job.RunStatus = out.Run.Status

	if w.config.OutputDir != "" {
		if err := report.WriteDir(filepath.Join(w.config.OutputDir, job.Name), out.Files); err != nil {
			return err
		}
	}
	return nil
}

// permanent reports whether retrying cannot change the outcome.
func permanent(err error) bool {
	var solveErr *optimizer.SolveError
	return errors.As(err, &solveErr) ||
		errors.Is(err, optimizer.ErrMissingInventory) ||
		errors.Is(err, loader.ErrInvalidInput) ||
		errors.Is(err, loader.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
