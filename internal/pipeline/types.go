package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/loader"
	"github.com/andresuchdata/stockopt/backend-go/internal/service"
)

// Optimizer runs one scenario. *service.ScenarioService satisfies it.
type Optimizer interface {
	Optimize(ctx context.Context, in domain.ScenarioInput) (*service.Outcome, error)
}

// Config holds configuration for a batch run
type Config struct {
	WorkerCount   int           // Number of concurrent workers
	RetryAttempts int           // Attempts per scenario for transient failures
	RetryBackoff  time.Duration // Backoff duration between retries
	OutputDir     string        // Reports land in OutputDir/<scenario>
	Files         loader.Files  // Input file names inside each scenario directory
}

// DefaultConfig returns sensible defaults
func DefaultConfig(outputDir string) Config {
	return Config{
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
		OutputDir:     outputDir,
	}
}

// JobStatus represents the state of a single scenario job
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks the processing of one scenario directory
type Job struct {
	Name      string
	Dir       string
	Status    JobStatus
	RunID     string
	RunStatus string
	Attempts  int
	Duration  time.Duration
	Err       error
}

// Summary counts job outcomes of a batch.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Duration  time.Duration
}
