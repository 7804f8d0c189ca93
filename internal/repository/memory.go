package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

// MemoryScenarioRepository keeps runs in process. It backs the service when
// no database is configured.
type MemoryScenarioRepository struct {
	mu   sync.RWMutex
	runs map[string]domain.ScenarioRun
}

func NewMemoryScenarioRepository() *MemoryScenarioRepository {
	return &MemoryScenarioRepository{runs: make(map[string]domain.ScenarioRun)}
}

func (r *MemoryScenarioRepository) SaveRun(_ context.Context, run *domain.ScenarioRun, _ []domain.TransferDecision, _ []domain.ManufacturingDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryScenarioRepository) GetRun(_ context.Context, id string) (*domain.ScenarioRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return &run, nil
}

func (r *MemoryScenarioRepository) ListRuns(_ context.Context, filter domain.ScenarioRunFilter) ([]domain.ScenarioRun, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.ScenarioRun
	for _, run := range r.runs {
		if filter.Name != "" && !strings.Contains(strings.ToLower(run.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		run.Report = nil
		matched = append(matched, run)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}
