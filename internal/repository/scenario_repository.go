// backend-go/internal/repository/scenario_repository.go
package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

// ErrRunNotFound is returned when a scenario run ID is unknown.
var ErrRunNotFound = errors.New("scenario run not found")

// ScenarioRepository persists optimization runs and their decisions.
type ScenarioRepository interface {
	SaveRun(ctx context.Context, run *domain.ScenarioRun, transfers []domain.TransferDecision, manufacturing []domain.ManufacturingDecision) error
	GetRun(ctx context.Context, id string) (*domain.ScenarioRun, error)
	ListRuns(ctx context.Context, filter domain.ScenarioRunFilter) ([]domain.ScenarioRun, int, error)
}
