package optimizer

import (
	"errors"
	"fmt"

	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
)

var (
	// ErrInfeasible is returned when no plan satisfies every constraint.
	ErrInfeasible = errors.New("optimization problem is infeasible")
	// ErrUnbounded is returned when the objective has no lower bound.
	ErrUnbounded = errors.New("optimization problem is unbounded")
	// ErrNoIncumbent is returned when the time limit hits before any feasible
	// solution was found.
	ErrNoIncumbent = errors.New("time limit reached without a feasible solution")
	// ErrMissingInventory is returned by Preprocess when current inventory is
	// absent and synthesis is disabled.
	ErrMissingInventory = errors.New("current inventory missing")
)

// SolveError reports a terminal solver status that yields no decisions.
type SolveError struct {
	Status solver.Status
	Err    error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("solve finished with status %s: %v", e.Status, e.Err)
}

func (e *SolveError) Unwrap() error {
	return e.Err
}

func newSolveError(status solver.Status) *SolveError {
	var err error
	switch status {
	case solver.StatusInfeasible:
		err = ErrInfeasible
	case solver.StatusUnbounded:
		err = ErrUnbounded
	case solver.StatusTimeLimit:
		err = ErrNoIncumbent
	default:
		err = fmt.Errorf("unexpected solver status %q", status)
	}
	return &SolveError{Status: status, Err: err}
}
