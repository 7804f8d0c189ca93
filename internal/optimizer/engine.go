// Package optimizer turns demand forecasts and supply-risk parameters into
// manufacturing and inter-store transfer decisions.
package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one optimization run.
type Result struct {
	Scenario      string
	Status        solver.Status
	Optimal       bool
	Records       []domain.StoreProductRecord
	Transfers     []domain.TransferDecision
	Manufacturing []domain.ManufacturingDecision
	Inventory     []domain.InventoryPosition
	Costs         domain.CostTotals
	Objective     float64
	Runtime       time.Duration
	Stats         ModelStats
}

// Engine runs preprocess, build, solve and extract for a scenario.
type Engine struct {
	solver solver.Solver
	params Params
}

// NewEngine creates an engine around a solver backend.
func NewEngine(s solver.Solver, p Params) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("solver backend is required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimization params: %w", err)
	}
	return &Engine{solver: s, params: p}, nil
}

// Params returns the engine parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Optimize solves one scenario. INFEASIBLE and UNBOUNDED, and a time limit
// without an incumbent, are returned as *SolveError. A time limit with an
// incumbent yields a result with Optimal=false.
func (e *Engine) Optimize(ctx context.Context, in domain.ScenarioInput) (*Result, error) {
	start := time.Now()
	p := e.params

	records, err := Preprocess(in, p)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	costs := NewCostModel(in.StoreSupply, in.TransportMatrix, p)
	model := BuildModel(records, costs, p)
	stats := model.Stats()

	log.Info().
		Str("scenario", in.Name).
		Int("stores", stats.Stores).
		Int("products", stats.Products).
		Int("pairs", stats.Pairs).
		Int("variables", stats.Variables).
		Int("constraints", stats.Constraints).
		Str("backend", e.solver.Name()).
		Msg("optimizer: model built")

	sol, err := e.solver.Solve(ctx, model.Problem, solver.Options{TimeLimit: p.TimeLimit})
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	switch sol.Status {
	case solver.StatusOptimal:
	case solver.StatusTimeLimit:
		if !sol.HasValues() {
			return nil, newSolveError(sol.Status)
		}
		log.Warn().
			Str("scenario", in.Name).
			Dur("time_limit", p.TimeLimit).
			Msg("optimizer: time limit reached, using best incumbent")
	default:
		return nil, newSolveError(sol.Status)
	}

	ex := Extract(model, sol.Values, p)

	res := &Result{
		Scenario:      in.Name,
		Status:        sol.Status,
		Optimal:       sol.IsOptimal(),
		Records:       model.Records(),
		Transfers:     ex.Transfers,
		Manufacturing: ex.Manufacturing,
		Inventory:     ex.Inventory,
		Costs:         ex.Costs,
		Objective:     sol.Objective,
		Runtime:       time.Since(start),
		Stats:         stats,
	}

	log.Info().
		Str("scenario", in.Name).
		Str("status", string(sol.Status)).
		Int("transfers", len(res.Transfers)).
		Int("manufacturing", len(res.Manufacturing)).
		Float64("total_cost", res.Costs.Total()).
		Dur("solve_time", sol.Runtime).
		Msg("optimizer: scenario solved")

	return res, nil
}

// RunStatus maps a solver status to the persisted run status.
func RunStatus(s solver.Status) string {
	switch s {
	case solver.StatusOptimal:
		return domain.RunStatusOptimal
	case solver.StatusTimeLimit:
		return domain.RunStatusTimeLimit
	case solver.StatusInfeasible:
		return domain.RunStatusInfeasible
	case solver.StatusUnbounded:
		return domain.RunStatusUnbounded
	default:
		return string(s)
	}
}
