// Package solver defines the linear-programming contract used by the
// optimizer and a registry of conforming backends.
//
// A Problem is a minimization over non-negative continuous variables subject
// to linear constraints. Backends report one of four terminal statuses and,
// when they have one, a value for every variable:
//
//	OPTIMAL             proven optimum, Values populated
//	INFEASIBLE          no assignment satisfies the constraints
//	UNBOUNDED           the objective decreases without limit
//	TIME_LIMIT_REACHED  deadline hit; Values populated only if an incumbent exists
//
// Backends must not alter the objective they were given and must treat
// Options.TimeLimit as a hard deadline.
package solver

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Sense is the relation between a constraint's left-hand side and its RHS.
type Sense int

const (
	LessOrEqual Sense = iota
	Equal
	GreaterOrEqual
)

func (s Sense) String() string {
	switch s {
	case LessOrEqual:
		return "<="
	case Equal:
		return "="
	case GreaterOrEqual:
		return ">="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Status is the terminal state reported by a backend.
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusInfeasible Status = "INFEASIBLE"
	StatusUnbounded  Status = "UNBOUNDED"
	StatusTimeLimit  Status = "TIME_LIMIT_REACHED"
)

// DefaultTimeLimit is applied when Options.TimeLimit is zero.
const DefaultTimeLimit = 300 * time.Second

// Term is a coefficient applied to a variable index.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is Σ Terms (Sense) RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Problem is a linear minimization over non-negative variables.
type Problem struct {
	names       []string
	costs       []float64
	constraints []Constraint
}

// NewProblem creates an empty problem.
func NewProblem() *Problem {
	return &Problem{}
}

// NewVariable adds a variable x >= 0 with the given objective coefficient and
// returns its index.
func (p *Problem) NewVariable(name string, cost float64) int {
	p.names = append(p.names, name)
	p.costs = append(p.costs, cost)
	return len(p.names) - 1
}

// AddConstraint appends a constraint and returns its index.
func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) int {
	p.constraints = append(p.constraints, Constraint{
		Name:  name,
		Terms: terms,
		Sense: sense,
		RHS:   rhs,
	})
	return len(p.constraints) - 1
}

// NumVariables returns the number of variables.
func (p *Problem) NumVariables() int {
	return len(p.names)
}

// NumConstraints returns the number of constraints.
func (p *Problem) NumConstraints() int {
	return len(p.constraints)
}

// VariableName returns the name of variable i.
func (p *Problem) VariableName(i int) string {
	return p.names[i]
}

// Cost returns the objective coefficient of variable i.
func (p *Problem) Cost(i int) float64 {
	return p.costs[i]
}

// Constraints returns the constraint list. Callers must not mutate it.
func (p *Problem) Constraints() []Constraint {
	return p.constraints
}

// Evaluate computes the objective for an assignment.
func (p *Problem) Evaluate(values []float64) float64 {
	var total float64
	for i, c := range p.costs {
		if i < len(values) {
			total += c * values[i]
		}
	}
	return total
}

// Violation returns the largest constraint violation of an assignment.
func (p *Problem) Violation(values []float64) float64 {
	var worst float64
	for _, con := range p.constraints {
		var lhs float64
		for _, t := range con.Terms {
			lhs += t.Coef * values[t.Var]
		}
		var v float64
		switch con.Sense {
		case LessOrEqual:
			v = lhs - con.RHS
		case GreaterOrEqual:
			v = con.RHS - lhs
		case Equal:
			v = lhs - con.RHS
			if v < 0 {
				v = -v
			}
		}
		if v > worst {
			worst = v
		}
	}
	for _, x := range values {
		if -x > worst {
			worst = -x
		}
	}
	return worst
}

// Options controls a single solve.
type Options struct {
	TimeLimit time.Duration
}

// Solution is the outcome of a solve.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
	Runtime   time.Duration
}

// HasValues reports whether the solution carries an assignment.
func (s *Solution) HasValues() bool {
	return s != nil && s.Values != nil
}

// IsOptimal reports whether the solution is a proven optimum.
func (s *Solution) IsOptimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// Solver is implemented by LP backends.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error)
}

// Factory creates a backend instance.
type Factory func() Solver

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a backend available under name. Registering the same name
// twice replaces the earlier factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New returns a backend by name.
func New(name string) (Solver, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown solver backend %q (available: %v)", name, Backends())
	}
	return f(), nil
}

// Backends lists registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
