package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// SimplexName is the registry name of the gonum-backed simplex solver.
const SimplexName = "simplex"

const (
	defaultSimplexTolerance = 1e-10
	// DefaultSimplexMaxColumns caps the standard-form width, slack columns
	// included. Past a few thousand columns the dense tableau does not
	// finish within the default time limit.
	DefaultSimplexMaxColumns = 4000
)

// ErrProblemTooLarge is returned when a problem exceeds a backend's size cap.
var ErrProblemTooLarge = errors.New("problem too large for backend")

// denseSlots admits one dense solve at a time across all Simplex values.
// lp.Simplex cannot be interrupted, so a solve abandoned on deadline keeps
// its slot until it returns.
var denseSlots = semaphore.NewWeighted(1)

func init() {
	Register(SimplexName, func() Solver { return NewSimplex() })
}

// Simplex solves problems with gonum's dense simplex implementation. It
// suits small scenarios and tests: the tableau is rows × columns dense, so
// problems wider than MaxColumns are rejected with ErrProblemTooLarge. Use
// the cbc backend for full-size models.
type Simplex struct {
	Tolerance  float64
	MaxColumns int
}

// NewSimplex creates a simplex backend with the default tolerance and size cap.
func NewSimplex() *Simplex {
	return &Simplex{Tolerance: defaultSimplexTolerance, MaxColumns: DefaultSimplexMaxColumns}
}

// Name implements Solver.
func (s *Simplex) Name() string {
	return SimplexName
}

// standardForm holds min cᵀx s.t. Ax = b, x >= 0 together with the mapping
// from standard-form columns back to problem variables.
type standardForm struct {
	c    []float64
	a    *mat.Dense
	b    []float64
	cols []int // cols[k] is the problem variable behind column k
}

type simplexOutcome struct {
	x   []float64
	err error
}

// Solve implements Solver. lp.Simplex cannot be interrupted, so on deadline
// the computation is abandoned and finishes in the background while still
// holding the dense slot. A solve that cannot get the slot before its
// deadline reports TIME_LIMIT_REACHED without values.
func (s *Simplex) Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error) {
	start := time.Now()
	timeLimit := opts.TimeLimit
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	sf, status := buildStandardForm(p)
	if status != "" {
		return &Solution{Status: status, Runtime: time.Since(start)}, nil
	}
	if sf == nil {
		// Every variable is pinned at zero and no row constrains anything.
		values := make([]float64, p.NumVariables())
		return &Solution{
			Status:    StatusOptimal,
			Values:    values,
			Objective: p.Evaluate(values),
			Runtime:   time.Since(start),
		}, nil
	}

	rows, cols := sf.a.Dims()
	if s.MaxColumns > 0 && cols > s.MaxColumns {
		return nil, fmt.Errorf("simplex: %d columns over limit %d: %w", cols, s.MaxColumns, ErrProblemTooLarge)
	}
	log.Debug().
		Int("variables", p.NumVariables()).
		Int("rows", rows).
		Int("columns", cols).
		Dur("time_limit", timeLimit).
		Msg("simplex: solving")

	ctx, cancel := context.WithTimeout(ctx, timeLimit)
	defer cancel()

	tol := s.Tolerance
	if tol <= 0 {
		tol = defaultSimplexTolerance
	}

	if err := denseSlots.Acquire(ctx, 1); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn().Dur("time_limit", timeLimit).Msg("simplex: no free slot before the time limit")
			return &Solution{Status: StatusTimeLimit, Runtime: time.Since(start)}, nil
		}
		return nil, ctx.Err()
	}

	done := make(chan simplexOutcome, 1)
	go func() {
		defer denseSlots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- simplexOutcome{err: fmt.Errorf("simplex panicked: %v", r)}
			}
		}()
		_, x, err := lp.Simplex(sf.c, sf.a, sf.b, tol, nil)
		done <- simplexOutcome{x: x, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Solution{Status: StatusTimeLimit, Runtime: time.Since(start)}, nil
		}
		return nil, ctx.Err()
	case out := <-done:
		runtime := time.Since(start)
		switch {
		case out.err == nil:
			values := make([]float64, p.NumVariables())
			for k, v := range sf.cols {
				if v >= 0 {
					values[v] = out.x[k]
				}
			}
			return &Solution{
				Status:    StatusOptimal,
				Values:    values,
				Objective: p.Evaluate(values),
				Runtime:   runtime,
			}, nil
		case errors.Is(out.err, lp.ErrInfeasible):
			return &Solution{Status: StatusInfeasible, Runtime: runtime}, nil
		case errors.Is(out.err, lp.ErrUnbounded):
			return &Solution{Status: StatusUnbounded, Runtime: runtime}, nil
		default:
			return nil, fmt.Errorf("simplex: %w", out.err)
		}
	}
}

// buildStandardForm converts p into equality form by adding one slack column
// per inequality. Variables that appear in no constraint are fixed at zero
// when their cost is non-negative; a negative cost on such a variable makes
// the problem unbounded. Constraints without terms are checked directly.
// A nil form with an empty status means nothing is left to solve.
func buildStandardForm(p *Problem) (*standardForm, Status) {
	n := p.NumVariables()

	used := make([]bool, n)
	var rows []Constraint
	for _, con := range p.Constraints() {
		nonzero := false
		for _, t := range con.Terms {
			if t.Coef != 0 {
				used[t.Var] = true
				nonzero = true
			}
		}
		if nonzero {
			rows = append(rows, con)
			continue
		}
		// 0 (sense) rhs
		switch {
		case con.Sense == LessOrEqual && con.RHS < 0,
			con.Sense == GreaterOrEqual && con.RHS > 0,
			con.Sense == Equal && con.RHS != 0:
			return nil, StatusInfeasible
		}
	}

	colOf := make([]int, n)
	var cols []int
	for v := 0; v < n; v++ {
		if !used[v] {
			if p.Cost(v) < 0 {
				return nil, StatusUnbounded
			}
			colOf[v] = -1
			continue
		}
		colOf[v] = len(cols)
		cols = append(cols, v)
	}

	if len(rows) == 0 {
		return nil, ""
	}

	slacks := 0
	for _, con := range rows {
		if con.Sense != Equal {
			slacks++
		}
	}

	width := len(cols) + slacks
	a := mat.NewDense(len(rows), width, nil)
	b := make([]float64, len(rows))
	c := make([]float64, width)
	for k, v := range cols {
		c[k] = p.Cost(v)
	}

	slack := len(cols)
	for i, con := range rows {
		for _, t := range con.Terms {
			if t.Coef == 0 {
				continue
			}
			k := colOf[t.Var]
			a.Set(i, k, a.At(i, k)+t.Coef)
		}
		switch con.Sense {
		case LessOrEqual:
			a.Set(i, slack, 1)
			slack++
		case GreaterOrEqual:
			a.Set(i, slack, -1)
			slack++
		}
		b[i] = con.RHS
		if b[i] < 0 {
			for k := 0; k < width; k++ {
				if v := a.At(i, k); v != 0 {
					a.Set(i, k, -v)
				}
			}
			b[i] = -b[i]
		}
		if math.IsNaN(b[i]) || math.IsInf(b[i], 0) {
			return nil, StatusInfeasible
		}
	}

	for len(cols) < width {
		cols = append(cols, -1)
	}

	return &standardForm{c: c, a: a, b: b, cols: cols}, ""
}
