package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplex_Optimal(t *testing.T) {
	// min x + 2y  s.t.  x + y >= 4, x <= 3
	p := NewProblem()
	x := p.NewVariable("x", 1)
	y := p.NewVariable("y", 2)
	p.AddConstraint("demand", GreaterOrEqual, 4, Term{x, 1}, Term{y, 1})
	p.AddConstraint("cap", LessOrEqual, 3, Term{x, 1})

	sol, err := NewSimplex().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	require.True(t, sol.HasValues())

	assert.InDelta(t, 3, sol.Values[x], 1e-7)
	assert.InDelta(t, 1, sol.Values[y], 1e-7)
	assert.InDelta(t, 5, sol.Objective, 1e-7)
	assert.Less(t, p.Violation(sol.Values), 1e-7)
}

func TestSimplex_EqualityWithNegativeRHS(t *testing.T) {
	// min a + b  s.t.  a - b = -2  ->  b = a + 2, optimum a = 0, b = 2
	p := NewProblem()
	a := p.NewVariable("a", 1)
	b := p.NewVariable("b", 1)
	p.AddConstraint("diff", Equal, -2, Term{a, 1}, Term{b, -1})

	sol, err := NewSimplex().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 0, sol.Values[a], 1e-7)
	assert.InDelta(t, 2, sol.Values[b], 1e-7)
}

func TestSimplex_Infeasible(t *testing.T) {
	p := NewProblem()
	x := p.NewVariable("x", 1)
	p.AddConstraint("upper", LessOrEqual, 1, Term{x, 1})
	p.AddConstraint("lower", GreaterOrEqual, 2, Term{x, 1})

	sol, err := NewSimplex().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())
}

func TestSimplex_Unbounded(t *testing.T) {
	p := NewProblem()
	x := p.NewVariable("x", -1)
	p.AddConstraint("lower", GreaterOrEqual, 1, Term{x, 1})

	sol, err := NewSimplex().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestSimplex_UnconstrainedVariables(t *testing.T) {
	p := NewProblem()
	p.NewVariable("idle", 3)
	x := p.NewVariable("x", 1)
	p.AddConstraint("lower", GreaterOrEqual, 2, Term{x, 1})

	sol, err := NewSimplex().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 0.0, sol.Values[0])
	assert.InDelta(t, 2, sol.Values[x], 1e-7)

	neg := NewProblem()
	neg.NewVariable("free_lunch", -1)
	sol, err = NewSimplex().Solve(context.Background(), neg, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestSimplex_EmptyConstraint(t *testing.T) {
	p := NewProblem()
	x := p.NewVariable("x", 1)
	p.AddConstraint("trivial", LessOrEqual, 5)
	p.AddConstraint("lower", GreaterOrEqual, 1, Term{x, 1})

	sol, err := NewSimplex().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)

	bad := NewProblem()
	bad.NewVariable("x", 1)
	bad.AddConstraint("impossible", GreaterOrEqual, 1)
	sol, err = NewSimplex().Solve(context.Background(), bad, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestSimplex_CancelledContext(t *testing.T) {
	p := NewProblem()
	x := p.NewVariable("x", 1)
	p.AddConstraint("lower", GreaterOrEqual, 1, Term{x, 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := NewSimplex().Solve(ctx, p, Options{})
	// The solve may finish before the cancellation is observed.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
		assert.Nil(t, sol)
	} else {
		assert.Equal(t, StatusOptimal, sol.Status)
	}
}

func TestSimplex_RejectsWideProblems(t *testing.T) {
	p := NewProblem()
	var terms []Term
	for i := 0; i < 12; i++ {
		terms = append(terms, Term{p.NewVariable("v", 1), 1})
	}
	p.AddConstraint("sum", GreaterOrEqual, 1, terms...)

	s := NewSimplex()
	s.MaxColumns = 10
	sol, err := s.Solve(context.Background(), p, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProblemTooLarge)
	assert.Nil(t, sol)

	s.MaxColumns = 0
	sol, err = s.Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
}

func TestSimplex_WaitsForDenseSlot(t *testing.T) {
	p := NewProblem()
	x := p.NewVariable("x", 1)
	p.AddConstraint("lower", GreaterOrEqual, 1, Term{x, 1})

	require.NoError(t, denseSlots.Acquire(context.Background(), 1))
	sol, err := NewSimplex().Solve(context.Background(), p, Options{TimeLimit: 50 * time.Millisecond})
	denseSlots.Release(1)

	require.NoError(t, err)
	assert.Equal(t, StatusTimeLimit, sol.Status)
	assert.False(t, sol.HasValues())

	sol, err = NewSimplex().Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
}

func TestRegistry(t *testing.T) {
	s, err := New(SimplexName)
	require.NoError(t, err)
	assert.Equal(t, SimplexName, s.Name())

	c, err := New(CBCName)
	require.NoError(t, err)
	assert.Equal(t, CBCName, c.Name())

	_, err = New("glpk")
	assert.Error(t, err)
	assert.Equal(t, []string{CBCName, SimplexName}, Backends())
}

func TestSenseString(t *testing.T) {
	assert.Equal(t, "<=", LessOrEqual.String())
	assert.Equal(t, "=", Equal.String())
	assert.Equal(t, ">=", GreaterOrEqual.String())
}
