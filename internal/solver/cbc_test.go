package solver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// demandProblem is min x + 2y s.t. x + y >= 4, x <= 3.
func demandProblem() *Problem {
	p := NewProblem()
	x := p.NewVariable("x", 1)
	y := p.NewVariable("y", 2)
	p.AddConstraint("demand", GreaterOrEqual, 4, Term{x, 1}, Term{y, 1})
	p.AddConstraint("cap", LessOrEqual, 3, Term{x, 1})
	return p
}

func TestWriteLP(t *testing.T) {
	p := demandProblem()
	z := p.NewVariable("z", 0)
	p.AddConstraint("empty", Equal, 0)
	p.AddConstraint("merged", Equal, -2.5, Term{0, 1}, Term{z, -1}, Term{0, 1}, Term{1, 0})

	var b strings.Builder
	require.NoError(t, WriteLP(&b, p))
	assert.Equal(t, `\ stockopt
Minimize
 obj: + 1 x0 + 2 x1 + 0 x2
Subject To
 c0: + 1 x0 + 1 x1 >= 4
 c1: + 1 x0 <= 3
 c3: + 2 x0 - 1 x2 = -2.5
End
`, b.String())
}

func TestWriteLPWrapsLongRows(t *testing.T) {
	p := NewProblem()
	var terms []Term
	for i := 0; i < 20; i++ {
		terms = append(terms, Term{p.NewVariable("v", 1), 1})
	}
	p.AddConstraint("sum", GreaterOrEqual, 1, terms...)

	var b strings.Builder
	require.NoError(t, WriteLP(&b, p))
	for _, line := range strings.Split(b.String(), "\n") {
		assert.LessOrEqual(t, strings.Count(line, " x"), lpTermsPerLine)
	}
}

func TestTrivialStatus(t *testing.T) {
	p := NewProblem()
	x := p.NewVariable("x", 1)
	p.AddConstraint("cancel", GreaterOrEqual, 0, Term{x, 1}, Term{x, -1})
	assert.Equal(t, Status(""), trivialStatus(p))

	p.AddConstraint("bad", GreaterOrEqual, 1, Term{x, 1}, Term{x, -1})
	assert.Equal(t, StatusInfeasible, trivialStatus(p))
}

func TestReadCBCSolution(t *testing.T) {
	p := demandProblem()

	sol, err := readCBCSolution(strings.NewReader(`Optimal - objective value 5.00000000
      0 c0                       4                       2
      1 c1                       3                      -1
      0 x0                       3                       0
      1 x1                       1                       0
`), p)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, []float64{3, 1}, sol.Values)
	assert.InDelta(t, 5, sol.Objective, 1e-9)

	sol, err = readCBCSolution(strings.NewReader("Infeasible - objective value 0.00000000\n** 0 x0 5 0\n"), p)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())

	sol, err = readCBCSolution(strings.NewReader("Dual infeasible - objective value 0\n"), p)
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)

	_, err = readCBCSolution(strings.NewReader(""), p)
	assert.Error(t, err)

	_, err = readCBCSolution(strings.NewReader("Segmentation fault\n"), p)
	assert.ErrorContains(t, err, "unrecognized solution status")
}

func TestReadCBCSolutionStoppedIncumbent(t *testing.T) {
	p := demandProblem()

	sol, err := readCBCSolution(strings.NewReader(`Stopped on time - objective value 6.00000000
      0 x0                       2                       0
      1 x1                       2                       0
`), p)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeLimit, sol.Status)
	assert.Equal(t, []float64{2, 2}, sol.Values)

	sol, err = readCBCSolution(strings.NewReader(`Stopped on time - objective value 1.00000000
**    0 x0                       1                       0
`), p)
	require.NoError(t, err)
	assert.Equal(t, StatusTimeLimit, sol.Status)
	assert.False(t, sol.HasValues())
}

// fakeCBC writes a shell script standing in for the cbc binary. It copies
// the model it was given next to itself and runs body.
func fakeCBC(t *testing.T, body string) (bin, seenLP string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	bin = filepath.Join(dir, "cbc")
	seenLP = filepath.Join(dir, "seen.lp")
	script := fmt.Sprintf(`#!/bin/sh
lp="$1"
while [ $# -gt 0 ]; do
  if [ "$1" = "-solution" ]; then sol="$2"; fi
  shift
done
cp "$lp" %q
%s
`, seenLP, body)
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, seenLP
}

func TestCBC_SolvesThroughBinary(t *testing.T) {
	bin, seenLP := fakeCBC(t, `cat > "$sol" <<'SOL'
Optimal - objective value 5.00000000
      0 x0                       3                       0
      1 x1                       1                       0
SOL`)

	s := NewCBC(bin)
	s.WorkDir = t.TempDir()
	sol, err := s.Solve(context.Background(), demandProblem(), Options{TimeLimit: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, []float64{3, 1}, sol.Values)
	assert.InDelta(t, 5, sol.Objective, 1e-9)

	model, err := os.ReadFile(seenLP)
	require.NoError(t, err)
	assert.Contains(t, string(model), "c0: + 1 x0 + 1 x1 >= 4")

	leftovers, err := os.ReadDir(s.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCBC_MissingSolutionFile(t *testing.T) {
	bin, _ := fakeCBC(t, `echo "Coin0008I model read failed"; exit 1`)

	_, err := NewCBC(bin).Solve(context.Background(), demandProblem(), Options{TimeLimit: 10 * time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model read failed")
}

func TestCBC_DeadlineReportsTimeLimit(t *testing.T) {
	bin, _ := fakeCBC(t, `exec sleep 30`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	sol, err := NewCBC(bin).Solve(ctx, demandProblem(), Options{TimeLimit: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, StatusTimeLimit, sol.Status)
	assert.False(t, sol.HasValues())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCBC_MissingBinary(t *testing.T) {
	s := NewCBC(filepath.Join(t.TempDir(), "no-such-cbc"))
	_, err := s.LookPath()
	require.Error(t, err)

	_, err = s.Solve(context.Background(), demandProblem(), Options{})
	assert.Error(t, err)
}

func TestCBC_TrivialProblemsSkipBinary(t *testing.T) {
	s := NewCBC(filepath.Join(t.TempDir(), "no-such-cbc"))

	p := NewProblem()
	p.NewVariable("x", 1)
	p.AddConstraint("empty", GreaterOrEqual, 1)
	sol, err := s.Solve(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)

	sol, err = s.Solve(context.Background(), NewProblem(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
}

func TestCBC_RealBinary(t *testing.T) {
	s := NewCBC("")
	if _, err := s.LookPath(); err != nil {
		t.Skip("cbc not installed")
	}

	sol, err := s.Solve(context.Background(), demandProblem(), Options{TimeLimit: 30 * time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 3, sol.Values[0], 1e-6)
	assert.InDelta(t, 1, sol.Values[1], 1e-6)

	p := NewProblem()
	x := p.NewVariable("x", 1)
	p.AddConstraint("low", GreaterOrEqual, 5, Term{x, 1})
	p.AddConstraint("high", LessOrEqual, 3, Term{x, 1})
	sol, err = s.Solve(context.Background(), p, Options{TimeLimit: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}
