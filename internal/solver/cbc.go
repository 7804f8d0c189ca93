package solver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CBCName is the registry name of the COIN-OR CBC command-line backend.
const CBCName = "cbc"

const (
	defaultCBCBinary = "cbc"
	// cbcGrace is how long the process may overrun its own -sec limit before
	// it is killed.
	cbcGrace = 5 * time.Second
	// cbcFeasibilityTol bounds the violation accepted on a stopped incumbent.
	// Solution files carry values at reduced precision.
	cbcFeasibilityTol = 1e-3
	lpTermsPerLine    = 8
)

func init() {
	Register(CBCName, func() Solver { return NewCBC("") })
}

// CBC writes the problem as a CPLEX LP file, runs the cbc binary on it and
// reads back the solution file. It handles the full-size models the dense
// simplex backend cannot.
type CBC struct {
	// Binary is the cbc executable, resolved through PATH when not absolute.
	Binary string
	// WorkDir holds the per-solve temp directories. Empty means os.TempDir.
	WorkDir string
}

// NewCBC creates a CBC backend. An empty binary means "cbc" on PATH.
func NewCBC(binary string) *CBC {
	if binary == "" {
		binary = defaultCBCBinary
	}
	return &CBC{Binary: binary}
}

// Name implements Solver.
func (c *CBC) Name() string {
	return CBCName
}

// LookPath resolves the configured binary.
func (c *CBC) LookPath() (string, error) {
	path, err := exec.LookPath(c.Binary)
	if err != nil {
		return "", fmt.Errorf("cbc binary %q: %w", c.Binary, err)
	}
	return path, nil
}

// Solve implements Solver.
func (c *CBC) Solve(ctx context.Context, p *Problem, opts Options) (*Solution, error) {
	start := time.Now()
	timeLimit := opts.TimeLimit
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}

	if status := trivialStatus(p); status != "" {
		return &Solution{Status: status, Runtime: time.Since(start)}, nil
	}
	if p.NumVariables() == 0 {
		return &Solution{Status: StatusOptimal, Values: []float64{}, Runtime: time.Since(start)}, nil
	}

	bin, err := c.LookPath()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(c.WorkDir, "stockopt-cbc-*")
	if err != nil {
		return nil, fmt.Errorf("cbc: create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")
	if err := writeLPFile(lpPath, p); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, timeLimit+cbcGrace)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, cbcArgs(lpPath, solPath, timeLimit)...)
	cmd.WaitDelay = time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Debug().
		Str("binary", bin).
		Int("variables", p.NumVariables()).
		Int("constraints", p.NumConstraints()).
		Dur("time_limit", timeLimit).
		Msg("cbc: solving")

	runErr := cmd.Run()
	runtime := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &Solution{Status: StatusTimeLimit, Runtime: runtime}, nil
		}
		return nil, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.Warn().Dur("time_limit", timeLimit).Msg("cbc: killed after overrunning its time limit")
		return &Solution{Status: StatusTimeLimit, Runtime: runtime}, nil
	}

	f, err := os.Open(solPath)
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("cbc: %w: %s", runErr, tail(out.String(), 512))
		}
		return nil, fmt.Errorf("cbc: no solution file: %w: %s", err, tail(out.String(), 512))
	}
	defer f.Close()

	sol, err := readCBCSolution(f, p)
	if err != nil {
		return nil, err
	}
	sol.Runtime = runtime
	return sol, nil
}

func cbcArgs(lpPath, solPath string, timeLimit time.Duration) []string {
	secs := int(math.Ceil(timeLimit.Seconds()))
	return []string{
		lpPath,
		"-sec", strconv.Itoa(secs),
		"-timeMode", "elapsed",
		"-initialSolve",
		"-printingOptions", "all",
		"-solution", solPath,
	}
}

// trivialStatus decides problems that a constraint without terms already
// settles. Such rows cannot be written to an LP file.
func trivialStatus(p *Problem) Status {
	for _, con := range p.Constraints() {
		if hasTerms(con) {
			continue
		}
		switch {
		case con.Sense == LessOrEqual && con.RHS < 0,
			con.Sense == GreaterOrEqual && con.RHS > 0,
			con.Sense == Equal && con.RHS != 0:
			return StatusInfeasible
		}
	}
	return ""
}

// hasTerms reports whether any variable keeps a non-zero coefficient once
// repeated terms are summed.
func hasTerms(con Constraint) bool {
	return len(mergeTerms(con.Terms)) > 0
}

func lpVarName(i int) string { return "x" + strconv.Itoa(i) }

func lpRowName(j int) string { return "c" + strconv.Itoa(j) }

func writeLPFile(path string, p *Problem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cbc: create lp file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := WriteLP(w, p); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("cbc: write lp file: %w", err)
	}
	return f.Close()
}

// WriteLP writes p in CPLEX LP format. Variables are named x<i> and
// constraints c<j> after their indices. Every variable is listed in the
// objective, zero costs included, so each one gets a column in the
// solution. Rows without terms are skipped. The format's default bounds
// of [0, +inf) match Problem.
func WriteLP(w io.Writer, p *Problem) error {
	lw := &lpWriter{w: w}

	lw.printf("\\ stockopt\nMinimize\n obj:")
	for i := 0; i < p.NumVariables(); i++ {
		lw.term(p.Cost(i), i, i)
	}
	lw.printf("\nSubject To\n")

	for j, con := range p.Constraints() {
		if !hasTerms(con) {
			continue
		}
		lw.printf(" %s:", lpRowName(j))
		for k, t := range mergeTerms(con.Terms) {
			lw.term(t.Coef, t.Var, k)
		}
		lw.printf(" %s %s\n", con.Sense, formatLPNumber(con.RHS))
	}
	lw.printf("End\n")
	if lw.err != nil {
		return fmt.Errorf("cbc: write lp: %w", lw.err)
	}
	return nil
}

type lpWriter struct {
	w   io.Writer
	err error
}

func (lw *lpWriter) printf(format string, args ...interface{}) {
	if lw.err != nil {
		return
	}
	_, lw.err = fmt.Fprintf(lw.w, format, args...)
}

// term writes "+ 3 x0". Long rows wrap every lpTermsPerLine terms.
func (lw *lpWriter) term(coef float64, v, k int) {
	if k > 0 && k%lpTermsPerLine == 0 {
		lw.printf("\n   ")
	}
	sign := "+"
	if coef < 0 {
		sign, coef = "-", -coef
	}
	lw.printf(" %s %s %s", sign, formatLPNumber(coef), lpVarName(v))
}

func formatLPNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// mergeTerms sums repeated variables and drops zero coefficients, keeping
// first-seen order.
func mergeTerms(terms []Term) []Term {
	pos := make(map[int]int, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if k, ok := pos[t.Var]; ok {
			out[k].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(out)
		out = append(out, t)
	}
	merged := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			merged = append(merged, t)
		}
	}
	return merged
}

// readCBCSolution parses a cbc solution file. The first line carries the
// status; each following line is "index name value reduced-cost", possibly
// prefixed with "**" for entries that violate a bound. Row lines are ignored.
func readCBCSolution(r io.Reader, p *Problem) (*Solution, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("cbc: read solution: %w", err)
		}
		return nil, errors.New("cbc: empty solution file")
	}
	header := strings.TrimSpace(sc.Text())
	status, err := cbcStatus(header)
	if err != nil {
		return nil, err
	}
	if status == StatusInfeasible || status == StatusUnbounded {
		return &Solution{Status: status}, nil
	}

	values := make([]float64, p.NumVariables())
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 || !strings.HasPrefix(fields[1], "x") {
			continue
		}
		idx, err := strconv.Atoi(fields[1][1:])
		if err != nil || idx < 0 || idx >= len(values) {
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("cbc: value for %s: %w", fields[1], err)
		}
		values[idx] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cbc: read solution: %w", err)
	}

	if status == StatusTimeLimit && p.Violation(values) > cbcFeasibilityTol {
		// Stopped before reaching a feasible point.
		return &Solution{Status: StatusTimeLimit}, nil
	}
	return &Solution{Status: status, Values: values, Objective: p.Evaluate(values)}, nil
}

func cbcStatus(header string) (Status, error) {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return StatusOptimal, nil
	case strings.Contains(lower, "dual infeasible"):
		return StatusUnbounded, nil
	case strings.Contains(lower, "infeasible"):
		return StatusInfeasible, nil
	case strings.Contains(lower, "unbounded"):
		return StatusUnbounded, nil
	case strings.HasPrefix(lower, "stopped"):
		return StatusTimeLimit, nil
	default:
		return "", fmt.Errorf("cbc: unrecognized solution status %q", header)
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
