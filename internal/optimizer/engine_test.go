package optimizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSolver struct {
	status     solver.Status
	withValues bool
	fill       float64
	err        error
}

func (f *fakeSolver) Name() string { return "fake" }

func (f *fakeSolver) Solve(_ context.Context, p *solver.Problem, _ solver.Options) (*solver.Solution, error) {
	if f.err != nil {
		return nil, f.err
	}
	sol := &solver.Solution{Status: f.status}
	if f.withValues {
		sol.Values = make([]float64, p.NumVariables())
		for i := range sol.Values {
			sol.Values[i] = f.fill
		}
		sol.Objective = p.Evaluate(sol.Values)
	}
	return sol, nil
}

func newTestEngine(t *testing.T, p Params) *Engine {
	t.Helper()
	p.TimeLimit = 30 * time.Second
	e, err := NewEngine(solver.NewSimplex(), p)
	require.NoError(t, err)
	return e
}

func assertBalanced(t *testing.T, res *Result) {
	t.Helper()
	flow := make(map[domain.PairKey]float64)
	for _, m := range res.Manufacturing {
		flow[domain.PairKey{StoreID: m.StoreID, ProductID: m.ProductID}] += m.Quantity
	}
	for _, tr := range res.Transfers {
		flow[domain.PairKey{StoreID: tr.ToStore, ProductID: tr.ProductID}] += tr.Quantity
		flow[domain.PairKey{StoreID: tr.FromStore, ProductID: tr.ProductID}] -= tr.Quantity
	}
	for _, pos := range res.Inventory {
		key := domain.PairKey{StoreID: pos.StoreID, ProductID: pos.ProductID}
		assert.InDelta(t, pos.Current+flow[key], pos.Final, 0.05, "balance at %v", key)
		assert.GreaterOrEqual(t, pos.Final, pos.Target-1e-6, "service at %v", key)
	}
}

func TestOptimizeForcedManufacturing(t *testing.T) {
	p := DefaultParams()
	p.ServiceZ = 1
	e := newTestEngine(t, p)

	in := domain.ScenarioInput{
		Name:        "forced",
		Forecast:    []domain.ForecastRow{{StoreID: 0, ProductID: 1, Daily: flat(100)}},
		Historical:  []domain.HistoricalParam{history(0, 1, 20, 0)},
		StoreSupply: []domain.StoreSupplyParam{supply(0, 4, 0.25, 100)},
	}

	res, err := e.Optimize(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Optimal)
	assert.Equal(t, solver.StatusOptimal, res.Status)
	require.Len(t, res.Records, 1)
	assert.InDelta(t, 50.0, res.Records[0].SafetyStock, 1e-9)

	require.Len(t, res.Manufacturing, 1)
	mfg := res.Manufacturing[0]
	assert.InDelta(t, 150.0, mfg.Quantity, 1e-6)
	assert.InDelta(t, 150*55.0, mfg.Cost, 1e-6)
	require.GreaterOrEqual(t, len(mfg.ReasonCodes), 2)
	assert.Equal(t, ReasonManufactureToAvoidStockout, mfg.ReasonCodes[0])
	assert.Equal(t, ReasonSafetyStockViolation, mfg.ReasonCodes[1])

	require.Len(t, res.Inventory, 1)
	assert.GreaterOrEqual(t, res.Inventory[0].Final, 150.0-1e-6)
	assert.Empty(t, res.Transfers)
	assertBalanced(t, res)

	assert.InDelta(t, res.Objective, res.Costs.Total(), 1e-6)
}

func TestOptimizeNoActionNeeded(t *testing.T) {
	e := newTestEngine(t, DefaultParams())
	in := domain.ScenarioInput{
		Name:        "steady",
		Forecast:    []domain.ForecastRow{{StoreID: 0, ProductID: 1, Daily: flat(70)}},
		Historical:  []domain.HistoricalParam{history(0, 1, 2, 500)},
		StoreSupply: []domain.StoreSupplyParam{supply(0, 2, 0.1, 450)},
	}

	res, err := e.Optimize(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, res.Manufacturing)
	assert.Empty(t, res.Transfers)
	require.Len(t, res.Inventory, 1)
	assert.InDelta(t, 500.0, res.Inventory[0].Final, 1e-6)
	assert.Equal(t, 0.0, res.Costs.Manufacturing)
	assert.InDelta(t, 500.0, res.Costs.Holding, 1e-6)
}

func TestOptimizePrefersTransfer(t *testing.T) {
	e := newTestEngine(t, DefaultParams())

	res, err := e.Optimize(context.Background(), transferScenario())
	require.NoError(t, err)
	assert.Empty(t, res.Manufacturing)
	require.Len(t, res.Transfers, 1)

	tr := res.Transfers[0]
	assert.Equal(t, 0, tr.FromStore)
	assert.Equal(t, 1, tr.ToStore)
	assert.Equal(t, 1, tr.ProductID)
	assert.InDelta(t, 70.0, tr.Quantity, 1e-6)
	assert.InDelta(t, 70.0, tr.Cost, 1e-6)
	assert.Equal(t, []string{
		ReasonProjectedStockout,
		ReasonExcessAtSource,
		ReasonTransportCostAcceptable,
	}, tr.ReasonCodes)

	assertBalanced(t, res)
	assert.InDelta(t, 70.0+300.0, res.Costs.Total(), 1e-6)
}

func TestOptimizeRespectsCapacity(t *testing.T) {
	e := newTestEngine(t, DefaultParams())
	in := domain.ScenarioInput{
		Name: "capacity",
		Forecast: []domain.ForecastRow{
			{StoreID: 0, ProductID: 1, Daily: flat(6400)},
			{StoreID: 1, ProductID: 1, Daily: flat(0)},
		},
		Historical: []domain.HistoricalParam{
			history(0, 1, 0, 0),
			history(1, 1, 0, 1500),
		},
		StoreSupply: []domain.StoreSupplyParam{
			supply(0, 3, 0.2, 450),
			supply(1, 3, 0.2, 450),
		},
		TransportMatrix: [][]float64{{0, 10}, {10, 0}},
	}

	res, err := e.Optimize(context.Background(), in)
	require.NoError(t, err)

	perStore := make(map[int]float64)
	byStore := make(map[int]domain.ManufacturingDecision)
	for _, m := range res.Manufacturing {
		perStore[m.StoreID] += m.Quantity
		byStore[m.StoreID] = m
	}
	for store, total := range perStore {
		assert.LessOrEqual(t, total, 5000.0+1e-6, "store %d", store)
	}
	assert.InDelta(t, 4900.0, perStore[0], 1e-6)
	assert.NotContains(t, perStore, 1)
	assert.Equal(t, []string{ReasonManufactureToAvoidStockout, ReasonCapacityConstrained}, byStore[0].ReasonCodes)

	// Outbound transfers are limited to on-hand stock at the source.
	require.Len(t, res.Transfers, 1)
	assert.Equal(t, 1, res.Transfers[0].FromStore)
	assert.InDelta(t, 1500.0, res.Transfers[0].Quantity, 1e-6)
	assertBalanced(t, res)
}

func TestOptimizeInfeasible(t *testing.T) {
	e := newTestEngine(t, DefaultParams())
	in := domain.ScenarioInput{
		Name: "over-capacity",
		Forecast: []domain.ForecastRow{
			{StoreID: 0, ProductID: 1, Daily: flat(3000)},
			{StoreID: 0, ProductID: 2, Daily: flat(3000)},
		},
		Historical: []domain.HistoricalParam{
			history(0, 1, 0, 0),
			history(0, 2, 0, 0),
		},
	}

	res, err := e.Optimize(context.Background(), in)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrInfeasible))

	var se *SolveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, solver.StatusInfeasible, se.Status)
}

func TestOptimizeIsDeterministic(t *testing.T) {
	e := newTestEngine(t, DefaultParams())
	in := domain.ScenarioInput{
		Name: "simulated",
		Forecast: []domain.ForecastRow{
			{StoreID: 0, ProductID: 1, Daily: []float64{5, 6, 7, 8, 9, 10, 11}},
			{StoreID: 1, ProductID: 1, Daily: []float64{15, 16, 17, 18, 19, 20, 21}},
			{StoreID: 2, ProductID: 1, Daily: []float64{1, 1, 1, 1, 1, 1, 1}},
			{StoreID: 1, ProductID: 2, Daily: []float64{3, 3, 3, 3, 3, 3, 3}},
		},
		TransportMatrix: [][]float64{{0, 20, 30}, {20, 0, 25}, {30, 25, 0}},
	}

	a, err := e.Optimize(context.Background(), in)
	require.NoError(t, err)
	b, err := e.Optimize(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, a.Records, b.Records)
	assert.Equal(t, a.Transfers, b.Transfers)
	assert.Equal(t, a.Manufacturing, b.Manufacturing)
	assert.Equal(t, a.Inventory, b.Inventory)
	assert.Equal(t, a.Costs, b.Costs)
	assertBalanced(t, a)
}

func TestOptimizeTimeLimitWithIncumbent(t *testing.T) {
	e, err := NewEngine(&fakeSolver{status: solver.StatusTimeLimit, withValues: true, fill: 500}, DefaultParams())
	require.NoError(t, err)

	res, err := e.Optimize(context.Background(), transferScenario())
	require.NoError(t, err)
	assert.False(t, res.Optimal)
	assert.Equal(t, solver.StatusTimeLimit, res.Status)
	assert.Equal(t, domain.RunStatusTimeLimit, RunStatus(res.Status))
	assert.NotEmpty(t, res.Manufacturing)
}

func TestOptimizeTimeLimitWithoutIncumbent(t *testing.T) {
	e, err := NewEngine(&fakeSolver{status: solver.StatusTimeLimit}, DefaultParams())
	require.NoError(t, err)

	_, err = e.Optimize(context.Background(), transferScenario())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoIncumbent))
}

func TestOptimizeUnboundedAndBackendErrors(t *testing.T) {
	e, err := NewEngine(&fakeSolver{status: solver.StatusUnbounded}, DefaultParams())
	require.NoError(t, err)
	_, err = e.Optimize(context.Background(), transferScenario())
	assert.True(t, errors.Is(err, ErrUnbounded))

	boom := errors.New("numerical breakdown")
	e, err = NewEngine(&fakeSolver{err: boom}, DefaultParams())
	require.NoError(t, err)
	_, err = e.Optimize(context.Background(), transferScenario())
	assert.True(t, errors.Is(err, boom))
	var se *SolveError
	assert.False(t, errors.As(err, &se))
}

func TestOptimizeFiltersNoise(t *testing.T) {
	e, err := NewEngine(&fakeSolver{status: solver.StatusOptimal, withValues: true, fill: 0.009}, DefaultParams())
	require.NoError(t, err)

	res, err := e.Optimize(context.Background(), transferScenario())
	require.NoError(t, err)
	assert.Empty(t, res.Transfers)
	assert.Empty(t, res.Manufacturing)
	assert.Equal(t, domain.CostTotals{}, res.Costs)
	for _, pos := range res.Inventory {
		assert.Equal(t, 0.0, pos.Final)
	}
}

func TestNewEngineValidates(t *testing.T) {
	_, err := NewEngine(nil, DefaultParams())
	assert.Error(t, err)

	p := DefaultParams()
	p.HorizonDays = 0
	_, err = NewEngine(solver.NewSimplex(), p)
	assert.Error(t, err)
}
