package optimizer

import (
	"strings"
	"testing"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sparseRecords(t *testing.T) []domain.StoreProductRecord {
	t.Helper()
	in := domain.ScenarioInput{
		Forecast: []domain.ForecastRow{
			{StoreID: 0, ProductID: 1, Daily: flat(10)},
			{StoreID: 1, ProductID: 1, Daily: flat(10)},
			{StoreID: 2, ProductID: 1, Daily: flat(10)},
			{StoreID: 1, ProductID: 2, Daily: flat(10)},
		},
		Historical: []domain.HistoricalParam{
			history(0, 1, 1, 5), history(1, 1, 1, 5), history(2, 1, 1, 5), history(1, 2, 1, 5),
		},
	}
	records, err := Preprocess(in, DefaultParams())
	require.NoError(t, err)
	return records
}

func TestPairIndexTransferTriples(t *testing.T) {
	ix := newPairIndex(sparseRecords(t))

	assert.Equal(t, []int{0, 1, 2}, ix.stores)
	assert.Equal(t, []int{1, 2}, ix.products)
	assert.True(t, ix.valid(1, 2))
	assert.False(t, ix.valid(0, 2))

	triples := ix.transferTriples()
	assert.Equal(t, [][3]int{
		{0, 1, 1}, {0, 2, 1},
		{1, 0, 1}, {1, 2, 1},
		{2, 0, 1}, {2, 1, 1},
	}, triples)
}

func TestBuildModelShape(t *testing.T) {
	p := DefaultParams()
	records := sparseRecords(t)
	m := BuildModel(records, NewCostModel(nil, nil, p), p)

	stats := m.Stats()
	assert.Equal(t, 3, stats.Stores)
	assert.Equal(t, 2, stats.Products)
	assert.Equal(t, 4, stats.Pairs)
	assert.Equal(t, 6, stats.TransferVariables)
	assert.Equal(t, 4*2+6, stats.Variables)
	// balance + service per pair, feasibility for the three product-1 pairs, capacity per store
	assert.Equal(t, 4*2+3+3, stats.Constraints)

	for _, tv := range m.Transfers {
		assert.NotEqual(t, tv.From, tv.To)
		assert.True(t, m.index.valid(tv.From, tv.Product))
		assert.True(t, m.index.valid(tv.To, tv.Product))
	}
	for i := 0; i < m.Problem.NumVariables(); i++ {
		assert.False(t, strings.HasSuffix(m.Problem.VariableName(i), ",2]") &&
			strings.HasPrefix(m.Problem.VariableName(i), "transfer"))
	}

	key := domain.PairKey{StoreID: 1, ProductID: 2}
	assert.Empty(t, m.Outbound(key))
	assert.Empty(t, m.Inbound(key))
	assert.Len(t, m.Outbound(domain.PairKey{StoreID: 0, ProductID: 1}), 2)
}

func TestBuildModelObjectiveCoefficients(t *testing.T) {
	p := DefaultParams()
	in := transferScenario()
	records, err := Preprocess(in, p)
	require.NoError(t, err)
	costs := NewCostModel(in.StoreSupply, in.TransportMatrix, p)
	m := BuildModel(records, costs, p)

	key := domain.PairKey{StoreID: 1, ProductID: 1}
	assert.InDelta(t, 72.5, m.Problem.Cost(m.Mfg[key]), 1e-9)
	assert.Equal(t, p.HoldingCost, m.Problem.Cost(m.Final[key]))
	require.Len(t, m.Transfers, 2)
	assert.InDelta(t, 1.0, m.Problem.Cost(m.Transfers[0].Var), 1e-9)

	var capacity []solver.Constraint
	for _, c := range m.Problem.Constraints() {
		if strings.HasPrefix(c.Name, "capacity") {
			capacity = append(capacity, c)
		}
	}
	require.Len(t, capacity, 2)
	assert.Equal(t, solver.LessOrEqual, capacity[0].Sense)
	assert.Equal(t, p.MfgCapacity, capacity[0].RHS)
}
