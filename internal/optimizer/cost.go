package optimizer

import "github.com/andresuchdata/stockopt/backend-go/internal/domain"

// CostModel prices manufacturing per store and transport per store pair.
type CostModel struct {
	baseMfg         float64
	defaultShipping float64
	shipping        map[int]float64
	matrix          [][]float64
	scale           float64
	fallback        float64
}

// NewCostModel builds the cost model from store supply parameters and the
// transport matrix. The matrix is indexed by store ID.
func NewCostModel(supply []domain.StoreSupplyParam, matrix [][]float64, p Params) *CostModel {
	shipping := make(map[int]float64, len(supply))
	for _, s := range supply {
		if s.ShippingCostsMean == nil {
			continue
		}
		if _, dup := shipping[s.StoreID]; dup {
			continue
		}
		shipping[s.StoreID] = *s.ShippingCostsMean
	}
	return &CostModel{
		baseMfg:         p.BaseMfgCost,
		defaultShipping: p.DefaultShippingCost,
		shipping:        shipping,
		matrix:          matrix,
		scale:           p.TransportScale,
		fallback:        p.FallbackTransportCost,
	}
}

// Manufacturing returns the unit manufacturing cost at a store:
// base · (1 + shipping factor / 1000).
func (c *CostModel) Manufacturing(store int) float64 {
	factor, ok := c.shipping[store]
	if !ok {
		factor = c.defaultShipping
	}
	return c.baseMfg * (1 + factor/1000)
}

// Transport returns the unit cost of moving one unit from store i to store j.
// Self-pairs are free; pairs outside the matrix use the fallback constant.
func (c *CostModel) Transport(i, j int) float64 {
	if i == j {
		return 0
	}
	if i < 0 || j < 0 || i >= len(c.matrix) || j >= len(c.matrix[i]) {
		return c.fallback
	}
	return c.matrix[i][j] * c.scale
}
