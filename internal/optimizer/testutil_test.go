package optimizer

import (
	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func flat(total float64) []float64 {
	d := make([]float64, 7)
	d[0] = total
	return d
}

func history(store, product int, std, current float64) domain.HistoricalParam {
	return domain.HistoricalParam{
		StoreID:          store,
		ProductID:        product,
		DemandStd:        fptr(std),
		CurrentInventory: fptr(current),
	}
}

func supply(store int, lead, delay, shipping float64) domain.StoreSupplyParam {
	return domain.StoreSupplyParam{
		StoreID:              store,
		LeadTimeDaysMean:     fptr(lead),
		DelayProbabilityMean: fptr(delay),
		ShippingCostsMean:    fptr(shipping),
	}
}

// transferScenario has surplus at store 0 and an empty store 1 for product 1.
func transferScenario() domain.ScenarioInput {
	return domain.ScenarioInput{
		Name: "transfer",
		Forecast: []domain.ForecastRow{
			{StoreID: 0, ProductID: 1, Daily: []float64{10, 10, 10, 10, 10, 10, 10}},
			{StoreID: 1, ProductID: 1, Daily: []float64{10, 10, 10, 10, 10, 10, 10}},
		},
		Historical: []domain.HistoricalParam{
			history(0, 1, 0, 300),
			history(1, 1, 0, 0),
		},
		StoreSupply: []domain.StoreSupplyParam{
			supply(0, 3, 0.2, 450),
			supply(1, 3, 0.2, 450),
		},
		TransportMatrix: [][]float64{{0, 10}, {10, 0}},
	}
}
