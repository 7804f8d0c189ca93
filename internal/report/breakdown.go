package report

import (
	"github.com/rs/zerolog"

	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
)

// percentOf returns part as a percentage of total, to one decimal.
func percentOf(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return roundTo(part/total*100, 1)
}

// LogCostBreakdown writes the cost split and unit totals of a result.
func LogCostBreakdown(l zerolog.Logger, res *optimizer.Result) {
	total := res.Costs.Total()

	var mfgUnits, transferUnits float64
	for _, m := range res.Manufacturing {
		mfgUnits += m.Quantity
	}
	for _, t := range res.Transfers {
		transferUnits += t.Quantity
	}

	l.Info().
		Str("scenario", res.Scenario).
		Float64("manufacturing", Currency(res.Costs.Manufacturing)).
		Float64("manufacturing_pct", percentOf(res.Costs.Manufacturing, total)).
		Float64("transfer", Currency(res.Costs.Transfer)).
		Float64("transfer_pct", percentOf(res.Costs.Transfer, total)).
		Float64("holding", Currency(res.Costs.Holding)).
		Float64("holding_pct", percentOf(res.Costs.Holding, total)).
		Float64("total", Currency(total)).
		Float64("manufacturing_units", Units(mfgUnits)).
		Float64("transfer_units", Units(transferUnits)).
		Msg("cost breakdown")
}
