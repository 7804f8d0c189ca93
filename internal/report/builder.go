// Package report turns an optimization result into the JSON documents and
// tabular mirrors consumed downstream. Rounding happens here and nowhere else.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
)

// Build assembles all three record families for a result.
func Build(res *optimizer.Result, p optimizer.Params) *domain.ScenarioReport {
	return &domain.ScenarioReport{
		Transfers:     TransferPlan(res),
		Manufacturing: ManufacturingPlan(res),
		Summary:       Summary(res, p),
	}
}

func stockout(demand, inventory float64) float64 {
	return math.Max(0, demand-inventory)
}

func reduction(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (before - after) / before
}

// TransferPlan lists transfers in decision order with sequential IDs.
func TransferPlan(res *optimizer.Result) domain.TransferPlan {
	records := make(map[domain.PairKey]domain.StoreProductRecord, len(res.Records))
	for _, r := range res.Records {
		records[r.Key()] = r
	}

	plan := domain.TransferPlan{
		Scenario:  res.Scenario,
		Transfers: make([]domain.TransferRecommendation, 0, len(res.Transfers)),
	}
	for i, t := range res.Transfers {
		dst := records[domain.PairKey{StoreID: t.ToStore, ProductID: t.ProductID}]
		before := stockout(dst.Demand7d, dst.CurrentInventory)
		after := stockout(dst.Demand7d, dst.CurrentInventory+t.Quantity)

		plan.Transfers = append(plan.Transfers, domain.TransferRecommendation{
			TransferID:  fmt.Sprintf("T%03d", i+1),
			FromStore:   strconv.Itoa(t.FromStore),
			ToStore:     strconv.Itoa(t.ToStore),
			ProductID:   strconv.Itoa(t.ProductID),
			Quantity:    Units(t.Quantity),
			ReasonCodes: t.ReasonCodes,
			CostImpact: domain.CostImpact{
				TransportCost: currencyPtr(t.Cost),
				NetCostChange: currencyPtr(t.Cost - t.AvoidedMfgCost),
			},
			ServiceLevelImpact: domain.ServiceLevelImpact{
				BaselineStockoutUnits:     Units(before),
				PostTransferStockoutUnits: Units(after),
				StockoutReductionPct:      Ratio(reduction(before, after)),
			},
		})
	}
	return plan
}

type productMfg struct {
	quantity float64
	cost     float64
	codes    [][]string
}

// ManufacturingPlan aggregates manufacturing decisions per product, ordered
// by product ID. Reason codes are the union over the product's stores.
func ManufacturingPlan(res *optimizer.Result) domain.ManufacturingPlan {
	byProduct := make(map[int]*productMfg)
	var products []int
	for _, m := range res.Manufacturing {
		agg, ok := byProduct[m.ProductID]
		if !ok {
			agg = &productMfg{}
			byProduct[m.ProductID] = agg
			products = append(products, m.ProductID)
		}
		agg.quantity += m.Quantity
		agg.cost += m.Cost
		agg.codes = append(agg.codes, m.ReasonCodes)
	}
	sort.Ints(products)

	plan := domain.ManufacturingPlan{
		Scenario:             res.Scenario,
		ManufacturingActions: make([]domain.ManufacturingAction, 0, len(products)),
	}
	for i, pid := range products {
		agg := byProduct[pid]
		plan.ManufacturingActions = append(plan.ManufacturingActions, domain.ManufacturingAction{
			ManufacturingID:     fmt.Sprintf("M%03d", i+1),
			ProductID:           strconv.Itoa(pid),
			ManufactureQuantity: Units(agg.quantity),
			ReasonCodes:         optimizer.UnionReasons(optimizer.ManufacturingReasonOrder, agg.codes...),
			CostImpact: domain.CostImpact{
				ManufacturingCost: currencyPtr(agg.cost),
			},
		})
	}
	return plan
}

// Summary compares the optimized plan with doing nothing. The baseline keeps
// current inventory in place: its only cost is holding, and its stockouts are
// the demand current inventory cannot cover.
func Summary(res *optimizer.Result, p optimizer.Params) domain.ScenarioSummary {
	var baselineCost, baselineStockouts float64
	for _, r := range res.Records {
		baselineCost += p.HoldingCost * r.CurrentInventory
		baselineStockouts += stockout(r.Demand7d, r.CurrentInventory)
	}

	var optimizedStockouts float64
	for _, pos := range res.Inventory {
		optimizedStockouts += stockout(pos.Demand, pos.Final)
	}

	var mfgUnits, transferUnits float64
	for _, m := range res.Manufacturing {
		mfgUnits += m.Quantity
	}
	for _, t := range res.Transfers {
		transferUnits += t.Quantity
	}

	total := res.Costs.Total()
	return domain.ScenarioSummary{
		Scenario: res.Scenario,
		Status:   optimizer.RunStatus(res.Status),
		Optimal:  res.Optimal,
		Baseline: domain.ScenarioMetrics{
			TotalCost:      Currency(baselineCost),
			TotalStockouts: Units(baselineStockouts),
		},
		Optimized: domain.ScenarioMetrics{
			TotalCost:          Currency(total),
			TotalStockouts:     Units(optimizedStockouts),
			TotalTransfers:     len(res.Transfers),
			ManufacturingUnits: Units(mfgUnits),
			TransferUnits:      Units(transferUnits),
		},
		Delta: domain.ScenarioDelta{
			CostChange:             Currency(total - baselineCost),
			StockoutReductionUnits: Units(baselineStockouts - optimizedStockouts),
			StockoutReductionPct:   Ratio(reduction(baselineStockouts, optimizedStockouts)),
		},
		CostBreakdown: domain.CostBreakdown{
			ManufacturingCost: Currency(res.Costs.Manufacturing),
			TransferCost:      Currency(res.Costs.Transfer),
			HoldingCost:       Currency(res.Costs.Holding),
		},
	}
}
