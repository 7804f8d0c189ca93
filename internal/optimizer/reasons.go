package optimizer

import (
	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

// Reason codes attached to decisions.
const (
	ReasonProjectedStockout       = "projected_stockout_at_destination"
	ReasonExcessAtSource          = "excess_inventory_at_source"
	ReasonSafetyStockViolation    = "safety_stock_violation_prevented"
	ReasonHighDemandVariability   = "high_demand_variability"
	ReasonHighDelayProbability    = "high_delay_probability"
	ReasonTransportCostAcceptable = "transport_cost_acceptable"
	ReasonRebalanceInventory      = "rebalance_inventory"

	ReasonManufactureToAvoidStockout = "manufacture_to_avoid_stockout"
	ReasonCapacityConstrained        = "manufacturing_capacity_constrained"
	ReasonAggregateDemand            = "aggregate_demand_exceeds_inventory"
)

// TransferReasonOrder is the order transfer codes are emitted in.
var TransferReasonOrder = []string{
	ReasonProjectedStockout,
	ReasonExcessAtSource,
	ReasonSafetyStockViolation,
	ReasonHighDemandVariability,
	ReasonHighDelayProbability,
	ReasonTransportCostAcceptable,
	ReasonRebalanceInventory,
}

// ManufacturingReasonOrder is the order manufacturing codes are emitted in.
var ManufacturingReasonOrder = []string{
	ReasonManufactureToAvoidStockout,
	ReasonSafetyStockViolation,
	ReasonHighDemandVariability,
	ReasonHighDelayProbability,
	ReasonCapacityConstrained,
	ReasonAggregateDemand,
}

// TransferReasons returns the codes justifying a transfer from src to dst.
// Rules are evaluated on pre-optimization values.
func TransferReasons(src, dst domain.StoreProductRecord, transportCost, dstMfgCost float64, th ReasonThresholds) []string {
	var codes []string
	if dst.CurrentInventory < dst.Demand7d {
		codes = append(codes, ReasonProjectedStockout)
	}
	if src.CurrentInventory > src.TargetInventory {
		codes = append(codes, ReasonExcessAtSource)
	}
	if dst.CurrentInventory < dst.SafetyStock {
		codes = append(codes, ReasonSafetyStockViolation)
	}
	if DemandCV(dst) > th.HighCV {
		codes = append(codes, ReasonHighDemandVariability)
	}
	if dst.DelayProbability > th.HighDelayProb {
		codes = append(codes, ReasonHighDelayProbability)
	}
	if transportCost < dstMfgCost {
		codes = append(codes, ReasonTransportCostAcceptable)
	}
	if len(codes) == 0 {
		codes = append(codes, ReasonRebalanceInventory)
	}
	return codes
}

// ManufacturingReasons returns the codes justifying manufacturing at a pair.
// storeTotal is the store's non-negligible manufacturing quantity across all
// products.
func ManufacturingReasons(rec domain.StoreProductRecord, storeTotal, capacity float64, th ReasonThresholds) []string {
	var codes []string
	if rec.CurrentInventory < rec.Demand7d {
		codes = append(codes, ReasonManufactureToAvoidStockout)
	}
	if rec.CurrentInventory < rec.SafetyStock {
		codes = append(codes, ReasonSafetyStockViolation)
	}
	if DemandCV(rec) > th.HighCV {
		codes = append(codes, ReasonHighDemandVariability)
	}
	if rec.DelayProbability > th.HighDelayProb {
		codes = append(codes, ReasonHighDelayProbability)
	}
	if storeTotal > th.CapacityRatio*capacity {
		codes = append(codes, ReasonCapacityConstrained)
	}
	if len(codes) == 0 {
		codes = append(codes, ReasonAggregateDemand)
	}
	return codes
}

// UnionReasons merges code sets and returns them in the given canonical
// order. Codes missing from order are appended in first-seen order.
func UnionReasons(order []string, sets ...[]string) []string {
	seen := make(map[string]bool)
	var extra []string
	for _, set := range sets {
		for _, c := range set {
			if seen[c] {
				continue
			}
			seen[c] = true
			extra = append(extra, c)
		}
	}

	out := make([]string, 0, len(seen))
	known := make(map[string]bool, len(order))
	for _, c := range order {
		known[c] = true
		if seen[c] {
			out = append(out, c)
		}
	}
	for _, c := range extra {
		if !known[c] {
			out = append(out, c)
		}
	}
	return out
}
