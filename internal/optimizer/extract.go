package optimizer

import (
	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

// Extraction is the decision set read back from a solver assignment.
type Extraction struct {
	Transfers     []domain.TransferDecision
	Manufacturing []domain.ManufacturingDecision
	Inventory     []domain.InventoryPosition
	Costs         domain.CostTotals
}

// Extract converts solver values into decisions. Any value at or below
// p.NoiseThreshold is treated as zero and left out of decisions and totals.
func Extract(m *Model, values []float64, p Params) Extraction {
	ix := m.index
	keep := func(v float64) bool { return v > p.NoiseThreshold }

	var out Extraction

	// 1. Per-store manufacturing totals, needed by the capacity rule
	storeMfg := make(map[int]float64, len(ix.stores))
	for _, s := range ix.stores {
		for _, pr := range ix.productsByStore[s] {
			if q := values[m.Mfg[domain.PairKey{StoreID: s, ProductID: pr}]]; keep(q) {
				storeMfg[s] += q
			}
		}
	}

	// 2. Manufacturing decisions and final inventory, in (store, product) order
	for _, s := range ix.stores {
		unit := m.costs.Manufacturing(s)
		for _, pr := range ix.productsByStore[s] {
			key := domain.PairKey{StoreID: s, ProductID: pr}
			rec, _ := ix.record(key)

			if q := values[m.Mfg[key]]; keep(q) {
				cost := q * unit
				out.Manufacturing = append(out.Manufacturing, domain.ManufacturingDecision{
					StoreID:     s,
					ProductID:   pr,
					Quantity:    q,
					Cost:        cost,
					ReasonCodes: ManufacturingReasons(rec, storeMfg[s], p.MfgCapacity, p.Thresholds),
				})
				out.Costs.Manufacturing += cost
			}

			final := values[m.Final[key]]
			if !keep(final) {
				final = 0
			}
			out.Costs.Holding += final * p.HoldingCost
			out.Inventory = append(out.Inventory, domain.InventoryPosition{
				StoreID:   s,
				ProductID: pr,
				Demand:    rec.Demand7d,
				Current:   rec.CurrentInventory,
				Final:     final,
				Target:    rec.TargetInventory,
			})
		}
	}

	// 3. Transfers, in (product, from, to) order
	for _, tv := range m.Transfers {
		q := values[tv.Var]
		if !keep(q) {
			continue
		}
		src, _ := ix.record(domain.PairKey{StoreID: tv.From, ProductID: tv.Product})
		dst, _ := ix.record(domain.PairKey{StoreID: tv.To, ProductID: tv.Product})
		unit := m.costs.Transport(tv.From, tv.To)
		dstMfg := m.costs.Manufacturing(tv.To)
		cost := q * unit
		out.Transfers = append(out.Transfers, domain.TransferDecision{
			FromStore:      tv.From,
			ToStore:        tv.To,
			ProductID:      tv.Product,
			Quantity:       q,
			Cost:           cost,
			ReasonCodes:    TransferReasons(src, dst, unit, dstMfg, p.Thresholds),
			AvoidedMfgCost: q * dstMfg,
		})
		out.Costs.Transfer += cost
	}

	return out
}
