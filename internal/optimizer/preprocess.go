package optimizer

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// Preprocess merges forecast, history and store supply inputs into one record
// per valid pair, sorted by (store, product). Missing optional values are
// filled with the defaults in p. Missing current inventory is synthesized
// from a seeded generator unless p.RequireInventory is set.
func Preprocess(in domain.ScenarioInput, p Params) ([]domain.StoreProductRecord, error) {
	calc := NewInventoryCalculator(p)

	history := make(map[domain.PairKey]domain.HistoricalParam, len(in.Historical))
	for _, h := range in.Historical {
		key := domain.PairKey{StoreID: h.StoreID, ProductID: h.ProductID}
		if _, dup := history[key]; dup {
			continue
		}
		history[key] = h
	}

	supply := make(map[int]domain.StoreSupplyParam, len(in.StoreSupply))
	for _, s := range in.StoreSupply {
		if _, dup := supply[s.StoreID]; dup {
			continue
		}
		supply[s.StoreID] = s
	}

	seen := make(map[domain.PairKey]struct{}, len(in.Forecast))
	// Pairs without a supplied current inventory. Negative supplied values
	// are kept as-is.
	missing := make(map[domain.PairKey]bool, len(in.Forecast))
	records := make([]domain.StoreProductRecord, 0, len(in.Forecast))
	duplicates := 0
	for _, row := range in.Forecast {
		key := domain.PairKey{StoreID: row.StoreID, ProductID: row.ProductID}
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}

		rec := domain.StoreProductRecord{
			StoreID:          row.StoreID,
			ProductID:        row.ProductID,
			Demand7d:         calc.Demand(row.Daily),
			LeadTimeDays:     p.DefaultLeadTimeDays,
			DelayProbability: p.DefaultDelayProbability,
		}

		var std *float64
		missing[key] = true
		if h, ok := history[key]; ok {
			std = h.DemandStd
			if h.CurrentInventory != nil {
				rec.CurrentInventory = *h.CurrentInventory
				missing[key] = false
			}
			if h.CityID != nil {
				rec.CityID = *h.CityID
			}
		}

		if s, ok := supply[row.StoreID]; ok {
			if s.LeadTimeDaysMean != nil {
				rec.LeadTimeDays = *s.LeadTimeDaysMean
			}
			if s.DelayProbabilityMean != nil {
				rec.DelayProbability = *s.DelayProbabilityMean
			}
		}

		calc.Calculate(&rec, std)
		records = append(records, rec)
	}

	if duplicates > 0 {
		log.Warn().Int("duplicates", duplicates).Msg("preprocess: ignored duplicate forecast rows")
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Key().Less(records[j].Key())
	})

	// Inventory is synthesized after sorting so the random stream is consumed
	// in a stable order regardless of input row order.
	rng := rand.New(rand.NewPCG(uint64(p.InventorySeed), 0))
	simulated := 0
	for i := range records {
		rec := &records[i]
		if !missing[rec.Key()] {
			continue
		}
		if p.RequireInventory {
			return nil, fmt.Errorf("store %d product %d: %w", rec.StoreID, rec.ProductID, ErrMissingInventory)
		}
		frac := p.InventoryMinFraction + rng.Float64()*(p.InventoryMaxFraction-p.InventoryMinFraction)
		rec.CurrentInventory = rec.Demand7d * frac
		rec.InventorySimulated = true
		simulated++
	}

	if simulated > 0 {
		log.Warn().
			Int("pairs", simulated).
			Int64("seed", p.InventorySeed).
			Msg("preprocess: current inventory missing, using simulated values")
	}

	return records, nil
}
