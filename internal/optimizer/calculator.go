package optimizer

import (
	"math"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

// InventoryCalculator derives demand statistics and risk-adjusted targets for
// a store-product record.
type InventoryCalculator struct {
	horizonDays      int
	z                float64
	stdFallbackRatio float64
}

// NewInventoryCalculator creates a calculator from the engine parameters.
func NewInventoryCalculator(p Params) *InventoryCalculator {
	return &InventoryCalculator{
		horizonDays:      p.HorizonDays,
		z:                p.ServiceZ,
		stdFallbackRatio: p.StdFallbackRatio,
	}
}

// Demand sums the first horizonDays daily quantities. Missing days count as zero.
func (ic *InventoryCalculator) Demand(daily []float64) float64 {
	var total float64
	for i := 0; i < ic.horizonDays && i < len(daily); i++ {
		total += daily[i]
	}
	return total
}

// Calculate fills the derived fields of rec. Demand7d, LeadTimeDays and
// DelayProbability must already be set. A nil std means the historical value
// was missing.
func (ic *InventoryCalculator) Calculate(rec *domain.StoreProductRecord, std *float64) {
	// 1. Average daily demand over the horizon
	rec.AvgDailyDemand = rec.Demand7d / float64(ic.horizonDays)

	// 2. Demand std falls back to a fraction of the average
	if std == nil || math.IsNaN(*std) {
		rec.DemandStd = rec.AvgDailyDemand * ic.stdFallbackRatio
	} else {
		rec.DemandStd = *std
	}

	// 3. Safety stock = z × σ × √L × (1 + delay probability)
	rec.SafetyStock = SafetyStock(ic.z, rec.DemandStd, rec.LeadTimeDays, rec.DelayProbability)

	// 4. Target = horizon demand + safety stock
	rec.TargetInventory = rec.Demand7d + rec.SafetyStock
}

// SafetyStock computes z·σ·√L·(1+delayProbability). A negative lead time is
// treated as zero.
func SafetyStock(z, std, leadTimeDays, delayProbability float64) float64 {
	riskFactor := 1 + delayProbability
	return z * std * math.Sqrt(math.Max(0, leadTimeDays)) * riskFactor
}

// DemandCV returns the coefficient of variation of a record's daily demand.
// With zero average demand the CV is 0.5 when the std is also zero and +Inf
// otherwise.
func DemandCV(rec domain.StoreProductRecord) float64 {
	if rec.AvgDailyDemand == 0 {
		if rec.DemandStd == 0 {
			return 0.5
		}
		return math.Inf(1)
	}
	return rec.DemandStd / rec.AvgDailyDemand
}
