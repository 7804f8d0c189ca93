package optimizer

import (
	"testing"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTransferReasons(t *testing.T) {
	th := DefaultParams().Thresholds
	src := domain.StoreProductRecord{CurrentInventory: 300, TargetInventory: 100}
	dst := domain.StoreProductRecord{
		CurrentInventory: 5,
		Demand7d:         70,
		SafetyStock:      20,
		AvgDailyDemand:   10,
		DemandStd:        8,
		DelayProbability: 0.6,
	}

	assert.Equal(t, []string{
		ReasonProjectedStockout,
		ReasonExcessAtSource,
		ReasonSafetyStockViolation,
		ReasonHighDemandVariability,
		ReasonHighDelayProbability,
		ReasonTransportCostAcceptable,
	}, TransferReasons(src, dst, 1, 50, th))
}

func TestTransferReasonsFallback(t *testing.T) {
	th := DefaultParams().Thresholds
	rec := domain.StoreProductRecord{
		CurrentInventory: 100,
		TargetInventory:  100,
		Demand7d:         70,
		AvgDailyDemand:   10,
		DemandStd:        1,
	}
	assert.Equal(t, []string{ReasonRebalanceInventory}, TransferReasons(rec, rec, 80, 50, th))
}

func TestManufacturingReasons(t *testing.T) {
	th := DefaultParams().Thresholds
	rec := domain.StoreProductRecord{
		CurrentInventory: 0,
		Demand7d:         100,
		SafetyStock:      50,
		AvgDailyDemand:   100.0 / 7,
		DemandStd:        1,
	}

	assert.Equal(t, []string{ReasonManufactureToAvoidStockout, ReasonSafetyStockViolation},
		ManufacturingReasons(rec, 150, 5000, th))
	assert.Contains(t, ManufacturingReasons(rec, 4600, 5000, th), ReasonCapacityConstrained)
	assert.NotContains(t, ManufacturingReasons(rec, 4500, 5000, th), ReasonCapacityConstrained)

	idle := domain.StoreProductRecord{CurrentInventory: 10}
	assert.Equal(t, []string{ReasonAggregateDemand}, ManufacturingReasons(idle, 10, 5000, th))
}

func TestUnionReasonsKeepsCanonicalOrder(t *testing.T) {
	got := UnionReasons(ManufacturingReasonOrder,
		[]string{ReasonHighDelayProbability, ReasonManufactureToAvoidStockout},
		[]string{"custom_code", ReasonSafetyStockViolation, ReasonManufactureToAvoidStockout},
	)
	assert.Equal(t, []string{
		ReasonManufactureToAvoidStockout,
		ReasonSafetyStockViolation,
		ReasonHighDelayProbability,
		"custom_code",
	}, got)
	assert.Empty(t, UnionReasons(ManufacturingReasonOrder))
}
