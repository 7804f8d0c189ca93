package optimizer

import (
	"errors"
	"fmt"
	"time"
)

// ReasonThresholds are the cut-offs used by the reason-code rules.
type ReasonThresholds struct {
	HighCV        float64 // coefficient of variation above which demand is "highly variable"
	HighDelayProb float64 // delay probability above which supply is "high risk"
	CapacityRatio float64 // share of MfgCapacity above which a store is "capacity constrained"
}

// Params holds every constant the engine uses. Values are passed explicitly
// into each stage; nothing is read from package state.
type Params struct {
	// Preprocessing
	HorizonDays             int
	ServiceZ                float64
	StdFallbackRatio        float64
	DefaultLeadTimeDays     float64
	DefaultDelayProbability float64
	InventorySeed           int64
	InventoryMinFraction    float64
	InventoryMaxFraction    float64
	RequireInventory        bool

	// Costs
	BaseMfgCost           float64
	DefaultShippingCost   float64
	HoldingCost           float64
	TransportScale        float64
	FallbackTransportCost float64
	MfgCapacity           float64

	// Extraction
	NoiseThreshold float64
	Thresholds     ReasonThresholds

	// Solve
	TimeLimit time.Duration
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		HorizonDays:             7,
		ServiceZ:                1.65, // 95% one-sided service level
		StdFallbackRatio:        0.5,
		DefaultLeadTimeDays:     5,
		DefaultDelayProbability: 0.7,
		InventorySeed:           42,
		InventoryMinFraction:    0.3,
		InventoryMaxFraction:    0.8,

		BaseMfgCost:           50,
		DefaultShippingCost:   450,
		HoldingCost:           1.0,
		TransportScale:        0.1,
		FallbackTransportCost: 5.0,
		MfgCapacity:           5000,

		NoiseThreshold: 0.01,
		Thresholds: ReasonThresholds{
			HighCV:        0.7,
			HighDelayProb: 0.5,
			CapacityRatio: 0.9,
		},

		TimeLimit: 300 * time.Second,
	}
}

// Validate rejects parameter sets the engine cannot work with.
func (p Params) Validate() error {
	var errs []error
	if p.HorizonDays <= 0 {
		errs = append(errs, fmt.Errorf("horizon days must be positive, got %d", p.HorizonDays))
	}
	if p.ServiceZ < 0 {
		errs = append(errs, fmt.Errorf("service z must be non-negative, got %v", p.ServiceZ))
	}
	if p.InventoryMinFraction < 0 || p.InventoryMaxFraction < p.InventoryMinFraction {
		errs = append(errs, fmt.Errorf("invalid inventory fraction range [%v, %v]", p.InventoryMinFraction, p.InventoryMaxFraction))
	}
	if p.MfgCapacity < 0 {
		errs = append(errs, fmt.Errorf("manufacturing capacity must be non-negative, got %v", p.MfgCapacity))
	}
	if p.NoiseThreshold < 0 {
		errs = append(errs, fmt.Errorf("noise threshold must be non-negative, got %v", p.NoiseThreshold))
	}
	if p.TimeLimit < 0 {
		errs = append(errs, fmt.Errorf("time limit must be non-negative, got %v", p.TimeLimit))
	}
	return errors.Join(errs...)
}
