package domain

import "time"

// CostImpact is the cost attached to a single recommendation.
type CostImpact struct {
	TransportCost     *float64 `json:"transport_cost,omitempty"`
	NetCostChange     *float64 `json:"net_cost_change,omitempty"`
	ManufacturingCost *float64 `json:"manufacturing_cost,omitempty"`
}

// ServiceLevelImpact compares destination stockout units before and after a transfer.
type ServiceLevelImpact struct {
	BaselineStockoutUnits     float64 `json:"baseline_stockout_units"`
	PostTransferStockoutUnits float64 `json:"post_transfer_stockout_units"`
	StockoutReductionPct      float64 `json:"stockout_reduction_pct"`
}

// TransferRecommendation is the serialized form of a transfer decision.
type TransferRecommendation struct {
	TransferID         string             `json:"transfer_id"`
	FromStore          string             `json:"from_store"`
	ToStore            string             `json:"to_store"`
	ProductID          string             `json:"product_id"`
	Quantity           float64            `json:"quantity"`
	ReasonCodes        []string           `json:"reason_codes"`
	CostImpact         CostImpact         `json:"cost_impact"`
	ServiceLevelImpact ServiceLevelImpact `json:"service_level_impact"`
}

// TransferPlan is the transfer_recommendations.json document.
type TransferPlan struct {
	Scenario  string                   `json:"scenario"`
	Transfers []TransferRecommendation `json:"transfers"`
}

// ManufacturingAction is a manufacturing decision aggregated per product.
type ManufacturingAction struct {
	ManufacturingID     string     `json:"manufacturing_id"`
	ProductID           string     `json:"product_id"`
	ManufactureQuantity float64    `json:"manufacture_quantity"`
	ReasonCodes         []string   `json:"reason_codes"`
	CostImpact          CostImpact `json:"cost_impact"`
}

// ManufacturingPlan is the manufacturing_decisions.json document.
type ManufacturingPlan struct {
	Scenario             string                `json:"scenario"`
	ManufacturingActions []ManufacturingAction `json:"manufacturing_actions"`
}

// ScenarioMetrics are headline numbers for one side of the comparison.
type ScenarioMetrics struct {
	TotalCost          float64 `json:"total_cost"`
	TotalStockouts     float64 `json:"total_stockouts"`
	TotalTransfers     int     `json:"total_transfers"`
	ManufacturingUnits float64 `json:"manufacturing_units"`
	TransferUnits      float64 `json:"transfer_units"`
}

// ScenarioDelta is optimized minus baseline.
type ScenarioDelta struct {
	CostChange             float64 `json:"cost_change"`
	StockoutReductionUnits float64 `json:"stockout_reduction_units"`
	StockoutReductionPct   float64 `json:"stockout_reduction_pct"`
}

// CostBreakdown splits the optimized total cost.
type CostBreakdown struct {
	ManufacturingCost float64 `json:"manufacturing_cost"`
	TransferCost      float64 `json:"transfer_cost"`
	HoldingCost       float64 `json:"holding_cost"`
}

// ScenarioSummary is the scenario_summary.json document.
type ScenarioSummary struct {
	Scenario      string          `json:"scenario"`
	Status        string          `json:"status"`
	Optimal       bool            `json:"optimal"`
	Baseline      ScenarioMetrics `json:"baseline"`
	Optimized     ScenarioMetrics `json:"optimized"`
	Delta         ScenarioDelta   `json:"delta"`
	CostBreakdown CostBreakdown   `json:"cost_breakdown"`
}

// ScenarioReport groups the three record families of one run.
type ScenarioReport struct {
	Transfers     TransferPlan      `json:"transfers"`
	Manufacturing ManufacturingPlan `json:"manufacturing"`
	Summary       ScenarioSummary   `json:"scenario"`
}

// ScenarioRun is a persisted optimization run.
type ScenarioRun struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Status      string          `json:"status" db:"status"`
	Optimal     bool            `json:"optimal" db:"optimal"`
	InputHash   string          `json:"input_hash" db:"input_hash"`
	TotalCost   float64         `json:"total_cost" db:"total_cost"`
	Runtime     time.Duration   `json:"runtime" db:"runtime_ns"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	Report      *ScenarioReport `json:"report,omitempty" db:"-"`
	StorageKeys []string        `json:"storage_keys,omitempty" db:"-"`
}

// ScenarioRunFilter narrows run listings.
type ScenarioRunFilter struct {
	Name   string
	Status string
	Limit  int
	Offset int
}
