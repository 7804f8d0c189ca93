// backend-go/internal/domain/models.go
package domain

// ForecastRow is one (store, product) line of the demand forecast with
// day-indexed quantities over the forecast horizon.
type ForecastRow struct {
	StoreID   int       `json:"store_id"`
	ProductID int       `json:"product_id"`
	Daily     []float64 `json:"daily"`
}

// HistoricalParam carries per-pair history. Nil fields were absent in the source.
type HistoricalParam struct {
	StoreID          int      `json:"store_id"`
	ProductID        int      `json:"product_id"`
	DemandStd        *float64 `json:"demand_std,omitempty"`
	CurrentInventory *float64 `json:"current_inventory,omitempty"`
	CityID           *int     `json:"city_id,omitempty"`
}

// StoreSupplyParam carries per-store supply risk and shipping cost.
type StoreSupplyParam struct {
	StoreID              int      `json:"store_id"`
	LeadTimeDaysMean     *float64 `json:"lead_time_days_mean,omitempty"`
	DelayProbabilityMean *float64 `json:"delay_probability_mean,omitempty"`
	ShippingCostsMean    *float64 `json:"shipping_costs_mean,omitempty"`
}

// ScenarioInput bundles everything one optimization run consumes.
type ScenarioInput struct {
	Name            string             `json:"name"`
	Forecast        []ForecastRow      `json:"forecast"`
	Historical      []HistoricalParam  `json:"historical"`
	StoreSupply     []StoreSupplyParam `json:"store_supply"`
	TransportMatrix [][]float64        `json:"transport_matrix"`
}

// PairKey identifies a (store, product) combination.
type PairKey struct {
	StoreID   int
	ProductID int
}

// Less orders keys by store, then product.
func (k PairKey) Less(o PairKey) bool {
	if k.StoreID != o.StoreID {
		return k.StoreID < o.StoreID
	}
	return k.ProductID < o.ProductID
}

// StoreProductRecord is the enriched per-pair record every decision variable
// is defined over.
type StoreProductRecord struct {
	StoreID            int     `json:"store_id"`
	ProductID          int     `json:"product_id"`
	CityID             int     `json:"city_id"`
	Demand7d           float64 `json:"demand_7d"`
	AvgDailyDemand     float64 `json:"avg_daily_demand"`
	DemandStd          float64 `json:"demand_std"`
	LeadTimeDays       float64 `json:"lead_time_days"`
	DelayProbability   float64 `json:"delay_probability"`
	CurrentInventory   float64 `json:"current_inventory"`
	InventorySimulated bool    `json:"inventory_simulated"`
	SafetyStock        float64 `json:"safety_stock"`
	TargetInventory    float64 `json:"target_inventory"`
}

// Key returns the record's pair key.
func (r StoreProductRecord) Key() PairKey {
	return PairKey{StoreID: r.StoreID, ProductID: r.ProductID}
}

// TransferDecision moves Quantity units of a product between two stores.
type TransferDecision struct {
	FromStore   int      `json:"from_store"`
	ToStore     int      `json:"to_store"`
	ProductID   int      `json:"product_id"`
	Quantity    float64  `json:"quantity"`
	Cost        float64  `json:"cost"`
	ReasonCodes []string `json:"reason_codes"`
	// AvoidedMfgCost is what making Quantity at the destination would have cost.
	AvoidedMfgCost float64 `json:"avoided_mfg_cost"`
}

// ManufacturingDecision produces Quantity units of a product at a store.
type ManufacturingDecision struct {
	StoreID     int      `json:"store_id"`
	ProductID   int      `json:"product_id"`
	Quantity    float64  `json:"quantity"`
	Cost        float64  `json:"cost"`
	ReasonCodes []string `json:"reason_codes"`
}

// InventoryPosition is the before/after inventory of one pair.
type InventoryPosition struct {
	StoreID   int     `json:"store_id"`
	ProductID int     `json:"product_id"`
	Demand    float64 `json:"demand"`
	Current   float64 `json:"current"`
	Final     float64 `json:"final"`
	Target    float64 `json:"target"`
}

// CostTotals splits the objective into its three terms.
type CostTotals struct {
	Manufacturing float64 `json:"manufacturing"`
	Transfer      float64 `json:"transfer"`
	Holding       float64 `json:"holding"`
}

// Total returns the sum of all cost terms.
func (c CostTotals) Total() float64 {
	return c.Manufacturing + c.Transfer + c.Holding
}
