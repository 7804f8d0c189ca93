package domain

import "strings"

// Run statuses as stored and served.
const (
	RunStatusOptimal    = "optimal"
	RunStatusTimeLimit  = "time_limit_reached"
	RunStatusInfeasible = "infeasible"
	RunStatusUnbounded  = "unbounded"
)

var runStatusLabels = map[string]string{
	RunStatusOptimal:    "Optimal",
	RunStatusTimeLimit:  "Time limit reached (not proven optimal)",
	RunStatusInfeasible: "Infeasible",
	RunStatusUnbounded:  "Unbounded",
}

// RunStatusLabel returns a human-readable label for a run status.
func RunStatusLabel(status string) string {
	if label, ok := runStatusLabels[status]; ok {
		return label
	}

	return "Unknown"
}

// ParseRunStatus normalizes a status string (case-insensitive).
func ParseRunStatus(label string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	_, ok := runStatusLabels[s]

	return s, ok
}

var reasonCodeText = map[string]string{
	"projected_stockout_at_destination":  "the destination location is projected to face a stockout",
	"excess_inventory_at_source":         "the source location has excess inventory beyond safety stock",
	"safety_stock_violation_prevented":   "inventory would otherwise fall below safety stock",
	"high_demand_variability":            "demand variability is higher than normal",
	"high_delay_probability":             "inbound shipments face elevated delay risk",
	"transport_cost_acceptable":          "the transportation cost is justified relative to service impact",
	"rebalance_inventory":                "inventory is being rebalanced across the network",
	"aggregate_demand_exceeds_inventory": "total network demand exceeds available inventory",
	"manufacture_to_avoid_stockout":      "manufacturing is required to prevent stockouts",
	"manufacturing_capacity_constrained": "manufacturing capacity constraints are active",
}

// ReasonCodeText returns the explanation text for a reason code, or the code
// with underscores replaced when the code is unknown.
func ReasonCodeText(code string) string {
	if text, ok := reasonCodeText[code]; ok {
		return text
	}

	return strings.ReplaceAll(code, "_", " ")
}
