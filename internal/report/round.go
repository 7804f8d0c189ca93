package report

import "github.com/shopspring/decimal"

const (
	currencyPlaces = 2
	unitPlaces     = 1
	ratioPlaces    = 4
)

func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Currency rounds a monetary amount to cents.
func Currency(v float64) float64 { return roundTo(v, currencyPlaces) }

// Units rounds a quantity to one decimal place.
func Units(v float64) float64 { return roundTo(v, unitPlaces) }

// Ratio rounds a fraction such as a stockout reduction share.
func Ratio(v float64) float64 { return roundTo(v, ratioPlaces) }

func currencyPtr(v float64) *float64 {
	r := Currency(v)
	return &r
}
