package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
)

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(strings.TrimPrefix(name, "\ufeff")))
	return columnNameSanitizer.Replace(name)
}

// dayColumn matches normalized forecast day columns such as "day+1" or "day_3".
var dayColumn = regexp.MustCompile(`^day\+?(\d+)$`)

type table struct {
	name   string
	header []string
	rows   [][]string
}

func readTable(name string, r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", name)
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &table{name: name, header: header, rows: rows}, nil
}

func (t *table) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

func (t *table) requireCol(names ...string) (int, error) {
	idx := t.colIndex(names...)
	if idx < 0 {
		return -1, fmt.Errorf("%s: missing required column %q", t.name, names[0])
	}
	return idx, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func isBlank(v string) bool {
	switch strings.ToLower(v) {
	case "", "nan", "null", "na", "none":
		return true
	}
	return false
}

// parseID accepts integral values written as floats ("12.0").
func parseID(v string) (int, error) {
	if i, err := strconv.Atoi(v); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid id %q", v)
	}
	return int(f), nil
}

func parseNumber(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return f, nil
}

func optionalNumber(record []string, idx int) (*float64, error) {
	v := cell(record, idx)
	if isBlank(v) {
		return nil, nil
	}
	f, err := parseNumber(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// rowError prefixes an error with the file name and 1-based line number.
func rowError(name string, row int, err error) error {
	return fmt.Errorf("%s line %d: %w", name, row+2, err)
}

// ReadForecast parses the wide forecast table: store_id, product_id and one
// column per horizon day ("day+1", "day+2", ...). Blank days count as zero.
func ReadForecast(r io.Reader) ([]domain.ForecastRow, error) {
	t, err := readTable("forecast", r)
	if err != nil {
		return nil, err
	}
	idxStore, err := t.requireCol("store_id")
	if err != nil {
		return nil, err
	}
	idxProduct, err := t.requireCol("product_id")
	if err != nil {
		return nil, err
	}

	type dayCol struct{ day, idx int }
	var days []dayCol
	for i, h := range t.header {
		m := dayColumn.FindStringSubmatch(normalizeColumnName(h))
		if m == nil {
			continue
		}
		d, _ := strconv.Atoi(m[1])
		if d >= 1 {
			days = append(days, dayCol{day: d, idx: i})
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("forecast: no day+N columns found")
	}
	sort.Slice(days, func(i, j int) bool { return days[i].day < days[j].day })
	horizon := days[len(days)-1].day

	out := make([]domain.ForecastRow, 0, len(t.rows))
	for n, rec := range t.rows {
		store, err := parseID(cell(rec, idxStore))
		if err != nil {
			return nil, rowError(t.name, n, err)
		}
		product, err := parseID(cell(rec, idxProduct))
		if err != nil {
			return nil, rowError(t.name, n, err)
		}
		daily := make([]float64, horizon)
		for _, d := range days {
			v, err := optionalNumber(rec, d.idx)
			if err != nil {
				return nil, rowError(t.name, n, err)
			}
			if v != nil {
				daily[d.day-1] = *v
			}
		}
		out = append(out, domain.ForecastRow{StoreID: store, ProductID: product, Daily: daily})
	}
	return out, nil
}

// ReadHistorical parses per-pair history. demand_std, current_inventory and
// city_id are optional, per column and per cell.
func ReadHistorical(r io.Reader) ([]domain.HistoricalParam, error) {
	t, err := readTable("historical", r)
	if err != nil {
		return nil, err
	}
	idxStore, err := t.requireCol("store_id")
	if err != nil {
		return nil, err
	}
	idxProduct, err := t.requireCol("product_id")
	if err != nil {
		return nil, err
	}
	idxStd := t.colIndex("demand_std")
	idxInventory := t.colIndex("current_inventory")
	idxCity := t.colIndex("city_id")

	out := make([]domain.HistoricalParam, 0, len(t.rows))
	for n, rec := range t.rows {
		h := domain.HistoricalParam{}
		if h.StoreID, err = parseID(cell(rec, idxStore)); err != nil {
			return nil, rowError(t.name, n, err)
		}
		if h.ProductID, err = parseID(cell(rec, idxProduct)); err != nil {
			return nil, rowError(t.name, n, err)
		}
		if h.DemandStd, err = optionalNumber(rec, idxStd); err != nil {
			return nil, rowError(t.name, n, err)
		}
		if h.CurrentInventory, err = optionalNumber(rec, idxInventory); err != nil {
			return nil, rowError(t.name, n, err)
		}
		if v := cell(rec, idxCity); !isBlank(v) {
			city, err := parseID(v)
			if err != nil {
				return nil, rowError(t.name, n, err)
			}
			h.CityID = &city
		}
		out = append(out, h)
	}
	return out, nil
}

// ReadStoreSupply parses per-store lead time, delay probability and shipping
// cost means. Every column other than store_id is optional.
func ReadStoreSupply(r io.Reader) ([]domain.StoreSupplyParam, error) {
	t, err := readTable("store_supply", r)
	if err != nil {
		return nil, err
	}
	idxStore, err := t.requireCol("store_id")
	if err != nil {
		return nil, err
	}
	idxLead := t.colIndex("lead_time_days_mean", "lead_time_days")
	idxDelay := t.colIndex("delay_probability_mean", "delay_probability")
	idxShipping := t.colIndex("shipping_costs_mean", "shipping_cost")

	out := make([]domain.StoreSupplyParam, 0, len(t.rows))
	for n, rec := range t.rows {
		s := domain.StoreSupplyParam{}
		if s.StoreID, err = parseID(cell(rec, idxStore)); err != nil {
			return nil, rowError(t.name, n, err)
		}
		if s.LeadTimeDaysMean, err = optionalNumber(rec, idxLead); err != nil {
			return nil, rowError(t.name, n, err)
		}
		if s.DelayProbabilityMean, err = optionalNumber(rec, idxDelay); err != nil {
			return nil, rowError(t.name, n, err)
		}
		if s.ShippingCostsMean, err = optionalNumber(rec, idxShipping); err != nil {
			return nil, rowError(t.name, n, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadTransportMatrix parses a store-by-store cost matrix. The first column
// holds row labels and the header row holds column labels; both are ignored.
// Row i of the result is the source store with ID i.
func ReadTransportMatrix(r io.Reader) ([][]float64, error) {
	t, err := readTable("transport_matrix", r)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, len(t.rows))
	for n, rec := range t.rows {
		if len(rec) < 2 {
			return nil, rowError(t.name, n, fmt.Errorf("expected a label and at least one value"))
		}
		row := make([]float64, len(rec)-1)
		for j, v := range rec[1:] {
			v = strings.TrimSpace(v)
			if isBlank(v) {
				continue
			}
			if row[j], err = parseNumber(v); err != nil {
				return nil, rowError(t.name, n, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}
