package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
)

// Output file names.
const (
	TransferFile      = "transfer_recommendations.json"
	ManufacturingFile = "manufacturing_decisions.json"
	SummaryFile       = "scenario_summary.json"

	ManufacturingCSV = "optimization_manufacturing.csv"
	TransfersCSV     = "optimization_transfers.csv"
	InventoryCSV     = "optimization_inventory.csv"
)

// File is one rendered output.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// RenderJSON renders the three JSON documents.
func RenderJSON(rep *domain.ScenarioReport) ([]File, error) {
	docs := []struct {
		name string
		v    any
	}{
		{TransferFile, rep.Transfers},
		{ManufacturingFile, rep.Manufacturing},
		{SummaryFile, rep.Summary},
	}

	files := make([]File, 0, len(docs))
	for _, d := range docs {
		data, err := json.MarshalIndent(d.v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", d.name, err)
		}
		files = append(files, File{Name: d.name, ContentType: "application/json", Data: append(data, '\n')})
	}
	return files, nil
}

// RenderCSV renders the per-pair tabular mirrors of a result.
func RenderCSV(res *optimizer.Result) ([]File, error) {
	money := func(v float64) string { return strconv.FormatFloat(Currency(v), 'f', -1, 64) }
	codes := func(c []string) string { return strings.Join(c, ";") }

	mfg := [][]string{{"store_id", "product_id", "qty", "cost", "reason_codes"}}
	for _, m := range res.Manufacturing {
		mfg = append(mfg, []string{
			strconv.Itoa(m.StoreID), strconv.Itoa(m.ProductID),
			money(m.Quantity), money(m.Cost), codes(m.ReasonCodes),
		})
	}

	transfers := [][]string{{"from_store", "to_store", "product_id", "qty", "cost", "reason_codes"}}
	for _, t := range res.Transfers {
		transfers = append(transfers, []string{
			strconv.Itoa(t.FromStore), strconv.Itoa(t.ToStore), strconv.Itoa(t.ProductID),
			money(t.Quantity), money(t.Cost), codes(t.ReasonCodes),
		})
	}

	inventory := [][]string{{"store_id", "product_id", "current", "final", "target"}}
	for _, pos := range res.Inventory {
		inventory = append(inventory, []string{
			strconv.Itoa(pos.StoreID), strconv.Itoa(pos.ProductID),
			money(pos.Current), money(pos.Final), money(pos.Target),
		})
	}

	tables := []struct {
		name string
		rows [][]string
	}{
		{ManufacturingCSV, mfg},
		{TransfersCSV, transfers},
		{InventoryCSV, inventory},
	}

	files := make([]File, 0, len(tables))
	for _, tbl := range tables {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(tbl.rows); err != nil {
			return nil, fmt.Errorf("write %s: %w", tbl.name, err)
		}
		files = append(files, File{Name: tbl.name, ContentType: "text/csv", Data: buf.Bytes()})
	}
	return files, nil
}

// WriteDir writes files into dir, creating it if needed.
func WriteDir(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
