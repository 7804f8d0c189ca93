// Package loader reads scenario inputs from CSV files on disk or in object
// storage.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockopt/backend-go/internal/domain"
	"github.com/andresuchdata/stockopt/backend-go/internal/storage"
)

// Default input file names.
const (
	ForecastFile        = "product_forecasts_wide.csv"
	HistoricalFile      = "processed_store_product_params.csv"
	StoreSupplyFile     = "store_supply_params.csv"
	TransportMatrixFile = "transport_cost_matrix.csv"
)

var (
	// ErrNotFound is returned by a Source when the named input does not exist.
	ErrNotFound = errors.New("input not found")
	// ErrInvalidInput wraps every CSV parse failure.
	ErrInvalidInput = errors.New("invalid input")
)

// Source opens named inputs.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads inputs from a local directory.
type DirSource struct {
	Dir string
}

func (d DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// ObjectSource reads inputs from object storage under a key prefix.
type ObjectSource struct {
	Storage storage.ObjectStorage
	Prefix  string
}

func (o ObjectSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := o.Storage.OpenObject(ctx, path.Join(o.Prefix, name))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return rc, nil
}

// Files names the four inputs within a Source. Empty names use the defaults.
type Files struct {
	Forecast        string
	Historical      string
	StoreSupply     string
	TransportMatrix string
}

func (f Files) withDefaults() Files {
	if f.Forecast == "" {
		f.Forecast = ForecastFile
	}
	if f.Historical == "" {
		f.Historical = HistoricalFile
	}
	if f.StoreSupply == "" {
		f.StoreSupply = StoreSupplyFile
	}
	if f.TransportMatrix == "" {
		f.TransportMatrix = TransportMatrixFile
	}
	return f
}

func read[T any](ctx context.Context, src Source, name string, optional bool, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	rc, err := src.Open(ctx, name)
	if err != nil {
		if optional && errors.Is(err, ErrNotFound) {
			log.Warn().Str("file", name).Msg("loader: optional input missing, using defaults")
			return zero, nil
		}
		return zero, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()

	v, err := parse(rc)
	if err != nil {
		return zero, fmt.Errorf("parse %s: %w: %w", name, ErrInvalidInput, err)
	}
	return v, nil
}

// Load reads all four inputs concurrently. Only the forecast is required; the
// others fall back to engine defaults when absent.
func Load(ctx context.Context, src Source, name string, files Files) (domain.ScenarioInput, error) {
	files = files.withDefaults()
	in := domain.ScenarioInput{Name: name}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Forecast, err = read(gctx, src, files.Forecast, false, ReadForecast)
		return err
	})
	g.Go(func() (err error) {
		in.Historical, err = read(gctx, src, files.Historical, true, ReadHistorical)
		return err
	})
	g.Go(func() (err error) {
		in.StoreSupply, err = read(gctx, src, files.StoreSupply, true, ReadStoreSupply)
		return err
	})
	g.Go(func() (err error) {
		in.TransportMatrix, err = read(gctx, src, files.TransportMatrix, true, ReadTransportMatrix)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.ScenarioInput{}, err
	}

	log.Info().
		Str("scenario", name).
		Int("forecast_rows", len(in.Forecast)).
		Int("historical_rows", len(in.Historical)).
		Int("stores_with_supply", len(in.StoreSupply)).
		Int("matrix_rows", len(in.TransportMatrix)).
		Msg("loader: inputs loaded")

	return in, nil
}
