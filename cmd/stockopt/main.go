// backend-go/cmd/stockopt/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockopt/backend-go/internal/api"
	"github.com/andresuchdata/stockopt/backend-go/internal/config"
	"github.com/andresuchdata/stockopt/backend-go/internal/loader"
	"github.com/andresuchdata/stockopt/backend-go/internal/optimizer"
	"github.com/andresuchdata/stockopt/backend-go/internal/pipeline"
	"github.com/andresuchdata/stockopt/backend-go/internal/report"
	"github.com/andresuchdata/stockopt/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockopt/backend-go/internal/solver"
	"github.com/andresuchdata/stockopt/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)

	app := &cli.App{
		Name:  "stockopt",
		Usage: "Optimize manufacturing and inter-store transfers for a demand forecast",
		Commands: []*cli.Command{
			runCommand(cfg),
			batchCommand(cfg),
			serveCommand(cfg),
			migrateCommand(cfg),
			cacheCommand(cfg),
			{
				Name:  "backends",
				Usage: "List registered solver backends",
				Action: func(c *cli.Context) error {
					fmt.Println(strings.Join(solver.Backends(), "\n"))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("stockopt failed")
	}
}

func runCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Optimize one scenario from CSV inputs and write the reports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "baseline", Usage: "Scenario name"},
			&cli.StringFlag{Name: "input-dir", Value: cfg.App.InputDir, Usage: "Directory holding the input CSVs"},
			&cli.StringFlag{Name: "input-prefix", Usage: "Read inputs from object storage below this prefix instead of --input-dir"},
			&cli.StringFlag{Name: "output-dir", Value: cfg.App.OutputDir, Usage: "Directory for the JSON and CSV reports"},
			&cli.StringFlag{Name: "forecast", Usage: "Forecast file name"},
			&cli.StringFlag{Name: "historical", Usage: "Historical parameters file name"},
			&cli.StringFlag{Name: "store-supply", Usage: "Store supply parameters file name"},
			&cli.StringFlag{Name: "transport-matrix", Usage: "Transport cost matrix file name"},
			&cli.StringFlag{Name: "solver", Value: cfg.Optimization.Solver, Usage: "Solver backend"},
			&cli.DurationFlag{Name: "time-limit", Value: cfg.Optimization.Params().TimeLimit, Usage: "Solver time limit"},
			&cli.BoolFlag{Name: "upload", Value: cfg.Storage.Enabled, Usage: "Upload reports to object storage"},
			&cli.BoolFlag{Name: "persist", Value: cfg.Database.Enabled, Usage: "Record the run in Postgres"},
		},
		Action: func(c *cli.Context) error {
			cfg.Optimization.Solver = c.String("solver")
			cfg.Optimization.TimeLimitSeconds = int(c.Duration("time-limit") / time.Second)

			ctx := c.Context
			d, err := buildDeps(ctx, cfg, wiring{
				persist: c.Bool("persist"),
				cache:   cfg.Cache.Enabled,
				storage: c.Bool("upload") || c.String("input-prefix") != "",
			})
			if err != nil {
				return err
			}
			defer d.close()

			files := loader.Files{
				Forecast:        c.String("forecast"),
				Historical:      c.String("historical"),
				StoreSupply:     c.String("store-supply"),
				TransportMatrix: c.String("transport-matrix"),
			}

			var src loader.Source = loader.DirSource{Dir: c.String("input-dir")}
			if prefix := c.String("input-prefix"); prefix != "" {
				src = loader.ObjectSource{Storage: d.storage, Prefix: prefix}
			}

			in, err := loader.Load(ctx, src, c.String("name"), files)
			if err != nil {
				return fmt.Errorf("load inputs: %w", err)
			}

			out, err := d.service.Optimize(ctx, in)
			if err != nil {
				var solveErr *optimizer.SolveError
				if errors.As(err, &solveErr) {
					log.Error().Str("status", optimizer.RunStatus(solveErr.Status)).Msg("no plan produced")
				}
				return err
			}

			if err := report.WriteDir(c.String("output-dir"), out.Files); err != nil {
				return err
			}

			summary := out.Run.Report.Summary
			log.Info().
				Str("run_id", out.Run.ID).
				Str("status", summary.Status).
				Float64("baseline_cost", summary.Baseline.TotalCost).
				Float64("optimized_cost", summary.Optimized.TotalCost).
				Float64("stockout_reduction_units", summary.Delta.StockoutReductionUnits).
				Int("transfers", summary.Optimized.TotalTransfers).
				Str("output_dir", c.String("output-dir")).
				Msg("scenario complete")
			return nil
		},
	}
}

func batchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Optimize every scenario directory below an input root",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input-root", Value: cfg.App.InputDir, Usage: "Directory whose sub-directories each hold one scenario"},
			&cli.StringFlag{Name: "output-dir", Value: cfg.App.OutputDir, Usage: "Reports land in <output-dir>/<scenario>"},
			&cli.IntFlag{Name: "workers", Value: 4, Usage: "Scenarios solved concurrently"},
			&cli.IntFlag{Name: "retries", Value: 3, Usage: "Attempts per scenario for transient failures"},
			&cli.DurationFlag{Name: "retry-backoff", Value: 2 * time.Second, Usage: "Wait between attempts"},
			&cli.BoolFlag{Name: "upload", Value: cfg.Storage.Enabled, Usage: "Upload reports to object storage"},
			&cli.BoolFlag{Name: "persist", Value: cfg.Database.Enabled, Usage: "Record runs in Postgres"},
		},
		Action: func(c *cli.Context) error {
			d, err := buildDeps(c.Context, cfg, wiring{
				persist: c.Bool("persist"),
				cache:   cfg.Cache.Enabled,
				storage: c.Bool("upload"),
			})
			if err != nil {
				return err
			}
			defer d.close()

			pcfg := pipeline.DefaultConfig(c.String("output-dir"))
			pcfg.WorkerCount = c.Int("workers")
			pcfg.RetryAttempts = c.Int("retries")
			pcfg.RetryBackoff = c.Duration("retry-backoff")

			jobs, summary, err := pipeline.NewOrchestrator(d.service, pcfg).Run(c.Context, c.String("input-root"))
			if err != nil {
				return err
			}

			for _, job := range jobs {
				event := log.Info()
				if job.Status == pipeline.JobFailed {
					event = log.Error().Err(job.Err)
				}
				event.
					Str("scenario", job.Name).
					Str("job_status", string(job.Status)).
					Str("run_status", job.RunStatus).
					Str("run_id", job.RunID).
					Int("attempts", job.Attempts).
					Msg("batch result")
			}

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}
}

func serveCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the scenario HTTP API",
		Action: func(c *cli.Context) error {
			if cfg.Server.Mode == "debug" {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			d, err := buildDeps(c.Context, cfg, wiring{
				persist: cfg.Database.Enabled,
				cache:   cfg.Cache.Enabled,
				storage: cfg.Storage.Enabled,
			})
			if err != nil {
				return err
			}
			defer d.close()

			router := api.NewRouter(&api.Services{ScenarioService: d.service}, cfg.Server.AllowedOrigins)
			srv := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      router,
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			}

			// Start server in a goroutine
			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			// Wait for interrupt signal to gracefully shut down the server
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return fmt.Errorf("failed to start server: %w", err)
			case <-quit:
			}
			log.Info().Msg("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}

			log.Info().Msg("Server exiting")
			return nil
		},
	}
}

func migrateCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the scenario tables",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "driver", Value: postgres.DriverPgx, Usage: "database/sql driver (pgx or postgres)"},
			&cli.BoolFlag{Name: "flush-cache", Value: cfg.Cache.Enabled, Usage: "Drop cached runs once the schema is applied"},
		},
		Action: func(c *cli.Context) error {
			db, err := postgres.NewDB(c.Context, &cfg.Database, c.String("driver"))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(c.Context); err != nil {
				return err
			}
			log.Info().Str("database", cfg.Database.DBName).Msg("schema applied")

			if c.Bool("flush-cache") {
				if _, err := flushScenarioCache(c.Context, cfg); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func cacheCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the scenario run cache",
		Subcommands: []*cli.Command{
			{
				Name:  "flush",
				Usage: "Drop every cached scenario run",
				Action: func(c *cli.Context) error {
					n, err := flushScenarioCache(c.Context, cfg)
					if err != nil {
						return err
					}
					fmt.Printf("removed %d cached runs\n", n)
					return nil
				},
			},
		},
	}
}
