// cmd/trainer/main.go
//
// CLI for batch model training and ad-hoc forecasting against the same
// database the server uses.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/retailinventory/forecast-engine/internal/batch"
	"github.com/retailinventory/forecast-engine/internal/cache"
	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/repository/postgres"
	"github.com/retailinventory/forecast-engine/internal/service"
	"github.com/retailinventory/forecast-engine/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "trainer",
		Usage: "Train demand forecast models",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Train every (store, product) pair with history",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Concurrent training workers",
						Value:   4,
						EnvVars: []string{"ENGINE_TRAIN_WORKERS"},
					},
				},
				Action: runBatch,
			},
			{
				Name:  "resume",
				Usage: "Resume an interrupted training run",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64Flag{
						Name:     "run-id",
						Usage:    "Training run to resume",
						Required: true,
					},
				},
				Action: resumeBatch,
			},
			{
				Name:  "retry",
				Usage: "Retry failed training jobs with remaining retry budget",
				Flags: []cli.Flag{
					newDBURLFlag(),
				},
				Action: retryBatch,
			},
			{
				Name:  "forecast",
				Usage: "Generate and persist a forecast for one pair",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "store", Usage: "Store ID", Required: true},
					&cli.StringFlag{Name: "product", Usage: "Product ID", Required: true},
					&cli.IntFlag{Name: "horizon", Usage: "Horizon in days", Value: 30},
					&cli.IntFlag{Name: "version", Usage: "Model version (0 = latest)", Value: 0},
				},
				Action: runForecast,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("trainer failed")
	}
}

func buildEngine(c *cli.Context) (*service.Engine, *postgres.DB, error) {
	cfg := config.Load()

	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return nil, nil, err
	}

	repos := service.Repositories{
		History:   postgres.NewHistoryRepository(db),
		Stats:     postgres.NewStatisticsRepository(db),
		Models:    postgres.NewModelRepository(db),
		Forecasts: postgres.NewForecastRepository(db),
		Inventory: postgres.NewInventoryRepository(db),
		Suppliers: postgres.NewSupplierRepository(db),
		Triggers:  postgres.NewTriggerRepository(db),
	}

	engine := service.NewEngine(cfg.Engine, repos, nil, cache.NewNoopRecommendationCache(), nil)
	return engine, db, nil
}

func buildOrchestrator(c *cli.Context) (*batch.Orchestrator, *postgres.DB, error) {
	engine, db, err := buildEngine(c)
	if err != nil {
		return nil, nil, err
	}

	batchCfg := batch.DefaultConfig()
	if workers := c.Int("workers"); workers > 0 {
		batchCfg.WorkerCount = workers
	}

	orch := batch.NewOrchestrator(batchCfg, engine, postgres.NewHistoryRepository(db), batch.NewPostgresRunStore(db))
	return orch, db, nil
}

func runBatch(c *cli.Context) error {
	orch, db, err := buildOrchestrator(c)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := orch.Run(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("run %d: %s (trained %d, skipped %d, failed %d of %d)\n",
		run.ID, run.Status, run.TrainedPairs, run.SkippedPairs, run.FailedPairs, run.TotalPairs)
	return nil
}

func resumeBatch(c *cli.Context) error {
	orch, db, err := buildOrchestrator(c)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := orch.Resume(c.Context, c.Int64("run-id"))
	if err != nil {
		return err
	}

	fmt.Printf("run %d: %s (trained %d, skipped %d, failed %d of %d)\n",
		run.ID, run.Status, run.TrainedPairs, run.SkippedPairs, run.FailedPairs, run.TotalPairs)
	return nil
}

func retryBatch(c *cli.Context) error {
	orch, db, err := buildOrchestrator(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return orch.RetryFailed(c.Context)
}

func runForecast(c *cli.Context) error {
	engine, db, err := buildEngine(c)
	if err != nil {
		return err
	}
	defer db.Close()

	points, err := engine.GenerateForecast(c.Context,
		c.String("store"), c.String("product"),
		c.Int("version"), c.Int("horizon"), nil)
	if err != nil {
		return err
	}

	for _, pt := range points {
		fmt.Printf("%s  p50=%.2f  p90=%.2f\n", pt.TargetDate.Format("2006-01-02"), pt.P50, pt.P90)
	}
	return nil
}
