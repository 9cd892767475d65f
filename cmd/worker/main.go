// cmd/worker/main.go
//
// Long-running batch trainer. Retrains the assortment on a fixed
// interval and exposes a small operational endpoint for run status and
// manual kicks.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/viper"

	"github.com/retailinventory/forecast-engine/internal/batch"
	"github.com/retailinventory/forecast-engine/internal/cache"
	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/repository/postgres"
	"github.com/retailinventory/forecast-engine/internal/service"
	"github.com/retailinventory/forecast-engine/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)
	log := logger.Component("worker")

	viper.SetDefault("WORKER_TRAIN_INTERVAL_HOURS", 24)
	viper.SetDefault("WORKER_OPS_PORT", "8081")
	interval := time.Duration(viper.GetInt("WORKER_TRAIN_INTERVAL_HOURS")) * time.Hour
	opsPort := viper.GetString("WORKER_OPS_PORT")

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	repos := service.Repositories{
		History:   postgres.NewHistoryRepository(db),
		Stats:     postgres.NewStatisticsRepository(db),
		Models:    postgres.NewModelRepository(db),
		Forecasts: postgres.NewForecastRepository(db),
		Inventory: postgres.NewInventoryRepository(db),
		Suppliers: postgres.NewSupplierRepository(db),
		Triggers:  postgres.NewTriggerRepository(db),
	}

	recCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("recommendation cache unavailable, continuing without it")
		recCache = cache.NewNoopRecommendationCache()
	}

	engine := service.NewEngine(cfg.Engine, repos, nil, recCache, nil)

	batchCfg := batch.DefaultConfig()
	batchCfg.WorkerCount = cfg.Engine.TrainWorkerCount
	store := batch.NewPostgresRunStore(db)
	orch := batch.NewOrchestrator(batchCfg, engine, repos.History, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kick := make(chan struct{}, 1)
	var lastRunID atomic.Int64

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			run, err := orch.Run(ctx)
			if err != nil {
				log.Error().Err(err).Msg("batch training run failed")
			} else {
				lastRunID.Store(run.ID)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-kick:
			}
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		select {
		case kick <- struct{}{}:
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "run already pending", http.StatusConflict)
		}
	}).Methods("POST")

	router.HandleFunc("/runs/latest", func(w http.ResponseWriter, r *http.Request) {
		id := lastRunID.Load()
		if id == 0 {
			http.Error(w, "no completed run yet", http.StatusNotFound)
			return
		}
		writeRun(w, r, store, id)
	}).Methods("GET")

	router.HandleFunc("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			http.Error(w, "invalid run id", http.StatusBadRequest)
			return
		}
		writeRun(w, r, store, id)
	}).Methods("GET")

	srv := &http.Server{Addr: ":" + opsPort, Handler: router}
	go func() {
		log.Info().Str("port", opsPort).Dur("interval", interval).Msg("worker started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ops endpoint failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops endpoint forced to shutdown")
	}
	os.Exit(0)
}

func writeRun(w http.ResponseWriter, r *http.Request, store batch.RunStore, id int64) {
	run, err := store.GetRun(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}
