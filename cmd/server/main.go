// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/retailinventory/forecast-engine/internal/api"
	"github.com/retailinventory/forecast-engine/internal/cache"
	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/repository/postgres"
	"github.com/retailinventory/forecast-engine/internal/service"
	"github.com/retailinventory/forecast-engine/internal/storage"
	"github.com/retailinventory/forecast-engine/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to database")
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
		logger.Log.Warn().Err(err).Msg("recommendation cache unavailable, continuing without it")
		recCache = cache.NewNoopRecommendationCache()
	}

	var artifacts storage.ArtifactStore
	if cfg.Artifact.Enabled {
		artifacts, err = storage.NewArtifactStore(cfg.Artifact)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("artifact store unavailable, model blobs kept in database only")
			artifacts = nil
		}
	}

	engine := service.NewEngine(cfg.Engine, repos, artifacts, recCache, service.NewLogTriggerPublisher())

	router := api.NewRouter(engine, repos.Forecasts, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exiting")
}
