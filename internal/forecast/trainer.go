// internal/forecast/trainer.go
package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository"
	"github.com/retailinventory/forecast-engine/internal/storage"
)

// Trainer fits a demand model for one (store, product) pair, validates it
// with rolling-origin cross-validation, and persists a new immutable
// model version. Prior versions are never deleted.
type Trainer struct {
	cfg       config.EngineConfig
	estimator *Estimator
	models    repository.ModelRepository
	stats     repository.StatisticsRepository // optional
	artifacts storage.ArtifactStore           // optional
	now       func() time.Time
	log       zerolog.Logger
}

func NewTrainer(cfg config.EngineConfig, models repository.ModelRepository, stats repository.StatisticsRepository, artifacts storage.ArtifactStore) *Trainer {
	return &Trainer{
		cfg:       cfg,
		estimator: NewEstimator(cfg),
		models:    models,
		stats:     stats,
		artifacts: artifacts,
		now:       time.Now,
		log:       log.With().Str("component", "trainer").Logger(),
	}
}

// WithClock overrides the trainer's clock. Used by tests.
func (t *Trainer) WithClock(now func() time.Time) *Trainer {
	t.now = now
	return t
}

// Train estimates statistics, fits the configured model family, runs
// cross-validation, and persists the resulting model version. Both model
// families are deterministic, so training is idempotent: identical
// history and configuration reproduce identical validation metrics.
func (t *Trainer) Train(ctx context.Context, storeID, productID string, history []domain.DemandObservation) (*domain.ForecastModel, error) {
	obs := make([]domain.DemandObservation, len(history))
	copy(obs, history)
	sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	stats, err := t.estimator.Estimate(storeID, productID, obs)
	if err != nil {
		return nil, err
	}

	if t.stats != nil {
		if err := t.stats.SaveSnapshot(ctx, stats); err != nil {
			t.log.Warn().Err(err).
				Str("store_id", storeID).
				Str("product_id", productID).
				Msg("failed to persist statistics snapshot")
		}
	}

	params, err := fitFamily(t.cfg.ModelFamily, storeID, productID, obs)
	if err != nil {
		return nil, err
	}

	metrics, err := crossValidate(storeID, productID, t.cfg.ModelFamily, obs, cvParams{
		initial: t.cfg.CVInitialDays,
		period:  t.cfg.CVPeriodDays,
		horizon: t.cfg.CVHorizonDays,
	})
	if err != nil {
		return nil, err
	}

	blob, err := params.encode()
	if err != nil {
		return nil, fmt.Errorf("encode fitted parameters: %w", err)
	}

	version, err := t.models.NextVersion(ctx, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("allocate model version: %w", err)
	}

	model := &domain.ForecastModel{
		StoreID:      storeID,
		ProductID:    productID,
		ModelVersion: version,
		Family:       t.cfg.ModelFamily,
		Parameters:   blob,
		Window: domain.TrainingWindow{
			Start:        obs[0].Date,
			End:          obs[len(obs)-1].Date,
			Observations: len(obs),
		},
		Metrics:   metrics,
		TrainedAt: t.now(),
	}

	if err := t.models.Create(ctx, model); err != nil {
		return nil, fmt.Errorf("persist model version %d: %w", version, err)
	}

	if t.artifacts != nil {
		if err := t.artifacts.PutModel(ctx, storeID, productID, version, blob); err != nil {
			t.log.Warn().Err(err).
				Str("store_id", storeID).
				Str("product_id", productID).
				Int("model_version", version).
				Msg("failed to upload model artifact")
		}
	}

	t.log.Info().
		Str("store_id", storeID).
		Str("product_id", productID).
		Int("model_version", version).
		Str("family", model.Family).
		Float64("mape", metrics.MAPE).
		Float64("rmse", metrics.RMSE).
		Msg("model trained")

	return model, nil
}
