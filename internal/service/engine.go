package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/retailinventory/forecast-engine/internal/cache"
	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/forecast"
	"github.com/retailinventory/forecast-engine/internal/replenish"
	"github.com/retailinventory/forecast-engine/internal/repository"
	"github.com/retailinventory/forecast-engine/internal/storage"
)

// Repositories bundles the persistence dependencies of the engine.
type Repositories struct {
	History   repository.HistoryRepository
	Stats     repository.StatisticsRepository
	Models    repository.ModelRepository
	Forecasts repository.ForecastRepository
	Inventory repository.InventoryRepository
	Suppliers repository.SupplierRepository
	Triggers  repository.TriggerRepository
}

// Engine is the facade over training, forecasting, and replenishment. It
// owns the sequencing between components; the numerical work lives in the
// forecast and replenish packages.
type Engine struct {
	cfg        config.EngineConfig
	repos      Repositories
	trainer    *forecast.Trainer
	generator  *forecast.Generator
	evaluator  *replenish.TriggerEvaluator
	recCache   cache.RecommendationCache
	publisher  TriggerPublisher
	trainLocks *keyedMutex
	now        func() time.Time
	log        zerolog.Logger
}

func NewEngine(cfg config.EngineConfig, repos Repositories, artifacts storage.ArtifactStore, recCache cache.RecommendationCache, publisher TriggerPublisher) *Engine {
	if recCache == nil {
		recCache = cache.NewNoopRecommendationCache()
	}
	if publisher == nil {
		publisher = NewLogTriggerPublisher()
	}
	return &Engine{
		cfg:        cfg,
		repos:      repos,
		trainer:    forecast.NewTrainer(cfg, repos.Models, repos.Stats, artifacts),
		generator:  forecast.NewGenerator(cfg),
		evaluator:  replenish.NewTriggerEvaluator(repos.Triggers, cfg.SupersedeThreshold),
		recCache:   recCache,
		publisher:  publisher,
		trainLocks: newKeyedMutex(),
		now:        time.Now,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// WithClock overrides the engine's clock and that of its evaluator and
// trainer. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	e.trainer.WithClock(now)
	e.evaluator.WithClock(now)
	return e
}

// TrainPair loads the pair's full history and fits a new model version.
// Concurrent training of the same pair is serialized; distinct pairs
// train in parallel. A successful run invalidates the pair's cached
// recommendation.
func (e *Engine) TrainPair(ctx context.Context, storeID, productID string) (*domain.ForecastModel, error) {
	key := storeID + "|" + productID
	e.trainLocks.Lock(key)
	defer e.trainLocks.Unlock(key)

	history, err := e.repos.History.ListObservations(ctx, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	model, err := e.trainer.Train(ctx, storeID, productID, history)
	if err != nil {
		return nil, err
	}

	if err := e.recCache.Invalidate(ctx, storeID, productID); err != nil {
		e.log.Warn().Err(err).
			Str("store_id", storeID).
			Str("product_id", productID).
			Msg("failed to invalidate recommendation cache")
	}
	return model, nil
}

// GenerateForecast produces and persists a quantile forecast from the
// pair's latest model. Version 0 selects the latest version; a positive
// version pins a historical one for comparison.
func (e *Engine) GenerateForecast(ctx context.Context, storeID, productID string, version, horizonDays int, shocks []domain.DemandShock) ([]domain.ForecastPoint, error) {
	model, err := e.loadModel(ctx, storeID, productID, version)
	if err != nil {
		return nil, err
	}

	points, err := e.generator.Generate(model, e.now(), horizonDays, shocks)
	if err != nil {
		return nil, err
	}

	if err := e.repos.Forecasts.SavePoints(ctx, points); err != nil {
		return nil, fmt.Errorf("persist forecast points: %w", err)
	}
	return points, nil
}

// EvaluateReorder recomputes safety stock, reorder point, and the
// suggested order quantity for a pair, steps the trigger state machine,
// and writes the reorder fields back to the inventory position. A zero
// serviceLevel uses the configured default; only default-level results
// are cached, and a cache hit skips the numeric recomputation but never
// the trigger evaluation.
func (e *Engine) EvaluateReorder(ctx context.Context, storeID, productID string, serviceLevel float64) (*domain.ReorderRecommendation, error) {
	usingDefault := serviceLevel == 0
	if usingDefault {
		serviceLevel = e.cfg.ServiceLevel
	}
	if err := replenish.ValidateServiceLevel(serviceLevel); err != nil {
		return nil, err
	}

	pos, err := e.repos.Inventory.Get(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}

	// A pair without a statistics snapshot has never been trained. The
	// evaluation fails instead of computing thresholds from zero demand,
	// which would overwrite the reorder fields and resolve live triggers
	// off missing data.
	stats, err := e.repos.Stats.Latest(ctx, storeID, productID)
	if err != nil {
		return nil, err
	}

	var (
		rr          replenish.ReorderResult
		safetyStock int
		cached      bool
	)
	if usingDefault {
		if prev, ok, err := e.recCache.Get(ctx, storeID, productID); err != nil {
			e.log.Warn().Err(err).Msg("recommendation cache read failed")
		} else if ok {
			rr = replenish.ReorderResult{
				ReorderPoint:       prev.ReorderPoint,
				DemandDuringLead:   prev.DemandDuringLead,
				ForecastIncomplete: prev.ForecastIncomplete,
			}
			safetyStock = prev.SafetyStock
			cached = true
		}
	}
	if !cached {
		safetyStock, err = replenish.SafetyStock(stats.StdDevDaily, pos.LeadTimeDays, serviceLevel)
		if err != nil {
			return nil, err
		}

		points := e.leadTimeForecast(ctx, storeID, productID, pos.LeadTimeDays)
		rr = replenish.ReorderPoint(points, stats, pos.LeadTimeDays, safetyStock)

		if err := e.repos.Inventory.UpdateReorderFields(ctx, storeID, productID, rr.ReorderPoint, safetyStock); err != nil {
			return nil, fmt.Errorf("write back reorder fields: %w", err)
		}
	}
	pos.ReorderPoint = rr.ReorderPoint
	pos.SafetyStock = safetyStock

	constraints, err := e.repos.Suppliers.GetConstraints(ctx, productID)
	if err != nil {
		return nil, err
	}

	eoqQty, err := replenish.OrderQuantity(e.annualDemand(stats), *constraints)
	if err != nil {
		return nil, err
	}

	available := pos.QuantityAvailable()
	suggestedQty := 0
	if available <= rr.ReorderPoint {
		shortfall := rr.ReorderPoint - available
		suggestedQty = replenish.SuggestQuantity(shortfall, eoqQty, *constraints)
	}

	prevActive, err := e.repos.Triggers.Active(ctx, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("load active trigger: %w", err)
	}

	trigger, err := e.evaluator.Evaluate(ctx, pos, suggestedQty)
	if err != nil {
		return nil, err
	}
	e.publishIfNew(ctx, prevActive, trigger)

	orderCost := decimal.Zero
	if suggestedQty > 0 {
		orderCost = replenish.OrderCost(suggestedQty, constraints.UnitCost)
	}

	rec := &domain.ReorderRecommendation{
		StoreID:            storeID,
		ProductID:          productID,
		CurrentInventory:   available,
		DemandDuringLead:   rr.DemandDuringLead,
		ReorderPoint:       rr.ReorderPoint,
		SafetyStock:        safetyStock,
		RecommendedQty:     suggestedQty,
		OrderCost:          orderCost,
		LeadTimeDays:       pos.LeadTimeDays,
		ServiceLevel:       serviceLevel,
		ForecastIncomplete: rr.ForecastIncomplete,
		Reasoning:          buildReasoning(available, rr, safetyStock, suggestedQty),
		Trigger:            trigger,
		EvaluatedAt:        e.now(),
	}

	if usingDefault && !cached {
		if err := e.recCache.Set(ctx, rec); err != nil {
			e.log.Warn().Err(err).Msg("recommendation cache write failed")
		}
	}
	return rec, nil
}

// MarkTriggerReceived resolves a trigger once the purchase order that
// references it is received.
func (e *Engine) MarkTriggerReceived(ctx context.Context, triggerID int64) error {
	return e.evaluator.MarkReceived(ctx, triggerID)
}

func (e *Engine) loadModel(ctx context.Context, storeID, productID string, version int) (*domain.ForecastModel, error) {
	if version > 0 {
		return e.repos.Models.Get(ctx, storeID, productID, version)
	}
	return e.repos.Models.Latest(ctx, storeID, productID)
}

// leadTimeForecast returns forecast points covering the lead time, or nil
// when no usable model exists. Missing or stale models degrade to the
// statistics fallback instead of failing the evaluation.
func (e *Engine) leadTimeForecast(ctx context.Context, storeID, productID string, leadTimeDays int) []domain.ForecastPoint {
	if leadTimeDays <= 0 {
		return nil
	}

	model, err := e.repos.Models.Latest(ctx, storeID, productID)
	if err != nil {
		var nf *domain.NotFoundError
		if !errors.As(err, &nf) {
			e.log.Warn().Err(err).
				Str("store_id", storeID).
				Str("product_id", productID).
				Msg("failed to load model for reorder evaluation")
		}
		return nil
	}

	points, err := e.generator.Generate(model, e.now(), leadTimeDays, nil)
	if err != nil {
		var stale *domain.StaleModelError
		if errors.As(err, &stale) {
			e.log.Warn().
				Str("store_id", storeID).
				Str("product_id", productID).
				Time("trained_at", model.TrainedAt).
				Msg("model stale, falling back to demand statistics")
		} else {
			e.log.Warn().Err(err).
				Str("store_id", storeID).
				Str("product_id", productID).
				Msg("forecast generation failed during reorder evaluation")
		}
		return nil
	}
	return points
}

// annualDemand prefers the long-window mean so the EOQ is not distorted
// by short-lived demand spikes.
func (e *Engine) annualDemand(stats *domain.DemandStatistics) float64 {
	if stats == nil {
		return 0
	}
	mean := stats.MeanDailyLong
	if mean <= 0 {
		mean = stats.MeanDaily
	}
	return mean * 365
}

func (e *Engine) publishIfNew(ctx context.Context, prev, current *domain.ReplenishmentTrigger) {
	if current == nil {
		return
	}
	if prev != nil && prev.ID == current.ID {
		return
	}
	event := domain.TriggerEvent{
		TriggerID:         current.ID,
		StoreID:           current.StoreID,
		ProductID:         current.ProductID,
		SuggestedQuantity: current.SuggestedQuantity,
		Urgency:           current.Urgency,
	}
	if err := e.publisher.PublishTrigger(ctx, event); err != nil {
		e.log.Error().Err(err).
			Int64("trigger_id", current.ID).
			Msg("failed to publish trigger event")
	}
}

func buildReasoning(available int, rr replenish.ReorderResult, safetyStock, suggestedQty int) string {
	base := fmt.Sprintf("available %d vs reorder point %d (lead-time demand %.1f + safety stock %d)",
		available, rr.ReorderPoint, rr.DemandDuringLead, safetyStock)
	if available > rr.ReorderPoint {
		return base + "; no order needed"
	}
	s := fmt.Sprintf("%s; order %d suggested", base, suggestedQty)
	if rr.ForecastIncomplete {
		s += "; forecast horizon shorter than lead time, mean demand used"
	}
	return s
}
