// internal/replenish/trigger.go
package replenish

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository"
)

// TriggerEvaluator watches inventory position against the reorder point
// and maintains the trigger state machine:
//
//	NONE -> ACTIVE -> {RESOLVED | SUPERSEDED}
//
// At most one ACTIVE trigger exists per (store, product). The invariant
// is enforced by the repository's conditional CreateActive, not by a
// read-then-write sequence here, so concurrent evaluations of the same
// pair cannot both insert.
type TriggerEvaluator struct {
	triggers           repository.TriggerRepository
	supersedeThreshold float64
	now                func() time.Time
	log                zerolog.Logger
}

func NewTriggerEvaluator(triggers repository.TriggerRepository, supersedeThreshold float64) *TriggerEvaluator {
	return &TriggerEvaluator{
		triggers:           triggers,
		supersedeThreshold: supersedeThreshold,
		now:                time.Now,
		log:                log.With().Str("component", "trigger_evaluator").Logger(),
	}
}

// WithClock overrides the evaluator's clock. Used by tests.
func (e *TriggerEvaluator) WithClock(now func() time.Time) *TriggerEvaluator {
	e.now = now
	return e
}

// Evaluate applies one state-machine step for the pair and returns the
// trigger that is ACTIVE afterwards, or nil when none is warranted.
// Re-evaluating an unchanged position is idempotent: an existing ACTIVE
// trigger is returned as-is unless the suggested quantity changed
// materially, in which case it is superseded by a fresh trigger that
// references it for audit continuity.
func (e *TriggerEvaluator) Evaluate(ctx context.Context, pos *domain.InventoryPosition, suggestedQty int) (*domain.ReplenishmentTrigger, error) {
	available := pos.QuantityAvailable()

	active, err := e.triggers.Active(ctx, pos.StoreID, pos.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load active trigger: %w", err)
	}

	// Stock strictly above the reorder point resolves any open trigger.
	if available > pos.ReorderPoint {
		if active != nil {
			if err := e.triggers.Resolve(ctx, active.ID, e.now()); err != nil {
				return nil, fmt.Errorf("resolve trigger %d: %w", active.ID, err)
			}
			e.log.Info().
				Str("store_id", pos.StoreID).
				Str("product_id", pos.ProductID).
				Int64("trigger_id", active.ID).
				Msg("trigger resolved: stock above reorder point")
		}
		return nil, nil
	}

	urgency := domain.ClassifyUrgency(available, pos.SafetyStock)

	if active == nil {
		return e.createActive(ctx, pos, suggestedQty, urgency)
	}

	if e.materiallyDifferent(active.SuggestedQuantity, suggestedQty) {
		replacement := e.newTrigger(pos, suggestedQty, urgency)
		if err := e.triggers.Supersede(ctx, active.ID, replacement); err != nil {
			return nil, fmt.Errorf("supersede trigger %d: %w", active.ID, err)
		}
		e.log.Info().
			Str("store_id", pos.StoreID).
			Str("product_id", pos.ProductID).
			Int64("old_trigger_id", active.ID).
			Int("old_qty", active.SuggestedQuantity).
			Int("new_qty", suggestedQty).
			Msg("trigger superseded: suggested quantity changed materially")
		return replacement, nil
	}

	return active, nil
}

// MarkReceived resolves a trigger after the purchase order referencing it
// is confirmed received by the PO collaborator.
func (e *TriggerEvaluator) MarkReceived(ctx context.Context, triggerID int64) error {
	if err := e.triggers.Resolve(ctx, triggerID, e.now()); err != nil {
		return fmt.Errorf("resolve trigger %d on receipt: %w", triggerID, err)
	}
	return nil
}

func (e *TriggerEvaluator) createActive(ctx context.Context, pos *domain.InventoryPosition, suggestedQty int, urgency string) (*domain.ReplenishmentTrigger, error) {
	trigger := e.newTrigger(pos, suggestedQty, urgency)

	created, err := e.triggers.CreateActive(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("create trigger: %w", err)
	}
	if !created {
		// A concurrent evaluation won the race; return its trigger.
		winner, err := e.triggers.Active(ctx, pos.StoreID, pos.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load winning trigger: %w", err)
		}
		return winner, nil
	}

	e.log.Info().
		Str("store_id", pos.StoreID).
		Str("product_id", pos.ProductID).
		Int64("trigger_id", trigger.ID).
		Str("urgency", urgency).
		Int("suggested_quantity", suggestedQty).
		Msg("replenishment trigger created")
	return trigger, nil
}

func (e *TriggerEvaluator) newTrigger(pos *domain.InventoryPosition, suggestedQty int, urgency string) *domain.ReplenishmentTrigger {
	return &domain.ReplenishmentTrigger{
		StoreID:           pos.StoreID,
		ProductID:         pos.ProductID,
		Status:            domain.TriggerActive,
		Urgency:           urgency,
		SuggestedQuantity: suggestedQty,
		CreatedAt:         e.now(),
	}
}

func (e *TriggerEvaluator) materiallyDifferent(oldQty, newQty int) bool {
	if oldQty == newQty {
		return false
	}
	if oldQty <= 0 {
		return newQty > 0
	}
	change := math.Abs(float64(newQty-oldQty)) / float64(oldQty)
	return change >= e.supersedeThreshold
}
