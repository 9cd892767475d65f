package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// TriggerPublisher delivers trigger events to the purchase-order drafting
// collaborator. Delivery failures are logged and never block evaluation.
type TriggerPublisher interface {
	PublishTrigger(ctx context.Context, event domain.TriggerEvent) error
}

// LogTriggerPublisher writes trigger events to the structured log. It is
// the default publisher when no downstream consumer is wired.
type LogTriggerPublisher struct{}

func NewLogTriggerPublisher() *LogTriggerPublisher {
	return &LogTriggerPublisher{}
}

func (p *LogTriggerPublisher) PublishTrigger(_ context.Context, event domain.TriggerEvent) error {
	log.Info().
		Int64("trigger_id", event.TriggerID).
		Str("store_id", event.StoreID).
		Str("product_id", event.ProductID).
		Int("suggested_quantity", event.SuggestedQuantity).
		Str("urgency", event.Urgency).
		Msg("replenishment trigger published")
	return nil
}
