// internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DemandObservation is one day of cleaned sales history for a
// (store, product) pair. Observations are append-only and never mutated.
type DemandObservation struct {
	StoreID      string    `json:"store_id" db:"store_id"`
	ProductID    string    `json:"product_id" db:"product_id"`
	Date         time.Time `json:"date" db:"date"`
	QuantitySold float64   `json:"quantity_sold" db:"quantity_sold"`
}

// DemandStatistics is a derived snapshot of demand behaviour for a
// (store, product) pair. Newer snapshots supersede older ones; a snapshot
// is never mutated in place.
type DemandStatistics struct {
	StoreID      string    `json:"store_id" db:"store_id"`
	ProductID    string    `json:"product_id" db:"product_id"`
	AsOfDate     time.Time `json:"as_of_date" db:"as_of_date"`
	Observations int       `json:"observations" db:"observations"`

	// Trailing short window (default 90 days).
	MeanDaily   float64 `json:"mean_daily_demand" db:"mean_daily_demand"`
	StdDevDaily float64 `json:"stddev_daily_demand" db:"stddev_daily_demand"`

	// Trailing long window (default 365 days).
	MeanDailyLong   float64 `json:"mean_daily_demand_long" db:"mean_daily_demand_long"`
	StdDevDailyLong float64 `json:"stddev_daily_demand_long" db:"stddev_daily_demand_long"`

	// Units per day of linear trend over the short window.
	TrendSlope float64 `json:"trend_slope" db:"trend_slope"`

	// Day-of-week multipliers indexed by time.Weekday (Sunday = 0),
	// normalized so the average index is 1.0.
	SeasonalIndex [7]float64 `json:"seasonal_index"`
}

// ValidationMetrics holds rolling-origin cross-validation scores for a
// trained model.
type ValidationMetrics struct {
	MAPE  float64 `json:"mape" db:"mape"`
	RMSE  float64 `json:"rmse" db:"rmse"`
	MAE   float64 `json:"mae" db:"mae"`
	SMAPE float64 `json:"smape" db:"smape"`
	Folds int     `json:"folds" db:"folds"`
}

// TrainingWindow describes the span of history a model was fitted on.
type TrainingWindow struct {
	Start        time.Time `json:"start" db:"training_start"`
	End          time.Time `json:"end" db:"training_end"`
	Observations int       `json:"observations" db:"training_observations"`
}

// ForecastModel is an immutable, versioned model artifact. Retraining
// creates a new version; prior versions are retained for rollback and
// audit and are never deleted automatically.
type ForecastModel struct {
	StoreID      string            `json:"store_id" db:"store_id"`
	ProductID    string            `json:"product_id" db:"product_id"`
	ModelVersion int               `json:"model_version" db:"model_version"`
	Family       string            `json:"family" db:"family"`
	Parameters   []byte            `json:"-" db:"parameters"` // opaque fitted-parameter blob
	Window       TrainingWindow    `json:"training_window"`
	Metrics      ValidationMetrics `json:"validation_metrics"`
	TrainedAt    time.Time         `json:"trained_at" db:"trained_at"`
}

// ForecastComponents is the additive breakdown behind a forecast point.
type ForecastComponents struct {
	Trend        float64 `json:"trend"`
	Seasonal     float64 `json:"seasonal"`
	ResidualBand float64 `json:"residual_band"`
}

// ForecastPoint is the quantile forecast for one target date.
// Invariant: P90 >= P50 >= 0.
type ForecastPoint struct {
	StoreID      string             `json:"store_id" db:"store_id"`
	ProductID    string             `json:"product_id" db:"product_id"`
	ModelVersion int                `json:"model_version" db:"model_version"`
	TargetDate   time.Time          `json:"target_date" db:"target_date"`
	P50          float64            `json:"p50" db:"p50"`
	P90          float64            `json:"p90" db:"p90"`
	Components   ForecastComponents `json:"component_breakdown"`
}

// DemandShock is a caller-supplied demand adjustment for a date range,
// typically a promotion or holiday. Factor is multiplicative unless
// Additive is set, in which case it is added to the point forecast.
type DemandShock struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Factor   float64   `json:"factor"`
	Additive bool      `json:"additive"`
}

// Covers reports whether the shock applies to the given date.
func (s DemandShock) Covers(date time.Time) bool {
	return !date.Before(s.Start) && !date.After(s.End)
}

// InventoryPosition is the long-lived stock state for a (store, product)
// pair. Stock quantities are mutated by external movement events; the
// reorder point and safety stock fields are owned by this engine.
type InventoryPosition struct {
	StoreID           string `json:"store_id" db:"store_id"`
	ProductID         string `json:"product_id" db:"product_id"`
	QuantityOnHand    int    `json:"quantity_on_hand" db:"quantity_on_hand"`
	QuantityCommitted int    `json:"quantity_committed" db:"quantity_committed"`
	ReorderPoint      int    `json:"reorder_point" db:"reorder_point"`
	SafetyStock       int    `json:"safety_stock" db:"safety_stock"`
	LeadTimeDays      int    `json:"lead_time_days" db:"lead_time_days"`
}

// QuantityAvailable is on-hand minus committed. It may be transiently
// negative between movement events.
func (p InventoryPosition) QuantityAvailable() int {
	return p.QuantityOnHand - p.QuantityCommitted
}

// SupplierConstraints are the ordering constraints supplied per product.
type SupplierConstraints struct {
	ProductID        string          `json:"product_id" db:"product_id"`
	MinOrderQuantity int             `json:"min_order_quantity" db:"min_order_quantity"`
	CasePackSize     int             `json:"case_pack_size" db:"case_pack_size"`
	MinOrderValue    decimal.Decimal `json:"min_order_value" db:"min_order_value"`
	UnitCost         decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	OrderingCost     float64         `json:"ordering_cost" db:"ordering_cost"`
	HoldingCost      float64         `json:"holding_cost" db:"holding_cost"`
}

// ReplenishmentTrigger is an alert that inventory has fallen to or below
// its reorder point. At most one ACTIVE trigger exists per
// (store, product) at any time.
type ReplenishmentTrigger struct {
	ID                int64      `json:"id" db:"id"`
	StoreID           string     `json:"store_id" db:"store_id"`
	ProductID         string     `json:"product_id" db:"product_id"`
	Status            string     `json:"status" db:"status"`
	Urgency           string     `json:"urgency" db:"urgency"`
	SuggestedQuantity int        `json:"suggested_quantity" db:"suggested_quantity"`
	SupersededBy      *int64     `json:"superseded_by,omitempty" db:"superseded_by"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// ReorderRecommendation is the full result of evaluate_reorder.
type ReorderRecommendation struct {
	StoreID            string                `json:"store_id"`
	ProductID          string                `json:"product_id"`
	CurrentInventory   int                   `json:"current_inventory"`
	DemandDuringLead   float64               `json:"demand_during_lead_time"`
	ReorderPoint       int                   `json:"reorder_point"`
	SafetyStock        int                   `json:"safety_stock"`
	RecommendedQty     int                   `json:"recommended_order_quantity"`
	OrderCost          decimal.Decimal       `json:"order_cost"`
	LeadTimeDays       int                   `json:"lead_time_days"`
	ServiceLevel       float64               `json:"service_level"`
	ForecastIncomplete bool                  `json:"forecast_incomplete"`
	Reasoning          string                `json:"reasoning"`
	Trigger            *ReplenishmentTrigger `json:"trigger,omitempty"`
	EvaluatedAt        time.Time             `json:"evaluated_at"`
}

// TriggerEvent is the payload emitted to the purchase-order drafting
// collaborator when a trigger becomes active.
type TriggerEvent struct {
	TriggerID         int64  `json:"trigger_id"`
	StoreID           string `json:"store_id"`
	ProductID         string `json:"product_id"`
	SuggestedQuantity int    `json:"suggested_quantity"`
	Urgency           string `json:"urgency"`
}
