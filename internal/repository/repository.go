// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// Pair identifies one (store, product) combination.
type Pair struct {
	StoreID   string `db:"store_id"`
	ProductID string `db:"product_id"`
}

// HistoryRepository reads the cleaned sales history owned by the
// external history collaborator. Observations are append-only.
type HistoryRepository interface {
	// ListObservations returns the full history for a pair ordered by date.
	ListObservations(ctx context.Context, storeID, productID string) ([]domain.DemandObservation, error)
	// ListPairs returns every (store, product) pair with any history.
	ListPairs(ctx context.Context) ([]Pair, error)
}

// StatisticsRepository persists derived demand-statistics snapshots.
// Newer snapshots supersede older ones; nothing is mutated in place.
type StatisticsRepository interface {
	SaveSnapshot(ctx context.Context, stats *domain.DemandStatistics) error
	Latest(ctx context.Context, storeID, productID string) (*domain.DemandStatistics, error)
}

// ModelRepository is the append-only store of versioned model artifacts.
// Versions are never deleted.
type ModelRepository interface {
	Create(ctx context.Context, model *domain.ForecastModel) error
	Latest(ctx context.Context, storeID, productID string) (*domain.ForecastModel, error)
	Get(ctx context.Context, storeID, productID string, version int) (*domain.ForecastModel, error)
	NextVersion(ctx context.Context, storeID, productID string) (int, error)
}

// ForecastRepository persists generated forecast points. A newer run for
// the same (store, product, target_date) supersedes the previous one.
type ForecastRepository interface {
	SavePoints(ctx context.Context, points []domain.ForecastPoint) error
	ListRange(ctx context.Context, storeID, productID string, from, to time.Time) ([]domain.ForecastPoint, error)
}

// InventoryRepository reads positions maintained by external stock
// movements and writes back the reorder fields owned by this engine.
type InventoryRepository interface {
	Get(ctx context.Context, storeID, productID string) (*domain.InventoryPosition, error)
	UpdateReorderFields(ctx context.Context, storeID, productID string, reorderPoint, safetyStock int) error
}

// SupplierRepository reads the per-product ordering constraints feed.
type SupplierRepository interface {
	GetConstraints(ctx context.Context, productID string) (*domain.SupplierConstraints, error)
}

// TriggerRepository persists replenishment triggers. CreateActive must be
// atomic with respect to concurrent evaluations of the same pair: it
// returns false without inserting when an ACTIVE trigger already exists,
// so the at-most-one-ACTIVE invariant never depends on a read-then-write
// sequence in the caller.
type TriggerRepository interface {
	Active(ctx context.Context, storeID, productID string) (*domain.ReplenishmentTrigger, error)
	CreateActive(ctx context.Context, trigger *domain.ReplenishmentTrigger) (bool, error)
	Resolve(ctx context.Context, id int64, at time.Time) error
	// Supersede closes the old trigger and creates the replacement in one
	// atomic step, linking the old record to the new one.
	Supersede(ctx context.Context, oldID int64, replacement *domain.ReplenishmentTrigger) error
}
