// internal/repository/memory/memory.go
//
// In-memory repository implementations. Used by tests and by local
// development without a database. All implementations are safe for
// concurrent use.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository"
)

func pairKey(storeID, productID string) string {
	return storeID + "|" + productID
}

// HistoryRepository holds append-only demand observations.
type HistoryRepository struct {
	mu  sync.RWMutex
	obs map[string][]domain.DemandObservation
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{obs: make(map[string][]domain.DemandObservation)}
}

// Append adds observations to a pair's history.
func (r *HistoryRepository) Append(obs ...domain.DemandObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range obs {
		key := pairKey(o.StoreID, o.ProductID)
		r.obs[key] = append(r.obs[key], o)
	}
}

func (r *HistoryRepository) ListObservations(_ context.Context, storeID, productID string) ([]domain.DemandObservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.obs[pairKey(storeID, productID)]
	out := make([]domain.DemandObservation, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *HistoryRepository) ListPairs(_ context.Context) ([]repository.Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs := make([]repository.Pair, 0, len(r.obs))
	for _, obs := range r.obs {
		if len(obs) == 0 {
			continue
		}
		pairs = append(pairs, repository.Pair{StoreID: obs[0].StoreID, ProductID: obs[0].ProductID})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].StoreID != pairs[j].StoreID {
			return pairs[i].StoreID < pairs[j].StoreID
		}
		return pairs[i].ProductID < pairs[j].ProductID
	})
	return pairs, nil
}

// StatisticsRepository keeps superseding snapshots per pair.
type StatisticsRepository struct {
	mu        sync.RWMutex
	snapshots map[string][]domain.DemandStatistics
}

func NewStatisticsRepository() *StatisticsRepository {
	return &StatisticsRepository{snapshots: make(map[string][]domain.DemandStatistics)}
}

func (r *StatisticsRepository) SaveSnapshot(_ context.Context, stats *domain.DemandStatistics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(stats.StoreID, stats.ProductID)
	r.snapshots[key] = append(r.snapshots[key], *stats)
	return nil
}

func (r *StatisticsRepository) Latest(_ context.Context, storeID, productID string) (*domain.DemandStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snaps := r.snapshots[pairKey(storeID, productID)]
	if len(snaps) == 0 {
		return nil, &domain.NotFoundError{Kind: "demand statistics", StoreID: storeID, ProductID: productID}
	}
	latest := snaps[len(snaps)-1]
	return &latest, nil
}

// ModelRepository is an append-only store of model versions.
type ModelRepository struct {
	mu     sync.RWMutex
	models map[string][]domain.ForecastModel
}

func NewModelRepository() *ModelRepository {
	return &ModelRepository{models: make(map[string][]domain.ForecastModel)}
}

func (r *ModelRepository) Create(_ context.Context, model *domain.ForecastModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(model.StoreID, model.ProductID)
	r.models[key] = append(r.models[key], *model)
	return nil
}

func (r *ModelRepository) Latest(_ context.Context, storeID, productID string) (*domain.ForecastModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.models[pairKey(storeID, productID)]
	if len(versions) == 0 {
		return nil, &domain.NotFoundError{Kind: "forecast model", StoreID: storeID, ProductID: productID}
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

func (r *ModelRepository) Get(_ context.Context, storeID, productID string, version int) (*domain.ForecastModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.models[pairKey(storeID, productID)] {
		if m.ModelVersion == version {
			found := m
			return &found, nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "forecast model", StoreID: storeID, ProductID: productID}
}

func (r *ModelRepository) NextVersion(_ context.Context, storeID, productID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions := r.models[pairKey(storeID, productID)]
	if len(versions) == 0 {
		return 1, nil
	}
	return versions[len(versions)-1].ModelVersion + 1, nil
}

// ForecastRepository keeps the latest forecast point per target date.
type ForecastRepository struct {
	mu     sync.RWMutex
	points map[string]map[string]domain.ForecastPoint // pair -> date -> point
}

func NewForecastRepository() *ForecastRepository {
	return &ForecastRepository{points: make(map[string]map[string]domain.ForecastPoint)}
}

func (r *ForecastRepository) SavePoints(_ context.Context, points []domain.ForecastPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pt := range points {
		key := pairKey(pt.StoreID, pt.ProductID)
		if r.points[key] == nil {
			r.points[key] = make(map[string]domain.ForecastPoint)
		}
		r.points[key][pt.TargetDate.Format("2006-01-02")] = pt
	}
	return nil
}

func (r *ForecastRepository) ListRange(_ context.Context, storeID, productID string, from, to time.Time) ([]domain.ForecastPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.ForecastPoint
	for _, pt := range r.points[pairKey(storeID, productID)] {
		if pt.TargetDate.Before(from) || pt.TargetDate.After(to) {
			continue
		}
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetDate.Before(out[j].TargetDate) })
	return out, nil
}

// InventoryRepository holds current inventory positions.
type InventoryRepository struct {
	mu        sync.RWMutex
	positions map[string]domain.InventoryPosition
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{positions: make(map[string]domain.InventoryPosition)}
}

// Put replaces a pair's position, simulating an external stock movement.
func (r *InventoryRepository) Put(pos domain.InventoryPosition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[pairKey(pos.StoreID, pos.ProductID)] = pos
}

func (r *InventoryRepository) Get(_ context.Context, storeID, productID string) (*domain.InventoryPosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.positions[pairKey(storeID, productID)]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "inventory position", StoreID: storeID, ProductID: productID}
	}
	return &pos, nil
}

func (r *InventoryRepository) UpdateReorderFields(_ context.Context, storeID, productID string, reorderPoint, safetyStock int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(storeID, productID)
	pos, ok := r.positions[key]
	if !ok {
		return &domain.NotFoundError{Kind: "inventory position", StoreID: storeID, ProductID: productID}
	}
	pos.ReorderPoint = reorderPoint
	pos.SafetyStock = safetyStock
	r.positions[key] = pos
	return nil
}

// SupplierRepository holds per-product ordering constraints.
type SupplierRepository struct {
	mu          sync.RWMutex
	constraints map[string]domain.SupplierConstraints
}

func NewSupplierRepository() *SupplierRepository {
	return &SupplierRepository{constraints: make(map[string]domain.SupplierConstraints)}
}

func (r *SupplierRepository) Put(c domain.SupplierConstraints) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constraints[c.ProductID] = c
}

func (r *SupplierRepository) GetConstraints(_ context.Context, productID string) (*domain.SupplierConstraints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constraints[productID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "supplier constraints", ProductID: productID}
	}
	return &c, nil
}
