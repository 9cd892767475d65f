// internal/repository/memory/trigger_repository.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// TriggerRepository enforces the at-most-one-ACTIVE invariant with a
// single lock around the check-and-insert, mirroring the conditional
// write the postgres implementation gets from its partial unique index.
type TriggerRepository struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]*domain.ReplenishmentTrigger
	activeBy map[string]int64 // pair -> active trigger id
}

func NewTriggerRepository() *TriggerRepository {
	return &TriggerRepository{
		nextID:   1,
		byID:     make(map[int64]*domain.ReplenishmentTrigger),
		activeBy: make(map[string]int64),
	}
}

func (r *TriggerRepository) Active(_ context.Context, storeID, productID string) (*domain.ReplenishmentTrigger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.activeBy[pairKey(storeID, productID)]
	if !ok {
		return nil, nil
	}
	t := *r.byID[id]
	return &t, nil
}

func (r *TriggerRepository) CreateActive(_ context.Context, trigger *domain.ReplenishmentTrigger) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(trigger.StoreID, trigger.ProductID)
	if _, exists := r.activeBy[key]; exists {
		return false, nil
	}

	trigger.ID = r.nextID
	r.nextID++
	stored := *trigger
	r.byID[stored.ID] = &stored
	r.activeBy[key] = stored.ID
	return true, nil
}

func (r *TriggerRepository) Resolve(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("trigger %d not found", id)
	}
	if t.Status != domain.TriggerActive {
		return nil
	}
	t.Status = domain.TriggerResolved
	resolved := at
	t.ResolvedAt = &resolved
	delete(r.activeBy, pairKey(t.StoreID, t.ProductID))
	return nil
}

func (r *TriggerRepository) Supersede(_ context.Context, oldID int64, replacement *domain.ReplenishmentTrigger) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[oldID]
	if !ok {
		return fmt.Errorf("trigger %d not found", oldID)
	}
	if old.Status != domain.TriggerActive {
		return fmt.Errorf("trigger %d is %s, not %s", oldID, old.Status, domain.TriggerActive)
	}

	replacement.ID = r.nextID
	r.nextID++
	stored := *replacement
	r.byID[stored.ID] = &stored
	r.activeBy[pairKey(stored.StoreID, stored.ProductID)] = stored.ID

	old.Status = domain.TriggerSuperseded
	now := replacement.CreatedAt
	old.ResolvedAt = &now
	newID := stored.ID
	old.SupersededBy = &newID
	return nil
}

// All returns every stored trigger, newest first. Test helper.
func (r *TriggerRepository) All() []domain.ReplenishmentTrigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ReplenishmentTrigger, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, *t)
	}
	return out
}
