package postgres

import (
	"context"
	"fmt"

	"github.com/retailinventory/forecast-engine/internal/domain"
	"github.com/retailinventory/forecast-engine/internal/repository"
)

type HistoryRepository struct {
	db *DB
}

func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) ListObservations(ctx context.Context, storeID, productID string) ([]domain.DemandObservation, error) {
	query := `
		SELECT store_id, product_id, date, quantity_sold
		FROM demand_observations
		WHERE store_id = $1 AND product_id = $2
		ORDER BY date ASC`

	var obs []domain.DemandObservation
	if err := r.db.SelectContext(ctx, &obs, query, storeID, productID); err != nil {
		return nil, fmt.Errorf("could not list observations: %w", err)
	}
	return obs, nil
}

func (r *HistoryRepository) ListPairs(ctx context.Context) ([]repository.Pair, error) {
	query := `
		SELECT DISTINCT store_id, product_id
		FROM demand_observations
		ORDER BY store_id, product_id`

	var pairs []repository.Pair
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, fmt.Errorf("could not list pairs: %w", err)
	}
	return pairs, nil
}
