package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

type InventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Get(ctx context.Context, storeID, productID string) (*domain.InventoryPosition, error) {
	query := `
		SELECT store_id, product_id, quantity_on_hand, quantity_committed,
		       reorder_point, safety_stock, lead_time_days
		FROM inventory_positions
		WHERE store_id = $1 AND product_id = $2`

	var pos domain.InventoryPosition
	if err := r.db.GetContext(ctx, &pos, query, storeID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "inventory position", StoreID: storeID, ProductID: productID}
		}
		return nil, fmt.Errorf("could not load inventory position: %w", err)
	}
	return &pos, nil
}

func (r *InventoryRepository) UpdateReorderFields(ctx context.Context, storeID, productID string, reorderPoint, safetyStock int) error {
	query := `
		UPDATE inventory_positions
		SET reorder_point = $3, safety_stock = $4, updated_at = NOW()
		WHERE store_id = $1 AND product_id = $2`

	res, err := r.db.ExecContext(ctx, query, storeID, productID, reorderPoint, safetyStock)
	if err != nil {
		return fmt.Errorf("could not update reorder fields: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Kind: "inventory position", StoreID: storeID, ProductID: productID}
	}
	return nil
}
