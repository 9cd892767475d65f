package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

type SupplierRepository struct {
	db *DB
}

func NewSupplierRepository(db *DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) GetConstraints(ctx context.Context, productID string) (*domain.SupplierConstraints, error) {
	query := `
		SELECT product_id, min_order_quantity, case_pack_size,
		       min_order_value, unit_cost, ordering_cost, holding_cost
		FROM supplier_constraints
		WHERE product_id = $1`

	var c domain.SupplierConstraints
	if err := r.db.GetContext(ctx, &c, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "supplier constraints", ProductID: productID}
		}
		return nil, fmt.Errorf("could not load supplier constraints: %w", err)
	}
	return &c, nil
}
