package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// TriggerRepository backs the at-most-one-ACTIVE invariant with a partial
// unique index:
//
//	CREATE UNIQUE INDEX replenishment_triggers_one_active
//	ON replenishment_triggers (store_id, product_id)
//	WHERE status = 'ACTIVE';
//
// CreateActive inserts with ON CONFLICT DO NOTHING against that index, so
// concurrent evaluations of the same pair race at the database rather than
// in application code.
type TriggerRepository struct {
	db *DB
}

func NewTriggerRepository(db *DB) *TriggerRepository {
	return &TriggerRepository{db: db}
}

func (r *TriggerRepository) Active(ctx context.Context, storeID, productID string) (*domain.ReplenishmentTrigger, error) {
	query := `
		SELECT id, store_id, product_id, status, urgency, suggested_quantity,
		       superseded_by, created_at, resolved_at
		FROM replenishment_triggers
		WHERE store_id = $1 AND product_id = $2 AND status = 'ACTIVE'`

	var t domain.ReplenishmentTrigger
	if err := r.db.GetContext(ctx, &t, query, storeID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not load active trigger: %w", err)
	}
	return &t, nil
}

func (r *TriggerRepository) CreateActive(ctx context.Context, trigger *domain.ReplenishmentTrigger) (bool, error) {
	query := `
		INSERT INTO replenishment_triggers (
			store_id, product_id, status, urgency, suggested_quantity, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (store_id, product_id) WHERE status = 'ACTIVE' DO NOTHING
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		trigger.StoreID, trigger.ProductID, trigger.Status,
		trigger.Urgency, trigger.SuggestedQuantity, trigger.CreatedAt,
	).Scan(&trigger.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// The conflict target matched an existing ACTIVE row.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not create trigger: %w", err)
	}
	return true, nil
}

func (r *TriggerRepository) Resolve(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE replenishment_triggers
		SET status = 'RESOLVED', resolved_at = $2
		WHERE id = $1 AND status = 'ACTIVE'`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("could not resolve trigger %d: %w", id, err)
	}
	return nil
}

func (r *TriggerRepository) Supersede(ctx context.Context, oldID int64, replacement *domain.ReplenishmentTrigger) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Close the old trigger first so the partial unique index admits
		// the replacement within the same transaction.
		closeQuery := `
			UPDATE replenishment_triggers
			SET status = 'SUPERSEDED', resolved_at = $2
			WHERE id = $1 AND status = 'ACTIVE'`

		res, err := tx.ExecContext(ctx, closeQuery, oldID, replacement.CreatedAt)
		if err != nil {
			return fmt.Errorf("could not close trigger %d: %w", oldID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("trigger %d is not active", oldID)
		}

		insertQuery := `
			INSERT INTO replenishment_triggers (
				store_id, product_id, status, urgency, suggested_quantity, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`

		if err := tx.QueryRowxContext(ctx, insertQuery,
			replacement.StoreID, replacement.ProductID, replacement.Status,
			replacement.Urgency, replacement.SuggestedQuantity, replacement.CreatedAt,
		).Scan(&replacement.ID); err != nil {
			return fmt.Errorf("could not insert replacement trigger: %w", err)
		}

		linkQuery := `UPDATE replenishment_triggers SET superseded_by = $2 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, linkQuery, oldID, replacement.ID); err != nil {
			return fmt.Errorf("could not link superseded trigger %d: %w", oldID, err)
		}
		return nil
	})
}
