package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

type ForecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

type forecastRow struct {
	StoreID      string    `db:"store_id"`
	ProductID    string    `db:"product_id"`
	ModelVersion int       `db:"model_version"`
	TargetDate   time.Time `db:"target_date"`
	P50          float64   `db:"p50"`
	P90          float64   `db:"p90"`
	Trend        float64   `db:"trend"`
	Seasonal     float64   `db:"seasonal"`
	ResidualBand float64   `db:"residual_band"`
}

// SavePoints upserts a batch of forecast points. A newer run for the same
// (store, product, target_date) replaces the previous row.
func (r *ForecastRepository) SavePoints(ctx context.Context, points []domain.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}

	query := `
		INSERT INTO forecast_points (
			store_id, product_id, model_version, target_date,
			p50, p90, trend, seasonal, residual_band
		) VALUES (
			:store_id, :product_id, :model_version, :target_date,
			:p50, :p90, :trend, :seasonal, :residual_band
		)
		ON CONFLICT (store_id, product_id, target_date) DO UPDATE SET
			model_version = EXCLUDED.model_version,
			p50 = EXCLUDED.p50,
			p90 = EXCLUDED.p90,
			trend = EXCLUDED.trend,
			seasonal = EXCLUDED.seasonal,
			residual_band = EXCLUDED.residual_band`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, pt := range points {
			row := forecastRow{
				StoreID:      pt.StoreID,
				ProductID:    pt.ProductID,
				ModelVersion: pt.ModelVersion,
				TargetDate:   pt.TargetDate,
				P50:          pt.P50,
				P90:          pt.P90,
				Trend:        pt.Components.Trend,
				Seasonal:     pt.Components.Seasonal,
				ResidualBand: pt.Components.ResidualBand,
			}
			if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
				return fmt.Errorf("could not save forecast point for %s: %w", pt.TargetDate.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

func (r *ForecastRepository) ListRange(ctx context.Context, storeID, productID string, from, to time.Time) ([]domain.ForecastPoint, error) {
	query := `
		SELECT store_id, product_id, model_version, target_date,
		       p50, p90, trend, seasonal, residual_band
		FROM forecast_points
		WHERE store_id = $1 AND product_id = $2
		  AND target_date >= $3 AND target_date <= $4
		ORDER BY target_date ASC`

	var rows []forecastRow
	if err := r.db.SelectContext(ctx, &rows, query, storeID, productID, from, to); err != nil {
		return nil, fmt.Errorf("could not list forecast points: %w", err)
	}

	points := make([]domain.ForecastPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, domain.ForecastPoint{
			StoreID:      row.StoreID,
			ProductID:    row.ProductID,
			ModelVersion: row.ModelVersion,
			TargetDate:   row.TargetDate,
			P50:          row.P50,
			P90:          row.P90,
			Components: domain.ForecastComponents{
				Trend:        row.Trend,
				Seasonal:     row.Seasonal,
				ResidualBand: row.ResidualBand,
			},
		})
	}
	return points, nil
}
