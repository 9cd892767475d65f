package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

type ModelRepository struct {
	db *DB
}

func NewModelRepository(db *DB) *ModelRepository {
	return &ModelRepository{db: db}
}

type modelRow struct {
	StoreID              string    `db:"store_id"`
	ProductID            string    `db:"product_id"`
	ModelVersion         int       `db:"model_version"`
	Family               string    `db:"family"`
	Parameters           []byte    `db:"parameters"`
	TrainingStart        time.Time `db:"training_start"`
	TrainingEnd          time.Time `db:"training_end"`
	TrainingObservations int       `db:"training_observations"`
	MAPE                 float64   `db:"mape"`
	RMSE                 float64   `db:"rmse"`
	MAE                  float64   `db:"mae"`
	SMAPE                float64   `db:"smape"`
	Folds                int       `db:"folds"`
	TrainedAt            time.Time `db:"trained_at"`
}

func (row modelRow) toDomain() *domain.ForecastModel {
	return &domain.ForecastModel{
		StoreID:      row.StoreID,
		ProductID:    row.ProductID,
		ModelVersion: row.ModelVersion,
		Family:       row.Family,
		Parameters:   row.Parameters,
		Window: domain.TrainingWindow{
			Start:        row.TrainingStart,
			End:          row.TrainingEnd,
			Observations: row.TrainingObservations,
		},
		Metrics: domain.ValidationMetrics{
			MAPE:  row.MAPE,
			RMSE:  row.RMSE,
			MAE:   row.MAE,
			SMAPE: row.SMAPE,
			Folds: row.Folds,
		},
		TrainedAt: row.TrainedAt,
	}
}

const modelColumns = `
	store_id, product_id, model_version, family, parameters,
	training_start, training_end, training_observations,
	mape, rmse, mae, smape, folds, trained_at`

func (r *ModelRepository) Create(ctx context.Context, model *domain.ForecastModel) error {
	query := `
		INSERT INTO forecast_models (
			store_id, product_id, model_version, family, parameters,
			training_start, training_end, training_observations,
			mape, rmse, mae, smape, folds, trained_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	if _, err := r.db.ExecContext(ctx, query,
		model.StoreID, model.ProductID, model.ModelVersion, model.Family, model.Parameters,
		model.Window.Start, model.Window.End, model.Window.Observations,
		model.Metrics.MAPE, model.Metrics.RMSE, model.Metrics.MAE, model.Metrics.SMAPE, model.Metrics.Folds,
		model.TrainedAt,
	); err != nil {
		return fmt.Errorf("could not create model version: %w", err)
	}
	return nil
}

func (r *ModelRepository) Latest(ctx context.Context, storeID, productID string) (*domain.ForecastModel, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM forecast_models
		WHERE store_id = $1 AND product_id = $2
		ORDER BY model_version DESC
		LIMIT 1`

	var row modelRow
	if err := r.db.GetContext(ctx, &row, query, storeID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "forecast model", StoreID: storeID, ProductID: productID}
		}
		return nil, fmt.Errorf("could not load latest model: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ModelRepository) Get(ctx context.Context, storeID, productID string, version int) (*domain.ForecastModel, error) {
	query := `
		SELECT ` + modelColumns + `
		FROM forecast_models
		WHERE store_id = $1 AND product_id = $2 AND model_version = $3`

	var row modelRow
	if err := r.db.GetContext(ctx, &row, query, storeID, productID, version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "forecast model", StoreID: storeID, ProductID: productID}
		}
		return nil, fmt.Errorf("could not load model version %d: %w", version, err)
	}
	return row.toDomain(), nil
}

func (r *ModelRepository) NextVersion(ctx context.Context, storeID, productID string) (int, error) {
	query := `
		SELECT COALESCE(MAX(model_version), 0) + 1
		FROM forecast_models
		WHERE store_id = $1 AND product_id = $2`

	var next int
	if err := r.db.GetContext(ctx, &next, query, storeID, productID); err != nil {
		return 0, fmt.Errorf("could not determine next model version: %w", err)
	}
	return next, nil
}
