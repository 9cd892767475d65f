package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

type StatisticsRepository struct {
	db *DB
}

func NewStatisticsRepository(db *DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

type statisticsRow struct {
	StoreID         string    `db:"store_id"`
	ProductID       string    `db:"product_id"`
	AsOfDate        time.Time `db:"as_of_date"`
	Observations    int       `db:"observations"`
	MeanDaily       float64   `db:"mean_daily_demand"`
	StdDevDaily     float64   `db:"stddev_daily_demand"`
	MeanDailyLong   float64   `db:"mean_daily_demand_long"`
	StdDevDailyLong float64   `db:"stddev_daily_demand_long"`
	TrendSlope      float64   `db:"trend_slope"`
	SeasonalIndex   []byte    `db:"seasonal_index"`
}

func (r *StatisticsRepository) SaveSnapshot(ctx context.Context, stats *domain.DemandStatistics) error {
	seasonal, err := json.Marshal(stats.SeasonalIndex)
	if err != nil {
		return fmt.Errorf("could not encode seasonal index: %w", err)
	}

	query := `
		INSERT INTO demand_statistics (
			store_id, product_id, as_of_date, observations,
			mean_daily_demand, stddev_daily_demand,
			mean_daily_demand_long, stddev_daily_demand_long,
			trend_slope, seasonal_index
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := r.db.ExecContext(ctx, query,
		stats.StoreID, stats.ProductID, stats.AsOfDate, stats.Observations,
		stats.MeanDaily, stats.StdDevDaily,
		stats.MeanDailyLong, stats.StdDevDailyLong,
		stats.TrendSlope, seasonal,
	); err != nil {
		return fmt.Errorf("could not save statistics snapshot: %w", err)
	}
	return nil
}

func (r *StatisticsRepository) Latest(ctx context.Context, storeID, productID string) (*domain.DemandStatistics, error) {
	query := `
		SELECT store_id, product_id, as_of_date, observations,
		       mean_daily_demand, stddev_daily_demand,
		       mean_daily_demand_long, stddev_daily_demand_long,
		       trend_slope, seasonal_index
		FROM demand_statistics
		WHERE store_id = $1 AND product_id = $2
		ORDER BY as_of_date DESC, id DESC
		LIMIT 1`

	var row statisticsRow
	if err := r.db.GetContext(ctx, &row, query, storeID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "demand statistics", StoreID: storeID, ProductID: productID}
		}
		return nil, fmt.Errorf("could not load latest statistics: %w", err)
	}

	stats := &domain.DemandStatistics{
		StoreID:         row.StoreID,
		ProductID:       row.ProductID,
		AsOfDate:        row.AsOfDate,
		Observations:    row.Observations,
		MeanDaily:       row.MeanDaily,
		StdDevDaily:     row.StdDevDaily,
		MeanDailyLong:   row.MeanDailyLong,
		StdDevDailyLong: row.StdDevDailyLong,
		TrendSlope:      row.TrendSlope,
	}
	if err := json.Unmarshal(row.SeasonalIndex, &stats.SeasonalIndex); err != nil {
		return nil, fmt.Errorf("could not decode seasonal index: %w", err)
	}
	return stats, nil
}
