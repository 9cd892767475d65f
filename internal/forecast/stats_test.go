package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/domain"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// dailyHistory builds consecutive daily observations with quantities from fn.
func dailyHistory(days int, fn func(day int, date time.Time) float64) []domain.DemandObservation {
	obs := make([]domain.DemandObservation, 0, days)
	for d := 0; d < days; d++ {
		date := testStart.AddDate(0, 0, d)
		obs = append(obs, domain.DemandObservation{
			StoreID:      "s1",
			ProductID:    "p1",
			Date:         date,
			QuantitySold: fn(d, date),
		})
	}
	return obs
}

func constantDemand(v float64) func(int, time.Time) float64 {
	return func(int, time.Time) float64 { return v }
}

func TestEstimateRequiresMinimumHistory(t *testing.T) {
	est := NewEstimator(config.DefaultEngineConfig())
	obs := dailyHistory(30, constantDemand(5))

	_, err := est.Estimate("s1", "p1", obs)

	var ih *domain.InsufficientHistoryError
	require.ErrorAs(t, err, &ih)
	assert.Equal(t, 30, ih.Have)
	assert.Equal(t, 60, ih.Need)
}

func TestEstimateRejectsWideGaps(t *testing.T) {
	est := NewEstimator(config.DefaultEngineConfig())
	obs := dailyHistory(90, constantDemand(5))
	// Open a 10-day hole in the middle of the history.
	obs = append(obs[:40], obs[50:]...)

	_, err := est.Estimate("s1", "p1", obs)

	var ih *domain.InsufficientHistoryError
	require.ErrorAs(t, err, &ih)
	assert.Contains(t, ih.Reason, "gap")
}

func TestEstimateWindowedMeans(t *testing.T) {
	est := NewEstimator(config.DefaultEngineConfig())
	// 210 days at 10/day followed by 90 days at 20/day.
	obs := dailyHistory(300, func(d int, _ time.Time) float64 {
		if d < 210 {
			return 10
		}
		return 20
	})

	stats, err := est.Estimate("s1", "p1", obs)
	require.NoError(t, err)

	assert.InDelta(t, 20, stats.MeanDaily, 0.01, "short window covers only the recent level")
	assert.InDelta(t, 13, stats.MeanDailyLong, 0.01)
	assert.Equal(t, 300, stats.Observations)
	assert.Equal(t, obs[299].Date, stats.AsOfDate)
}

func TestEstimateSeasonalIndexNormalized(t *testing.T) {
	est := NewEstimator(config.DefaultEngineConfig())
	// Weekends sell triple.
	obs := dailyHistory(180, func(_ int, date time.Time) float64 {
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			return 30
		}
		return 10
	})

	stats, err := est.Estimate("s1", "p1", obs)
	require.NoError(t, err)

	var mean float64
	for _, v := range stats.SeasonalIndex {
		mean += v
	}
	mean /= 7
	assert.InDelta(t, 1.0, mean, 1e-9)

	assert.Greater(t, stats.SeasonalIndex[time.Saturday], stats.SeasonalIndex[time.Monday])
	assert.Greater(t, stats.SeasonalIndex[time.Sunday], stats.SeasonalIndex[time.Wednesday])
}

func TestEstimateTrendSlope(t *testing.T) {
	est := NewEstimator(config.DefaultEngineConfig())

	rising := dailyHistory(90, func(d int, _ time.Time) float64 { return 10 + float64(d) })
	stats, err := est.Estimate("s1", "p1", rising)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, stats.TrendSlope, 0.01)

	flat := dailyHistory(90, constantDemand(10))
	stats, err = est.Estimate("s1", "p1", flat)
	require.NoError(t, err)
	assert.InDelta(t, 0, stats.TrendSlope, 1e-9)
	assert.InDelta(t, 10, stats.MeanDaily, 1e-9)
	assert.InDelta(t, 0, stats.StdDevDaily, 1e-9)
}

func TestEstimateOrderInsensitive(t *testing.T) {
	est := NewEstimator(config.DefaultEngineConfig())
	obs := dailyHistory(90, func(d int, _ time.Time) float64 { return float64(5 + d%7) })

	shuffled := make([]domain.DemandObservation, len(obs))
	copy(shuffled, obs)
	for i := 0; i < len(shuffled)-1; i += 2 {
		shuffled[i], shuffled[i+1] = shuffled[i+1], shuffled[i]
	}

	a, err := est.Estimate("s1", "p1", obs)
	require.NoError(t, err)
	b, err := est.Estimate("s1", "p1", shuffled)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
