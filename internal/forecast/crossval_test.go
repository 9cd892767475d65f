package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultCV() cvParams {
	return cvParams{initial: 90, period: 30, horizon: 30}
}

func TestCrossValidateFoldCount(t *testing.T) {
	obs := dailyHistory(200, func(d int, _ time.Time) float64 { return 10 + 0.1*float64(d) })

	metrics, err := crossValidate("s1", "p1", FamilyDecomposition, obs, defaultCV())
	require.NoError(t, err)

	// Origins at 90, 120, 150; 180+30 exceeds the history.
	assert.Equal(t, 3, metrics.Folds)
}

func TestCrossValidateShortHistoryShrinksToSingleFold(t *testing.T) {
	obs := dailyHistory(60, func(d int, _ time.Time) float64 { return 10 + 0.1*float64(d) })

	metrics, err := crossValidate("s1", "p1", FamilyDecomposition, obs, defaultCV())
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Folds)
}

func TestCrossValidateLinearSeriesScoresWell(t *testing.T) {
	obs := dailyHistory(200, func(d int, _ time.Time) float64 { return 100 + 0.5*float64(d) })

	metrics, err := crossValidate("s1", "p1", FamilyDecomposition, obs, defaultCV())
	require.NoError(t, err)

	assert.Less(t, metrics.MAPE, 5.0)
	assert.GreaterOrEqual(t, metrics.RMSE, metrics.MAE)
	assert.Greater(t, metrics.SMAPE, 0.0)
}

func TestCrossValidateDeterministic(t *testing.T) {
	obs := dailyHistory(200, func(d int, date time.Time) float64 {
		return 30 + 0.2*float64(d) + 3*float64(int(date.Weekday()))
	})

	a, err := crossValidate("s1", "p1", FamilyDecomposition, obs, defaultCV())
	require.NoError(t, err)
	b, err := crossValidate("s1", "p1", FamilyDecomposition, obs, defaultCV())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}
