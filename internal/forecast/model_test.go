package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

func TestFitDecompositionRecoversTrend(t *testing.T) {
	obs := dailyHistory(120, func(d int, _ time.Time) float64 { return 10 + 0.5*float64(d) })

	params, err := fitDecomposition("s1", "p1", obs)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, params.Slope, 0.05)
	assert.Equal(t, 120, params.N)
	assert.Equal(t, obs[119].Date, params.LastDate)

	// One step past the end of training continues the line.
	next := params.predict(1, params.LastDate.AddDate(0, 0, 1).Weekday())
	assert.InDelta(t, 10+0.5*120, next, 3)
}

func TestFitDecompositionDeterministic(t *testing.T) {
	obs := dailyHistory(120, func(d int, date time.Time) float64 {
		return 20 + 0.2*float64(d) + 5*float64(int(date.Weekday()))
	})

	a, err := fitDecomposition("s1", "p1", obs)
	require.NoError(t, err)
	b, err := fitDecomposition("s1", "p1", obs)
	require.NoError(t, err)

	blobA, err := a.encode()
	require.NoError(t, err)
	blobB, err := b.encode()
	require.NoError(t, err)
	assert.Equal(t, blobA, blobB)
}

func TestFitDecompositionTooFewObservations(t *testing.T) {
	obs := dailyHistory(1, constantDemand(5))

	_, err := fitDecomposition("s1", "p1", obs)

	var mt *domain.ModelTrainingError
	require.ErrorAs(t, err, &mt)
	assert.Equal(t, FamilyDecomposition, mt.Family)
}

func TestPredictClampsNegative(t *testing.T) {
	// Steeply declining demand goes negative when extrapolated far out.
	obs := dailyHistory(90, func(d int, _ time.Time) float64 {
		v := 100 - 2*float64(d)
		if v < 0 {
			return 0
		}
		return v
	})

	params, err := fitDecomposition("s1", "p1", obs)
	require.NoError(t, err)

	far := params.predict(365, time.Monday)
	assert.GreaterOrEqual(t, far, 0.0)
}

func TestFitSESDeterministicGridSearch(t *testing.T) {
	obs := dailyHistory(120, func(d int, _ time.Time) float64 { return 50 + 0.3*float64(d) })

	a, err := fitSES("s1", "p1", obs)
	require.NoError(t, err)
	b, err := fitSES("s1", "p1", obs)
	require.NoError(t, err)

	assert.Equal(t, a.Alpha, b.Alpha)
	assert.Equal(t, a.Beta, b.Beta)
	assert.Equal(t, a.Level, b.Level)
	assert.Equal(t, a.Trend, b.Trend)

	// Linear data is tracked closely, so the final state extrapolates it.
	assert.InDelta(t, 50+0.3*120, a.predict(1, time.Friday), 5)
}

func TestFitSESTooFewObservations(t *testing.T) {
	obs := dailyHistory(2, constantDemand(5))

	_, err := fitSES("s1", "p1", obs)

	var mt *domain.ModelTrainingError
	require.ErrorAs(t, err, &mt)
	assert.Equal(t, FamilySES, mt.Family)
}

func TestFitFamilyUnknown(t *testing.T) {
	obs := dailyHistory(90, constantDemand(5))

	_, err := fitFamily("arima", "s1", "p1", obs)

	var mt *domain.ModelTrainingError
	require.ErrorAs(t, err, &mt)
	assert.Equal(t, "arima", mt.Family)
}

func TestParameterRoundTrip(t *testing.T) {
	obs := dailyHistory(90, func(d int, _ time.Time) float64 { return 12 + 0.1*float64(d) })

	params, err := fitDecomposition("s1", "p1", obs)
	require.NoError(t, err)

	blob, err := params.encode()
	require.NoError(t, err)
	decoded, err := decodeParameters(blob)
	require.NoError(t, err)

	assert.Equal(t, params.predict(7, time.Sunday), decoded.predict(7, time.Sunday))
}
