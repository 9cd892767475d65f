package replenish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

func TestZScore(t *testing.T) {
	assert.InDelta(t, 0, ZScore(0.5), 1e-12)
	assert.InDelta(t, 1.2815515655, ZScore(0.90), 1e-6)
	assert.InDelta(t, 1.6448536270, ZScore(0.95), 1e-6)
	assert.InDelta(t, 2.3263478740, ZScore(0.99), 1e-6)
}

func TestSafetyStockScenario(t *testing.T) {
	// z(0.95) * 4 * sqrt(9) = 1.6449 * 4 * 3 = 19.74, rounded up.
	got, err := SafetyStock(4, 9, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 20, got)
}

func TestSafetyStockIsPure(t *testing.T) {
	a, err := SafetyStock(3.7, 14, 0.9)
	require.NoError(t, err)
	b, err := SafetyStock(3.7, 14, 0.9)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSafetyStockInvalidServiceLevel(t *testing.T) {
	for _, level := range []float64{0, 1, 1.5, -0.2} {
		_, err := SafetyStock(4, 9, level)
		var inv *domain.InvalidServiceLevelError
		require.ErrorAs(t, err, &inv, "level %v", level)
		assert.Equal(t, level, inv.ServiceLevel)
	}
}

func TestSafetyStockClampsToZero(t *testing.T) {
	got, err := SafetyStock(0, 9, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = SafetyStock(4, 0, 0.95)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	// At or below the median the z-score is non-positive.
	got, err = SafetyStock(4, 9, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestSafetyStockMonotonicInServiceLevel(t *testing.T) {
	low, err := SafetyStock(4, 9, 0.90)
	require.NoError(t, err)
	high, err := SafetyStock(4, 9, 0.99)
	require.NoError(t, err)
	assert.Greater(t, high, low)
}
