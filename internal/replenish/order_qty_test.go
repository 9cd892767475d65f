package replenish

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

func baseConstraints() domain.SupplierConstraints {
	return domain.SupplierConstraints{
		ProductID:    "p1",
		CasePackSize: 24,
		OrderingCost: 50,
		HoldingCost:  2,
		UnitCost:     decimal.NewFromFloat(1.5),
	}
}

func TestOrderQuantityEOQScenario(t *testing.T) {
	// EOQ = sqrt(2 * 3650 * 50 / 2) = 427.2, rounded up to a case pack of 24.
	got, err := OrderQuantity(3650, baseConstraints())
	require.NoError(t, err)
	assert.Equal(t, 432, got)
}

func TestOrderQuantityRaisedToMOQ(t *testing.T) {
	c := baseConstraints()
	c.MinOrderQuantity = 500

	got, err := OrderQuantity(3650, c)
	require.NoError(t, err)
	assert.Equal(t, 504, got, "MOQ 500 rounded up to a case pack of 24")
}

func TestOrderQuantityGrowsToMinOrderValue(t *testing.T) {
	c := baseConstraints()
	c.UnitCost = decimal.NewFromInt(2)
	c.MinOrderValue = decimal.NewFromInt(2000)

	got, err := OrderQuantity(3650, c)
	require.NoError(t, err)

	// 1000 units needed to reach the value floor, in whole case packs.
	assert.Equal(t, 1008, got)
	assert.True(t, OrderCost(got, c.UnitCost).GreaterThanOrEqual(c.MinOrderValue))
}

func TestOrderQuantityAlwaysCasePackMultiple(t *testing.T) {
	c := baseConstraints()
	for _, demand := range []float64{0, 1, 100, 3650, 100000} {
		got, err := OrderQuantity(demand, c)
		require.NoError(t, err)
		assert.Zero(t, got%c.CasePackSize, "demand %v produced %d", demand, got)
		assert.GreaterOrEqual(t, got, c.CasePackSize)
	}
}

func TestOrderQuantityInvalidConstraints(t *testing.T) {
	cases := map[string]func(*domain.SupplierConstraints){
		"ordering cost": func(c *domain.SupplierConstraints) { c.OrderingCost = 0 },
		"holding cost":  func(c *domain.SupplierConstraints) { c.HoldingCost = -1 },
		"case pack":     func(c *domain.SupplierConstraints) { c.CasePackSize = 0 },
	}
	for name, mutate := range cases {
		c := baseConstraints()
		mutate(&c)
		_, err := OrderQuantity(3650, c)
		var inv *domain.InvalidSupplierConstraintsError
		require.ErrorAs(t, err, &inv, name)
	}
}

func TestOrderQuantityNegativeDemandClamped(t *testing.T) {
	got, err := OrderQuantity(-100, baseConstraints())
	require.NoError(t, err)
	assert.Equal(t, 24, got, "zero EOQ still yields one case pack")
}

func TestSuggestQuantityShortfallDominates(t *testing.T) {
	c := baseConstraints()

	got := SuggestQuantity(700, 432, c)
	assert.Equal(t, 720, got, "shortfall 700 rounded up to case packs")

	got = SuggestQuantity(100, 432, c)
	assert.Equal(t, 432, got, "EOQ dominates a small shortfall")
}

func TestSuggestQuantityHonorsMOQ(t *testing.T) {
	c := baseConstraints()
	c.MinOrderQuantity = 300

	got := SuggestQuantity(50, 96, c)
	assert.Equal(t, 312, got)
}

func TestSuggestQuantityZeroWhenNothingNeeded(t *testing.T) {
	c := baseConstraints()
	c.CasePackSize = 1

	assert.Equal(t, 0, SuggestQuantity(0, 0, c))
}

func TestOrderCost(t *testing.T) {
	cost := OrderCost(432, decimal.NewFromFloat(1.5))
	assert.True(t, cost.Equal(decimal.NewFromInt(648)))
}
