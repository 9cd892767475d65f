// internal/replenish/order_qty.go
package replenish

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// OrderQuantity computes an economically sized replenishment quantity.
// It starts from the classical Economic Order Quantity
//
//	EOQ = sqrt(2 * annual_demand * ordering_cost / holding_cost)
//
// then rounds up to a case-pack multiple, raises the result to the
// minimum order quantity, and finally grows it to the smallest case-pack
// multiple whose order value meets the supplier's minimum. The returned
// quantity is always a positive multiple of the case-pack size.
func OrderQuantity(annualDemand float64, c domain.SupplierConstraints) (int, error) {
	if c.OrderingCost <= 0 {
		return 0, &domain.InvalidSupplierConstraintsError{ProductID: c.ProductID, Reason: "ordering_cost must be positive"}
	}
	if c.HoldingCost <= 0 {
		return 0, &domain.InvalidSupplierConstraintsError{ProductID: c.ProductID, Reason: "holding_cost must be positive"}
	}
	if c.CasePackSize <= 0 {
		return 0, &domain.InvalidSupplierConstraintsError{ProductID: c.ProductID, Reason: "case_pack_size must be positive"}
	}
	if annualDemand < 0 {
		annualDemand = 0
	}

	eoq := math.Sqrt(2 * annualDemand * c.OrderingCost / c.HoldingCost)
	qty := roundUpToMultiple(int(math.Ceil(eoq)), c.CasePackSize)

	if qty < c.MinOrderQuantity {
		qty = roundUpToMultiple(c.MinOrderQuantity, c.CasePackSize)
	}
	if qty < c.CasePackSize {
		qty = c.CasePackSize
	}

	// Grow to meet the minimum order value, in whole case packs.
	if c.MinOrderValue.IsPositive() && c.UnitCost.IsPositive() {
		value := c.UnitCost.Mul(decimal.NewFromInt(int64(qty)))
		if value.LessThan(c.MinOrderValue) {
			needed := c.MinOrderValue.Div(c.UnitCost).Ceil().IntPart()
			grown := roundUpToMultiple(int(needed), c.CasePackSize)
			if grown > qty {
				qty = grown
			}
		}
	}

	return qty, nil
}

// SuggestQuantity sizes one replenishment order: the larger of the
// economic order quantity and the shortfall against the reorder point,
// raised to the supplier minimum and rounded up to whole case packs.
func SuggestQuantity(shortfall, eoqQty int, c domain.SupplierConstraints) int {
	qty := eoqQty
	if shortfall > qty {
		qty = shortfall
	}
	if qty < c.MinOrderQuantity {
		qty = c.MinOrderQuantity
	}
	if qty <= 0 {
		return 0
	}
	qty = roundUpToMultiple(qty, c.CasePackSize)
	if qty < c.CasePackSize {
		qty = c.CasePackSize
	}
	return qty
}

// OrderCost returns the monetary value of the given quantity.
func OrderCost(quantity int, unitCost decimal.Decimal) decimal.Decimal {
	return unitCost.Mul(decimal.NewFromInt(int64(quantity)))
}

func roundUpToMultiple(v, multiple int) int {
	if multiple <= 1 {
		return v
	}
	if v <= 0 {
		return 0
	}
	if rem := v % multiple; rem != 0 {
		return v + multiple - rem
	}
	return v
}
