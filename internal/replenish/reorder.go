// internal/replenish/reorder.go
package replenish

import (
	"math"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// ReorderResult carries the reorder point plus metadata about how it was
// computed.
type ReorderResult struct {
	ReorderPoint     int
	DemandDuringLead float64
	// ForecastIncomplete is set when fewer forecast points than lead-time
	// days were available and the statistics fallback was used. Non-fatal,
	// but it must reach downstream consumers so auto-approval can be
	// deprioritized.
	ForecastIncomplete bool
}

// ReorderPoint sums the P50 forecast over the lead time and adds safety
// stock. When the forecast horizon is shorter than the lead time it falls
// back to mean daily demand and flags the result FORECAST_INCOMPLETE.
//
// The result is deterministic and monotonic: raising forecast demand,
// lead time, or safety stock never lowers it.
func ReorderPoint(points []domain.ForecastPoint, stats *domain.DemandStatistics, leadTimeDays, safetyStock int) ReorderResult {
	if leadTimeDays <= 0 {
		return ReorderResult{ReorderPoint: clampNonNegative(safetyStock)}
	}

	if len(points) >= leadTimeDays {
		var sum float64
		for _, pt := range points[:leadTimeDays] {
			sum += pt.P50
		}
		return ReorderResult{
			ReorderPoint:     clampNonNegative(int(math.Ceil(sum)) + safetyStock),
			DemandDuringLead: sum,
		}
	}

	var mean float64
	if stats != nil {
		mean = stats.MeanDaily
	}
	demand := mean * float64(leadTimeDays)
	return ReorderResult{
		ReorderPoint:       clampNonNegative(int(math.Ceil(demand)) + safetyStock),
		DemandDuringLead:   demand,
		ForecastIncomplete: true,
	}
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
