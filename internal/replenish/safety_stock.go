// internal/replenish/safety_stock.go
package replenish

import (
	"math"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// ZScore returns the inverse standard normal CDF at p, computed exactly
// from the inverse error function rather than a lookup table.
func ZScore(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// ValidateServiceLevel rejects service levels outside the open interval
// (0, 1).
func ValidateServiceLevel(serviceLevel float64) error {
	if serviceLevel <= 0 || serviceLevel >= 1 {
		return &domain.InvalidServiceLevelError{ServiceLevel: serviceLevel}
	}
	return nil
}

// SafetyStock converts demand variability, lead time, and a target
// service level into a buffer quantity:
//
//	safety_stock = ceil(z(level) * stddev_daily * sqrt(lead_time_days))
//
// It is a pure function: identical inputs always yield identical output.
// Service levels at or below 0.5 produce a non-positive z and clamp to
// zero, as does zero demand variability.
func SafetyStock(stddevDaily float64, leadTimeDays int, serviceLevel float64) (int, error) {
	if err := ValidateServiceLevel(serviceLevel); err != nil {
		return 0, err
	}
	if leadTimeDays <= 0 || stddevDaily <= 0 {
		return 0, nil
	}

	raw := ZScore(serviceLevel) * stddevDaily * math.Sqrt(float64(leadTimeDays))
	if raw <= 0 {
		return 0, nil
	}
	return int(math.Ceil(raw)), nil
}
