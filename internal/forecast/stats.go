// internal/forecast/stats.go
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/domain"
)

// Estimator computes rolling demand statistics from observation history.
// It is the shared foundation for model training and safety-stock math.
type Estimator struct {
	cfg config.EngineConfig
}

func NewEstimator(cfg config.EngineConfig) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate derives a DemandStatistics snapshot from the observation
// history of one (store, product) pair. It returns
// InsufficientHistoryError when the history is shorter than the
// configured minimum or has gaps wider than the configured tolerance;
// unreliable history is surfaced, never silently interpolated.
func (e *Estimator) Estimate(storeID, productID string, obs []domain.DemandObservation) (*domain.DemandStatistics, error) {
	if len(obs) < e.cfg.MinObservations {
		return nil, &domain.InsufficientHistoryError{
			StoreID:   storeID,
			ProductID: productID,
			Have:      len(obs),
			Need:      e.cfg.MinObservations,
		}
	}

	sorted := make([]domain.DemandObservation, len(obs))
	copy(sorted, obs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	if gap, at := widestGap(sorted); gap > e.cfg.MaxGapDays {
		return nil, &domain.InsufficientHistoryError{
			StoreID:   storeID,
			ProductID: productID,
			Have:      len(sorted),
			Need:      e.cfg.MinObservations,
			Reason: fmt.Sprintf("gap of %d missing days after %s exceeds tolerance of %d",
				gap, at.Format("2006-01-02"), e.cfg.MaxGapDays),
		}
	}

	short := trailingWindow(sorted, e.cfg.ShortWindowDays)
	long := trailingWindow(sorted, e.cfg.LongWindowDays)

	meanShort, stdShort := meanStdDev(quantities(short))
	meanLong, stdLong := meanStdDev(quantities(long))

	stats := &domain.DemandStatistics{
		StoreID:         storeID,
		ProductID:       productID,
		AsOfDate:        sorted[len(sorted)-1].Date,
		Observations:    len(sorted),
		MeanDaily:       meanShort,
		StdDevDaily:     stdShort,
		MeanDailyLong:   meanLong,
		StdDevDailyLong: stdLong,
		TrendSlope:      trendSlope(quantities(short)),
		SeasonalIndex:   seasonalIndex(short),
	}

	return stats, nil
}

// widestGap returns the largest run of missing days between consecutive
// observations and the date before it.
func widestGap(sorted []domain.DemandObservation) (int, time.Time) {
	widest := 0
	var at time.Time
	for i := 1; i < len(sorted); i++ {
		missing := int(sorted[i].Date.Sub(sorted[i-1].Date).Hours()/24) - 1
		if missing > widest {
			widest = missing
			at = sorted[i-1].Date
		}
	}
	return widest, at
}

// trailingWindow returns the observations within the last windowDays of
// the history, keeping order.
func trailingWindow(sorted []domain.DemandObservation, windowDays int) []domain.DemandObservation {
	if windowDays <= 0 || len(sorted) == 0 {
		return sorted
	}
	cutoff := sorted[len(sorted)-1].Date.AddDate(0, 0, -windowDays+1)
	for i, o := range sorted {
		if !o.Date.Before(cutoff) {
			return sorted[i:]
		}
	}
	return sorted[len(sorted):]
}

func quantities(obs []domain.DemandObservation) []float64 {
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.QuantitySold
	}
	return values
}

// meanStdDev returns the mean and sample standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}

// trendSlope fits an ordinary least squares line over the values indexed
// by position and returns its slope in units per day.
func trendSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumT, sumY, sumTY, sumTT float64
	for i, y := range values {
		t := float64(i)
		sumT += t
		sumY += y
		sumTY += t * y
		sumTT += t * t
	}

	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		return 0
	}
	return (n*sumTY - sumT*sumY) / denom
}

// seasonalIndex computes day-of-week demand multipliers normalized so
// the average index is 1.0. Weekdays with no observations, or a history
// with zero average demand, get an index of 1.0.
func seasonalIndex(obs []domain.DemandObservation) [7]float64 {
	var sums, counts [7]float64
	var total float64
	for _, o := range obs {
		wd := int(o.Date.Weekday())
		sums[wd] += o.QuantitySold
		counts[wd]++
		total += o.QuantitySold
	}

	index := [7]float64{1, 1, 1, 1, 1, 1, 1}
	if total == 0 || len(obs) == 0 {
		return index
	}
	overall := total / float64(len(obs))

	for wd := 0; wd < 7; wd++ {
		if counts[wd] > 0 && overall > 0 {
			index[wd] = (sums[wd] / counts[wd]) / overall
		}
	}

	// Renormalize so the mean index stays exactly 1.0.
	var mean float64
	for _, v := range index {
		mean += v
	}
	mean /= 7
	if mean > 0 {
		for wd := range index {
			index[wd] /= mean
		}
	}
	return index
}
