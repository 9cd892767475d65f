// internal/forecast/crossval.go
package forecast

import (
	"math"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// cvParams controls rolling-origin cross-validation: the model is fitted
// on the first `initial` observations, scored on the next `horizon`, then
// the origin advances by `period` and the process repeats. Temporal order
// is always preserved; folds are never shuffled.
type cvParams struct {
	initial int
	period  int
	horizon int
}

// crossValidate scores the family on the observation history and returns
// aggregate error metrics across all folds.
func crossValidate(storeID, productID, family string, obs []domain.DemandObservation, cv cvParams) (domain.ValidationMetrics, error) {
	initial, horizon := cv.initial, cv.horizon
	period := cv.period
	if period < 1 {
		period = 1
	}

	// Short histories get a single shrunken fold rather than no
	// validation at all.
	if len(obs) < initial+horizon {
		horizon = len(obs) / 5
		if horizon < 1 {
			horizon = 1
		}
		initial = len(obs) - horizon
	}

	var (
		absErr, sqErr   float64
		apeSum, sapeSum float64
		n, apeN, sapeN  int
		folds           int
	)

	for origin := initial; origin+horizon <= len(obs); origin += period {
		params, err := fitFamily(family, storeID, productID, obs[:origin])
		if err != nil {
			return domain.ValidationMetrics{}, err
		}
		folds++

		for h := 1; h <= horizon; h++ {
			actual := obs[origin+h-1]
			pred := params.predict(h, actual.Date.Weekday())

			e := actual.QuantitySold - pred
			absErr += math.Abs(e)
			sqErr += e * e
			n++

			if actual.QuantitySold > 0 {
				apeSum += math.Abs(e) / actual.QuantitySold
				apeN++
			}
			if denom := (math.Abs(actual.QuantitySold) + math.Abs(pred)) / 2; denom > 0 {
				sapeSum += math.Abs(e) / denom
				sapeN++
			}
		}
	}

	if n == 0 {
		return domain.ValidationMetrics{}, &domain.ModelTrainingError{
			StoreID:   storeID,
			ProductID: productID,
			Family:    family,
			Reason:    "history too short for any validation fold",
		}
	}

	metrics := domain.ValidationMetrics{
		MAE:   absErr / float64(n),
		RMSE:  math.Sqrt(sqErr / float64(n)),
		Folds: folds,
	}
	if apeN > 0 {
		metrics.MAPE = 100 * apeSum / float64(apeN)
	}
	if sapeN > 0 {
		metrics.SMAPE = 100 * sapeSum / float64(sapeN)
	}
	return metrics, nil
}
