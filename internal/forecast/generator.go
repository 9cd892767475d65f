// internal/forecast/generator.go
package forecast

import (
	"fmt"
	"time"

	"github.com/retailinventory/forecast-engine/internal/config"
	"github.com/retailinventory/forecast-engine/internal/domain"
)

// z-score of the 90th percentile of the standard normal distribution.
const z90 = 1.2815515655446004

// MaxHorizonDays bounds a single forecast request.
const MaxHorizonDays = 365

// Generator turns a trained model into a horizon of quantile forecast
// points covering [asOf+1, asOf+horizon].
type Generator struct {
	staleness time.Duration
}

func NewGenerator(cfg config.EngineConfig) *Generator {
	return &Generator{staleness: cfg.StalenessThreshold()}
}

// Generate produces one ForecastPoint per day, ordered by target date
// with no gaps. P50 is the model's point forecast after demand-shock
// adjustment; P90 widens it by the residual-error distribution, assuming
// normally distributed residuals. P90 >= P50 >= 0 holds at every point:
// zero residual variance collapses P90 onto P50.
//
// A model older than the staleness threshold relative to asOf fails with
// StaleModelError; the caller must retrain rather than extrapolate from
// an arbitrarily old fit.
func (g *Generator) Generate(model *domain.ForecastModel, asOf time.Time, horizonDays int, shocks []domain.DemandShock) ([]domain.ForecastPoint, error) {
	if horizonDays < 1 || horizonDays > MaxHorizonDays {
		return nil, fmt.Errorf("horizon_days %d out of range [1, %d]", horizonDays, MaxHorizonDays)
	}

	if asOf.Sub(model.TrainedAt) > g.staleness {
		return nil, &domain.StaleModelError{
			StoreID:   model.StoreID,
			ProductID: model.ProductID,
			TrainedAt: model.TrainedAt,
			AsOf:      asOf,
			MaxAge:    g.staleness,
		}
	}

	params, err := decodeParameters(model.Parameters)
	if err != nil {
		return nil, err
	}

	asOfDay := asOf.Truncate(24 * time.Hour)
	band := z90 * params.ResidualStd

	points := make([]domain.ForecastPoint, 0, horizonDays)
	for d := 1; d <= horizonDays; d++ {
		date := asOfDay.AddDate(0, 0, d)

		// Steps past the end of the training window.
		steps := int(date.Sub(params.LastDate).Hours() / 24)
		if steps < 1 {
			steps = 1
		}

		trend := params.trendAt(steps)
		base := params.predict(steps, date.Weekday())

		// Shocks adjust the point forecast before quantile widening.
		adjusted := applyShocks(base, date, shocks)

		p50 := adjusted
		if p50 < 0 {
			p50 = 0
		}
		p90 := p50 + band
		if p90 < p50 {
			p90 = p50
		}

		points = append(points, domain.ForecastPoint{
			StoreID:      model.StoreID,
			ProductID:    model.ProductID,
			ModelVersion: model.ModelVersion,
			TargetDate:   date,
			P50:          p50,
			P90:          p90,
			Components: domain.ForecastComponents{
				Trend:        trend,
				Seasonal:     base - trend,
				ResidualBand: band,
			},
		})
	}

	return points, nil
}

func applyShocks(base float64, date time.Time, shocks []domain.DemandShock) float64 {
	v := base
	for _, s := range shocks {
		if !s.Covers(date) {
			continue
		}
		if s.Additive {
			v += s.Factor
		} else {
			v *= s.Factor
		}
	}
	return v
}
