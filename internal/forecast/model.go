// internal/forecast/model.go
package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/retailinventory/forecast-engine/internal/domain"
)

// Supported model families. The family is a configuration choice; both
// are deterministic, so retraining on identical history reproduces the
// same parameters and validation metrics exactly.
const (
	FamilyDecomposition = "decomposition" // linear trend + day-of-week multiplicative seasonality
	FamilySES           = "ses"           // Holt double exponential smoothing
)

// fittedParameters is the serialized state of a trained model. It is
// stored as an opaque JSON blob on the ForecastModel record and in the
// artifact store.
type fittedParameters struct {
	Family string `json:"family"`

	// Decomposition: y(t) = (Intercept + Slope*t) * Seasonal[weekday].
	Intercept float64 `json:"intercept,omitempty"`
	Slope     float64 `json:"slope,omitempty"`

	// SES/Holt: y(t+h) = Level + h*Trend, with smoothing weights
	// Alpha (level) and Beta (trend) found by grid search.
	Alpha float64 `json:"alpha,omitempty"`
	Beta  float64 `json:"beta,omitempty"`
	Level float64 `json:"level,omitempty"`
	Trend float64 `json:"trend,omitempty"`

	Seasonal    [7]float64 `json:"seasonal"`
	ResidualStd float64    `json:"residual_std"`
	LastDate    time.Time  `json:"last_date"`
	N           int        `json:"n"`
}

func (p *fittedParameters) encode() ([]byte, error) {
	return json.Marshal(p)
}

func decodeParameters(blob []byte) (*fittedParameters, error) {
	var p fittedParameters
	if err := json.Unmarshal(blob, &p); err != nil {
		return nil, fmt.Errorf("decode fitted parameters: %w", err)
	}
	return &p, nil
}

// trendAt returns the deseasonalized point forecast h steps past the end
// of training.
func (p *fittedParameters) trendAt(h int) float64 {
	switch p.Family {
	case FamilySES:
		return p.Level + float64(h)*p.Trend
	default:
		return p.Intercept + p.Slope*float64(p.N-1+h)
	}
}

// predict returns the non-negative point forecast h steps ahead for a
// target date falling on the given weekday.
func (p *fittedParameters) predict(h int, weekday time.Weekday) float64 {
	v := p.trendAt(h) * p.Seasonal[int(weekday)]
	if v < 0 {
		return 0
	}
	return v
}

// fitFamily dispatches to the configured model family.
func fitFamily(family, storeID, productID string, obs []domain.DemandObservation) (*fittedParameters, error) {
	switch family {
	case FamilyDecomposition:
		return fitDecomposition(storeID, productID, obs)
	case FamilySES:
		return fitSES(storeID, productID, obs)
	default:
		return nil, &domain.ModelTrainingError{
			StoreID:   storeID,
			ProductID: productID,
			Family:    family,
			Reason:    "unknown model family",
		}
	}
}

// fitDecomposition fits a linear trend on deseasonalized demand with
// day-of-week multiplicative seasonality, then records the residual
// standard deviation for quantile widening.
func fitDecomposition(storeID, productID string, obs []domain.DemandObservation) (*fittedParameters, error) {
	if len(obs) < 2 {
		return nil, &domain.ModelTrainingError{
			StoreID:   storeID,
			ProductID: productID,
			Family:    FamilyDecomposition,
			Reason:    "need at least 2 observations to fit a trend",
		}
	}

	seasonal := seasonalIndex(obs)

	deseasoned := make([]float64, len(obs))
	for i, o := range obs {
		s := seasonal[int(o.Date.Weekday())]
		if s > 0 {
			deseasoned[i] = o.QuantitySold / s
		} else {
			deseasoned[i] = o.QuantitySold
		}
	}

	slope := trendSlope(deseasoned)
	var sum float64
	for _, v := range deseasoned {
		sum += v
	}
	mean := sum / float64(len(deseasoned))
	intercept := mean - slope*float64(len(deseasoned)-1)/2

	if !isFinite(slope) || !isFinite(intercept) {
		return nil, &domain.ModelTrainingError{
			StoreID:   storeID,
			ProductID: productID,
			Family:    FamilyDecomposition,
			Reason:    "trend regression produced non-finite coefficients",
		}
	}

	p := &fittedParameters{
		Family:    FamilyDecomposition,
		Intercept: intercept,
		Slope:     slope,
		Seasonal:  seasonal,
		LastDate:  obs[len(obs)-1].Date,
		N:         len(obs),
	}

	var ss float64
	for i, o := range obs {
		fitted := (intercept + slope*float64(i)) * seasonal[int(o.Date.Weekday())]
		e := o.QuantitySold - fitted
		ss += e * e
	}
	p.ResidualStd = math.Sqrt(ss / float64(len(obs)-1))

	return p, nil
}

// fitSES fits Holt double exponential smoothing with a deterministic
// grid search over the smoothing weights, minimizing one-step-ahead
// squared error. Fails with ModelTrainingError when no candidate
// produces a finite error (the search did not converge).
func fitSES(storeID, productID string, obs []domain.DemandObservation) (*fittedParameters, error) {
	if len(obs) < 3 {
		return nil, &domain.ModelTrainingError{
			StoreID:   storeID,
			ProductID: productID,
			Family:    FamilySES,
			Reason:    "need at least 3 observations to fit smoothing",
		}
	}

	y := quantities(obs)

	bestSSE := math.Inf(1)
	var bestAlpha, bestBeta float64
	for alpha := 0.05; alpha < 1.0; alpha += 0.05 {
		for beta := 0.05; beta < 1.0; beta += 0.05 {
			sse := holtSSE(y, alpha, beta)
			if isFinite(sse) && sse < bestSSE {
				bestSSE = sse
				bestAlpha = alpha
				bestBeta = beta
			}
		}
	}

	if !isFinite(bestSSE) {
		return nil, &domain.ModelTrainingError{
			StoreID:   storeID,
			ProductID: productID,
			Family:    FamilySES,
			Reason:    "smoothing weight search did not converge",
		}
	}

	level, trend := holtState(y, bestAlpha, bestBeta)

	p := &fittedParameters{
		Family:      FamilySES,
		Alpha:       bestAlpha,
		Beta:        bestBeta,
		Level:       level,
		Trend:       trend,
		Seasonal:    [7]float64{1, 1, 1, 1, 1, 1, 1},
		ResidualStd: math.Sqrt(bestSSE / float64(len(y)-1)),
		LastDate:    obs[len(obs)-1].Date,
		N:           len(obs),
	}
	return p, nil
}

// holtSSE returns the sum of squared one-step-ahead errors for the given
// smoothing weights.
func holtSSE(y []float64, alpha, beta float64) float64 {
	level := y[0]
	trend := y[1] - y[0]
	var sse float64
	for i := 1; i < len(y); i++ {
		pred := level + trend
		e := y[i] - pred
		sse += e * e
		prevLevel := level
		level = alpha*y[i] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return sse
}

// holtState runs the smoothing recursion over the full series and
// returns the final level and trend.
func holtState(y []float64, alpha, beta float64) (float64, float64) {
	level := y[0]
	trend := y[1] - y[0]
	for i := 1; i < len(y); i++ {
		prevLevel := level
		level = alpha*y[i] + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
	}
	return level, trend
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
