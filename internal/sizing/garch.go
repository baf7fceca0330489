package sizing

import (
	"errors"
	"fmt"
	"math"
)

// ErrModelFit is wrapped by ModelError whenever the volatility
// estimator cannot produce a usable forecast. The run must abort
// rather than size a trade off an arbitrary fallback.
var ErrModelFit = errors.New("volatility model failed to fit")

// ModelError carries the estimator context for diagnosis.
type ModelError struct {
	Method       Method
	Observations int
	Err          error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("volatility model %s (%d observations): %v", e.Method, e.Observations, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

const garchMinObservations = 30

// garchForecast fits a GARCH(1,1) model to the return series and
// returns the one-step-ahead variance forecast of the fractional
// returns. Returns are scaled by 100 during estimation for numerical
// conditioning.
//
// omega is tied to the sample variance by variance targeting
// (omega = v*(1-alpha-beta)), leaving a two-parameter likelihood that
// a coarse grid plus one refinement pass maximizes reliably.
func garchForecast(returns []float64) (float64, error) {
	if len(returns) < garchMinObservations {
		return 0, fmt.Errorf("%w: need %d observations, have %d", ErrModelFit, garchMinObservations, len(returns))
	}

	scaled := make([]float64, len(returns))
	var m float64
	for _, r := range returns {
		m += r * 100
	}
	m /= float64(len(returns))
	for i, r := range returns {
		scaled[i] = r*100 - m
	}

	variance := sampleVariance(scaled)
	if variance <= 0 {
		return 0, fmt.Errorf("%w: zero sample variance", ErrModelFit)
	}

	bestAlpha, bestBeta := 0.0, 0.0
	bestLL := math.Inf(-1)
	search := func(alphas, betas []float64) {
		for _, a := range alphas {
			for _, b := range betas {
				if a <= 0 || b <= 0 || a+b >= 0.999 {
					continue
				}
				ll := garchLogLikelihood(scaled, variance, a, b)
				if ll > bestLL {
					bestLL = ll
					bestAlpha, bestBeta = a, b
				}
			}
		}
	}

	search(steps(0.02, 0.30, 0.02), steps(0.50, 0.98, 0.02))
	// refine around the coarse optimum
	search(steps(bestAlpha-0.02, bestAlpha+0.02, 0.004), steps(bestBeta-0.02, bestBeta+0.02, 0.004))

	if math.IsInf(bestLL, -1) || math.IsNaN(bestLL) {
		return 0, fmt.Errorf("%w: likelihood did not converge", ErrModelFit)
	}

	omega := variance * (1 - bestAlpha - bestBeta)
	sigma2 := variance
	for _, r := range scaled {
		sigma2 = omega + bestAlpha*r*r + bestBeta*sigma2
	}
	if sigma2 <= 0 || math.IsNaN(sigma2) {
		return 0, fmt.Errorf("%w: non-positive variance forecast", ErrModelFit)
	}

	// back to fractional-return units
	return sigma2 / (100 * 100), nil
}

func garchLogLikelihood(returns []float64, variance, alpha, beta float64) float64 {
	omega := variance * (1 - alpha - beta)
	sigma2 := variance
	ll := 0.0
	for _, r := range returns {
		if sigma2 <= 0 {
			return math.Inf(-1)
		}
		ll -= 0.5 * (math.Log(2*math.Pi) + math.Log(sigma2) + r*r/sigma2)
		sigma2 = omega + alpha*r*r + beta*sigma2
	}
	return ll
}

func steps(from, to, step float64) []float64 {
	var out []float64
	for v := from; v <= to+1e-12; v += step {
		out = append(out, v)
	}
	return out
}

func sampleVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var m float64
	for _, x := range xs {
		m += x
	}
	m /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss / float64(len(xs)-1)
}
