package detection

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

const maxSeriesTerms = 1 << 16

// marcumQ is the generalised Marcum Q function Q_m(a, b) written in terms of
// λ = a²/2 and x = b²/2: the Poisson(λ) mixture Σ_k P(k; λ)·Q_γ(m+k, x).
// The series starts at the Poisson mode and walks out in both directions.
// Once Q_γ saturates at 1 the remaining Poisson mass is added in closed form.
func marcumQ(m, lambda, x float64) float64 {
	if x <= 0 {
		return 1
	}
	if lambda <= 0 {
		return mathext.GammaIncRegComp(m, x)
	}
	mode := math.Floor(lambda)
	logLambda := math.Log(lambda)
	weight := func(k float64) float64 {
		lg, _ := math.Lgamma(k + 1)
		return math.Exp(-lambda + k*logLambda - lg)
	}

	var sum float64
	for i := 0; i < maxSeriesTerms; i++ {
		k := mode + float64(i)
		q := mathext.GammaIncRegComp(m+k, x)
		if q >= 1-1e-15 {
			// P(K ≥ k) for K ~ Poisson(λ).
			if k == 0 {
				sum++
			} else {
				sum += mathext.GammaIncReg(k, lambda)
			}
			break
		}
		w := weight(k)
		sum += w * q
		if i > 0 && (w == 0 || w < 1e-18*sum) {
			break
		}
	}
	for k := mode - 1; k >= 0 && mode-k < maxSeriesTerms; k-- {
		q := mathext.GammaIncRegComp(m+k, x)
		if q >= 1-1e-15 {
			// P(K ≤ k).
			sum += mathext.GammaIncRegComp(k+1, lambda)
			break
		}
		term := weight(k) * q
		sum += term
		if term == 0 || term < 1e-17*sum {
			break
		}
	}
	return sum
}
