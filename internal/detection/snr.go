package detection

import (
	"math"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// Solver finds the per-pulse SNR needed to reach a Pd by bisection in dB.
type Solver struct {
	MinSNR        float64 // dB
	MaxSNR        float64 // dB
	Tolerance     float64 // dB
	MaxIterations int
}

// DefaultSolver searches [−50, 80] dB to 1e-6 dB.
var DefaultSolver = Solver{MinSNR: -50, MaxSNR: 80, Tolerance: 1e-6, MaxIterations: 200}

// RequiredSNR solves Pd(pfa, snr, n, m) = pd with DefaultSolver.
func RequiredSNR(pd, pfa float64, n int, m Model) (float64, error) {
	return DefaultSolver.RequiredSNR(pd, pfa, n, m)
}

// RequiredSNR returns the smallest SNR in dB, to within s.Tolerance, whose Pd
// reaches pd. It returns simerr.ErrNoSolution when the target is not
// bracketed by [MinSNR, MaxSNR] or the iteration budget runs out.
func (s Solver) RequiredSNR(pd, pfa float64, n int, m Model) (float64, error) {
	if math.IsNaN(pd) {
		return 0, simerr.Invalid("pd must be a number")
	}
	if !(s.MinSNR < s.MaxSNR) || s.Tolerance <= 0 || s.MaxIterations < 1 {
		return 0, simerr.Invalid("solver needs MinSNR < MaxSNR, positive tolerance and iterations, got %+v", s)
	}
	pd = clampProbability(pd)

	lo, hi := s.MinSNR, s.MaxSNR
	pLo, err := Pd(pfa, lo, n, m)
	if err != nil {
		return 0, err
	}
	if pLo >= pd {
		return 0, simerr.NoSolution("%v: Pd %.6g already reached at %g dB (pfa=%g n=%d)", m, pd, lo, pfa, n)
	}
	pHi, err := Pd(pfa, hi, n, m)
	if err != nil {
		return 0, err
	}
	if pHi < pd {
		return 0, simerr.NoSolution("%v: Pd %.6g not reached by %g dB (pfa=%g n=%d)", m, pd, hi, pfa, n)
	}

	for range s.MaxIterations {
		if hi-lo <= s.Tolerance {
			return (lo + hi) / 2, nil
		}
		mid := (lo + hi) / 2
		p, err := Pd(pfa, mid, n, m)
		if err != nil {
			return 0, err
		}
		if p >= pd {
			hi = mid
		} else {
			lo = mid
		}
	}
	if hi-lo <= s.Tolerance {
		return (lo + hi) / 2, nil
	}
	return 0, simerr.NoSolution("%v: bisection did not converge in %d iterations (pd=%g pfa=%g n=%d)",
		m, s.MaxIterations, pd, pfa, n)
}
