package detection

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// Probability bounds applied to Pfa and Pd inputs.
const (
	MinProbability = 1e-300
	MaxProbability = 1 - 1e-15
)

// quadratureNodes is the Gauss-Legendre order of the fallback integral.
const quadratureNodes = 200

func clampProbability(p float64) float64 {
	return math.Min(math.Max(p, MinProbability), MaxProbability)
}

func clampUnit(p float64) float64 {
	return math.Min(math.Max(p, 0), 1)
}

func checkInputs(p, snrDB float64, n int, m Model) error {
	if math.IsNaN(p) || math.IsNaN(snrDB) {
		return simerr.Invalid("probability and SNR must be numbers, got %v and %v", p, snrDB)
	}
	if n < 1 {
		return simerr.Invalid("integration count must be at least 1, got %d", n)
	}
	if !m.valid() {
		return simerr.Invalid("unknown detection model %d", int(m))
	}
	return nil
}

// Threshold returns the normalised square-law threshold T with
// Q_γ(n, T) = pfa.
func Threshold(pfa float64, n int) float64 {
	return mathext.GammaIncRegCompInv(float64(n), clampProbability(pfa))
}

// Pd returns the probability of detection for a per-pulse SNR in dB after n
// pulses of integration under model m.
func Pd(pfa, snrDB float64, n int, m Model) (float64, error) {
	if err := checkInputs(pfa, snrDB, n, m); err != nil {
		return 0, err
	}
	pfa = clampProbability(pfa)
	s := math.Pow(10, snrDB/10)
	if s <= 0 {
		return pfa, nil
	}
	if math.IsInf(s, 1) {
		return 1, nil
	}
	N := float64(n)

	var pd float64
	switch m {
	case Swerling1:
		pd = swerling1(pfa, s, n)
		if !usable(pd) {
			pd = fluctuatingQuadrature(pfa, s, n, 1)
		}
	case Swerling2:
		pd = mathext.GammaIncRegComp(N, Threshold(pfa, n)/(1+s))
	case Swerling3:
		pd = swerling3(pfa, s, n)
		if !usable(pd) {
			pd = fluctuatingQuadrature(pfa, s, n, 2)
		}
	case Swerling4:
		pd = swerling4(pfa, s, n)
	case Swerling5:
		pd = marcumQ(N, N*s, Threshold(pfa, n))
	case Coherent:
		pd = marcumQ(1, N*s, -math.Log(pfa))
	case Real:
		z := -distuv.UnitNormal.Quantile(pfa)
		pd = distuv.UnitNormal.Survival(z - math.Sqrt(2*N*s))
	}
	if math.IsNaN(pd) {
		return 0, simerr.Invalid("%v: Pd is not a number for pfa=%g snr=%g dB n=%d", m, pfa, snrDB, n)
	}
	return clampUnit(pd), nil
}

// PdQuadrature evaluates Swerling 1 or 3 by integrating the steady-target
// Pd over the RCS distribution instead of using the closed form.
func PdQuadrature(pfa, snrDB float64, n int, m Model) (float64, error) {
	if err := checkInputs(pfa, snrDB, n, m); err != nil {
		return 0, err
	}
	var shape float64
	switch m {
	case Swerling1:
		shape = 1
	case Swerling3:
		shape = 2
	default:
		return 0, simerr.Invalid("quadrature is only defined for Swerling 1 and 3, got %v", m)
	}
	pfa = clampProbability(pfa)
	s := math.Pow(10, snrDB/10)
	if s <= 0 {
		return pfa, nil
	}
	return clampUnit(fluctuatingQuadrature(pfa, s, n, shape)), nil
}

func usable(p float64) bool { return !math.IsNaN(p) && p >= 0 && p <= 1 }

// fluctuatingQuadrature integrates the steady target over a scan-to-scan
// gamma distributed SNR with the given shape (chi-square with 2·shape degrees
// of freedom) and mean s, substituting u = F(s') so the integral runs over
// [0, 1].
func fluctuatingQuadrature(pfa, s float64, n int, shape float64) float64 {
	N := float64(n)
	t := Threshold(pfa, n)
	dist := distuv.Gamma{Alpha: shape, Beta: shape / s}
	f := func(u float64) float64 {
		return marcumQ(N, N*dist.Quantile(u), t)
	}
	return quad.Fixed(f, 0, 1, quadratureNodes, nil, 0)
}

func swerling1(pfa, s float64, n int) float64 {
	t := Threshold(pfa, n)
	if n == 1 {
		return math.Exp(-t / (1 + s))
	}
	N := float64(n)
	ns := N * s
	return mathext.GammaIncRegComp(N-1, t) +
		math.Exp((N-1)*math.Log1p(1/ns)-t/(1+ns))*mathext.GammaIncReg(N-1, t/(1+1/ns))
}

func swerling3(pfa, s float64, n int) float64 {
	t := Threshold(pfa, n)
	N := float64(n)
	ns := N * s
	c := 1 + ns/2
	k0 := math.Exp(-t/c+(N-2)*math.Log1p(2/ns)) * (1 + t/c - 2*(N-2)/ns)
	if n <= 2 {
		return k0
	}
	lg, _ := math.Lgamma(N - 1)
	return math.Exp((N-1)*math.Log(t)-t-math.Log(c)-lg) +
		mathext.GammaIncRegComp(N-1, t) +
		k0*mathext.GammaIncReg(N-1, t/(1+2/ns))
}

// swerling4 is the exact pulse-to-pulse chi-square(4) case: the integrated
// statistic is a binomial mixture of gamma variates.
func swerling4(pfa, s float64, n int) float64 {
	t := Threshold(pfa, n)
	N := float64(n)
	c := 1 + s/2
	p := 1 / c
	logP, logQ := math.Log(p), math.Log1p(-p)
	lgN, _ := math.Lgamma(N + 1)
	var sum float64
	for k := 0; k <= n; k++ {
		K := float64(k)
		lgK, _ := math.Lgamma(K + 1)
		lgNK, _ := math.Lgamma(N - K + 1)
		logW := lgN - lgK - lgNK + K*logP
		if k < n {
			logW += (N - K) * logQ
		}
		sum += math.Exp(logW) * mathext.GammaIncRegComp(2*N-K, t/c)
	}
	return sum
}
