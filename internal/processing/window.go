package processing

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// WindowKind names an amplitude window.
type WindowKind int

const (
	Rectangular WindowKind = iota
	Hann
	Hamming
	Blackman
	BlackmanHarris
	Chebyshev
)

var windowNames = map[WindowKind]string{
	Rectangular:    "rectangular",
	Hann:           "hann",
	Hamming:        "hamming",
	Blackman:       "blackman",
	BlackmanHarris: "blackman-harris",
	Chebyshev:      "chebyshev",
}

func (k WindowKind) String() string {
	if s, ok := windowNames[k]; ok {
		return s
	}
	return fmt.Sprintf("WindowKind(%d)", int(k))
}

// ParseWindow maps a window name to its kind. Names are case-insensitive;
// "chebwin" and "boxcar" are accepted aliases.
func ParseWindow(name string) (WindowKind, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	switch s {
	case "", "none", "boxcar":
		return Rectangular, nil
	case "hanning":
		return Hann, nil
	case "chebwin", "dolph-chebyshev":
		return Chebyshev, nil
	case "blackmanharris":
		return BlackmanHarris, nil
	}
	for k, v := range windowNames {
		if v == s {
			return k, nil
		}
	}
	return 0, simerr.Invalid("unknown window %q", name)
}

// DefaultAttenuation is the Chebyshev sidelobe level used when none is given.
const DefaultAttenuation = 60

// Window returns a symmetric window of length n. attenuationDB is the
// sidelobe level of a Chebyshev window (DefaultAttenuation if not positive)
// and is ignored by the other kinds.
func Window(kind WindowKind, n int, attenuationDB float64) ([]float64, error) {
	if n < 1 {
		return nil, simerr.Invalid("window length must be positive, got %d", n)
	}
	if n == 1 {
		return []float64{1}, nil
	}
	ones := func() []float64 {
		w := make([]float64, n)
		for i := range w {
			w[i] = 1
		}
		return w
	}
	switch kind {
	case Rectangular:
		return window.Rectangular(ones()), nil
	case Hann:
		return window.Hann(ones()), nil
	case Hamming:
		return window.Hamming(ones()), nil
	case Blackman:
		return window.Blackman(ones()), nil
	case BlackmanHarris:
		return window.BlackmanHarris(ones()), nil
	case Chebyshev:
		if attenuationDB <= 0 {
			attenuationDB = DefaultAttenuation
		}
		return chebwin(n, attenuationDB), nil
	default:
		return nil, simerr.Invalid("unknown window kind %v", kind)
	}
}

// chebwin is the Dolph-Chebyshev window with sidelobes at -at dB, built from
// the inverse DFT of the Chebyshev polynomial sampled on the unit circle and
// normalised to a unit peak.
func chebwin(m int, at float64) []float64 {
	order := float64(m - 1)
	beta := math.Cosh(math.Acosh(math.Pow(10, at/20)) / order)

	p := make([]complex128, m)
	for k := range p {
		x := beta * math.Cos(math.Pi*float64(k)/float64(m))
		var v float64
		switch {
		case x > 1:
			v = math.Cosh(order * math.Acosh(x))
		case x < -1:
			v = float64(2*(m%2)-1) * math.Cosh(order*math.Acosh(-x))
		default:
			v = math.Cos(order * math.Acos(x))
		}
		p[k] = complex(v, 0)
		if m%2 == 0 {
			p[k] *= cmplx.Exp(complex(0, math.Pi*float64(k)/float64(m)))
		}
	}
	spec := fourier.NewCmplxFFT(m).Coefficients(nil, p)

	// Odd lengths mirror bins [1, n) around bin 0; even lengths mirror
	// bins [1, n) against themselves.
	n := m/2 + 1
	w := make([]float64, 0, m)
	for i := n - 1; i > 0; i-- {
		w = append(w, real(spec[i]))
	}
	first := 1
	if m%2 == 1 {
		first = 0
	}
	for i := first; i < n; i++ {
		w = append(w, real(spec[i]))
	}

	peak := 0.0
	for _, v := range w {
		peak = math.Max(peak, math.Abs(v))
	}
	for i := range w {
		w[i] /= peak
	}
	return w
}
