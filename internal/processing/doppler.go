package processing

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/simerr"
)

// RangeDopplerMap is [channel][Doppler bin][range bin].
type RangeDopplerMap struct {
	cube
	ranges     []float64
	velocities []float64
	shifted    bool
}

// Ranges returns the range axis in metres.
func (m *RangeDopplerMap) Ranges() []float64 { return append([]float64(nil), m.ranges...) }

// Velocities returns the radial velocity of every Doppler bin in m/s.
// Positive values recede from the radar.
func (m *RangeDopplerMap) Velocities() []float64 { return append([]float64(nil), m.velocities...) }

// Shifted reports whether zero Doppler sits in the middle of the axis.
func (m *RangeDopplerMap) Shifted() bool { return m.shifted }

// Peak returns the range and velocity of the strongest cell of one channel.
func (m *RangeDopplerMap) Peak(ch int) (rangeM, velocity float64) {
	d, rb := Peak2D(m.Magnitude(ch))
	return m.ranges[rb], m.velocities[d]
}

// IntegratedPeak returns the range and velocity of the strongest cell of
// the magnitude summed over all channels.
func (m *RangeDopplerMap) IntegratedPeak() (rangeM, velocity float64) {
	d, rb := Peak2D(m.IncoherentSum())
	return m.ranges[rb], m.velocities[d]
}

// DopplerVelocities returns the velocity axis of an n-pulse Doppler FFT:
// v = (b − n/2)·λ/(2·n·CRP) when shifted. Unshifted bins above n/2 wrap to
// negative velocities.
func DopplerVelocities(n int, wavelength, crp float64, shift bool) []float64 {
	res := wavelength / (2 * float64(n) * crp)
	v := make([]float64, n)
	for b := range v {
		switch {
		case shift:
			v[b] = float64(b-n/2) * res
		case b < (n+1)/2:
			v[b] = float64(b) * res
		default:
			v[b] = float64(b-n) * res
		}
	}
	return v
}

// RangeDoppler applies win across the pulse axis of rp and transforms every
// range bin to the Doppler domain. shift centres zero Doppler.
func RangeDoppler(rp *RangeProfile, r *radar.Radar, win []float64, shift bool) (*RangeDopplerMap, error) {
	if rp == nil || r == nil {
		return nil, simerr.Invalid("range profile and radar are required")
	}
	channels, pulses, bins := rp.Dims()
	if pulses != r.Pulses() {
		return nil, simerr.Invalid("range profile has %d pulses, radar has %d", pulses, r.Pulses())
	}
	if len(win) != pulses {
		return nil, simerr.Invalid("Doppler window has %d taps, radar has %d pulses", len(win), pulses)
	}

	out := &RangeDopplerMap{
		cube:       newCube(channels, pulses, bins),
		ranges:     rp.Ranges(),
		velocities: DopplerVelocities(pulses, r.Wavelength(), r.RepetitionPeriod(), shift),
		shifted:    shift,
	}
	err := parallel(channels, func(ch int) error {
		fft := fourier.NewCmplxFFT(pulses)
		buf := make([]complex128, pulses)
		spec := make([]complex128, pulses)
		for b := 0; b < bins; b++ {
			for p := range buf {
				buf[p] = rp.data[ch][p][b] * complex(win[p], 0)
			}
			spec = fft.Coefficients(spec, buf)
			if shift {
				spec = fftShift(spec)
			}
			for d, v := range spec {
				out.data[ch][d][b] = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
