package processing

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/simulator"
	"github.com/banshee-data/radarsim/internal/units"
)

// RangeProfile is [channel][pulse][range bin].
type RangeProfile struct {
	cube
	ranges []float64
}

// Ranges returns the range in metres of every bin.
func (p *RangeProfile) Ranges() []float64 { return append([]float64(nil), p.ranges...) }

// Profile returns a copy of the range bins of one pulse.
func (p *RangeProfile) Profile(ch, pulse int) []complex128 { return p.Row(ch, pulse) }

// PeakRange returns the range of the strongest bin of one pulse.
func (p *RangeProfile) PeakRange(ch, pulse int) float64 {
	mag := p.Magnitude(ch)[pulse]
	return p.ranges[PeakBin(mag)]
}

// IntegratedPeakRange returns the range of the strongest bin after summing
// power over every pulse of one channel.
func (p *RangeProfile) IntegratedPeakRange(ch int) float64 {
	return p.ranges[PeakBin(p.IntegratedPower(ch))]
}

func checkBaseband(bb *simulator.Baseband, r *radar.Radar) error {
	if bb == nil || r == nil {
		return simerr.Invalid("baseband and radar are required")
	}
	ch, pulses, samples := bb.Dims()
	if ch != r.ChannelCount() || pulses != r.Pulses() || samples != r.SamplesPerPulse() {
		return simerr.Invalid("baseband is %dx%dx%d but radar expects %dx%dx%d",
			ch, pulses, samples, r.ChannelCount(), r.Pulses(), r.SamplesPerPulse())
	}
	return nil
}

// ChirpRangeProfile applies win across fast time and transforms every pulse of a
// chirp baseband to the frequency domain. Bin k maps to range
// k·c·fs·T/(2·B·N). Falling chirps have their bins reversed so range still
// grows with k. Real basebands keep only the N/2 positive-frequency bins.
func ChirpRangeProfile(bb *simulator.Baseband, r *radar.Radar, win []float64) (*RangeProfile, error) {
	if err := checkBaseband(bb, r); err != nil {
		return nil, err
	}
	if r.Waveform() != radar.WaveformChirp {
		return nil, simerr.Invalid("range FFT needs a chirp waveform, radar is %v", r.Waveform())
	}
	channels, pulses, n := bb.Dims()
	if len(win) != n {
		return nil, simerr.Invalid("range window has %d taps, pulse has %d samples", len(win), n)
	}

	bins := n
	if bb.Real() {
		bins = max(n/2, 1)
	}
	spacing := units.SpeedOfLight * r.SampleRate() * r.PulseLength() / (2 * r.Bandwidth() * float64(n))
	out := &RangeProfile{cube: newCube(channels, pulses, bins), ranges: make([]float64, bins)}
	for k := range out.ranges {
		out.ranges[k] = float64(k) * spacing
	}
	falling := r.Slope() == radar.SlopeFalling

	err := parallel(channels, func(ch int) error {
		fft := fourier.NewCmplxFFT(n)
		buf := make([]complex128, n)
		spec := make([]complex128, n)
		for p := 0; p < pulses; p++ {
			for i := range buf {
				buf[i] = bb.Sample(ch, p, i) * complex(win[i], 0)
			}
			spec = fft.Coefficients(spec, buf)
			row := out.data[ch][p]
			for k := range row {
				if falling {
					row[k] = spec[(n-k)%n]
				} else {
					row[k] = spec[k]
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CodeRangeProfile matched-filters every pulse against the phase code of
// transmit channel tx: corr[ℓ] = Σ_n ref[n]·x[ℓ+n], with ref the code sampled
// at fs. The correlation runs through zero-padded FFTs. Lag ℓ maps to range
// ℓ·c/(2·fs); there are N − Ncode + 1 lags.
func CodeRangeProfile(bb *simulator.Baseband, r *radar.Radar, tx int) (*RangeProfile, error) {
	if err := checkBaseband(bb, r); err != nil {
		return nil, err
	}
	if r.Waveform() != radar.WaveformPhaseCoded {
		return nil, simerr.Invalid("code correlation needs a phase-coded waveform, radar is %v", r.Waveform())
	}
	if tx < 0 || tx >= r.TxCount() {
		return nil, simerr.Invalid("transmit channel %d out of range [0, %d)", tx, r.TxCount())
	}
	channels, pulses, n := bb.Dims()
	fs := r.SampleRate()
	ant := r.TxAntenna(tx)
	ncode := min(int(math.Round(ant.CodeDuration()*fs)), n)
	lags := n - ncode + 1

	m := n + ncode
	ref := make([]complex128, m)
	for i := 0; i < ncode; i++ {
		if phase, ok := ant.CodePhase(float64(i) / fs); ok {
			ref[i] = cmplx.Exp(complex(0, phase))
		}
	}
	refSpec := fourier.NewCmplxFFT(m).Coefficients(nil, ref)

	out := &RangeProfile{cube: newCube(channels, pulses, lags), ranges: make([]float64, lags)}
	for l := range out.ranges {
		out.ranges[l] = float64(l) * units.SpeedOfLight / (2 * fs)
	}

	err := parallel(channels, func(ch int) error {
		fft := fourier.NewCmplxFFT(m)
		buf := make([]complex128, m)
		spec := make([]complex128, m)
		corr := make([]complex128, m)
		for p := 0; p < pulses; p++ {
			for i := range buf {
				buf[i] = 0
				if i < n {
					buf[i] = bb.Sample(ch, p, i)
				}
			}
			spec = fft.Coefficients(spec, buf)
			for k := range spec {
				spec[k] *= refSpec[(m-k)%m]
			}
			corr = ifft(fft, corr, spec)
			copy(out.data[ch][p], corr[:lags])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
