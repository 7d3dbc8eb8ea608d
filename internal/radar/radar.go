package radar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/units"
)

// chipTolerance is the relative slack allowed when checking that a pulse is
// an integer number of chips.
const chipTolerance = 1e-9

// Radar is a validated transmitter/receiver pair.
type Radar struct {
	tx Transmitter
	rx Receiver

	txAnt []*Antenna
	rxAnt []*Antenna

	waveform Waveform
	samples  int
	crp      float64
	slope    float64 // Hz/s, signed
	fStart   float64 // Hz, frequency at pulse-local time zero
}

// NewRadar validates tx and rx and compiles their antenna patterns. Every
// failure wraps simerr.ErrInvalidConfig.
func NewRadar(tx Transmitter, rx Receiver) (*Radar, error) {
	if err := validateTransmitter(tx); err != nil {
		return nil, err
	}
	if err := validateReceiver(rx); err != nil {
		return nil, err
	}

	r := &Radar{
		tx:       tx,
		rx:       rx,
		waveform: tx.waveform(),
		samples:  int(math.Round(rx.SampleRate * tx.PulseLength)),
		crp:      tx.RepetitionPeriod,
	}
	if r.samples < 1 {
		return nil, simerr.Invalid("pulse of %v s at %v samples/s yields no samples", tx.PulseLength, rx.SampleRate)
	}
	if r.crp <= 0 {
		r.crp = tx.PulseLength
	}

	r.tx.Channels = make([]Channel, len(tx.Channels))
	r.txAnt = make([]*Antenna, len(tx.Channels))
	for i, c := range tx.Channels {
		if err := validateCode(r.waveform, tx.PulseLength, c); err != nil {
			return nil, wrapChannel("transmit", i, err)
		}
		c = c.clone()
		a, err := compileAntenna(c)
		if err != nil {
			return nil, wrapChannel("transmit", i, err)
		}
		r.tx.Channels[i] = c
		r.txAnt[i] = a
	}
	r.rx.Channels = make([]Channel, len(rx.Channels))
	r.rxAnt = make([]*Antenna, len(rx.Channels))
	for i, c := range rx.Channels {
		if len(c.PhaseCode) > 0 || c.ChipLength != 0 {
			return nil, simerr.Invalid("receive channel %d: phase codes are only valid on transmit channels", i)
		}
		c = c.clone()
		a, err := compileAntenna(c)
		if err != nil {
			return nil, wrapChannel("receive", i, err)
		}
		r.rx.Channels[i] = c
		r.rxAnt[i] = a
	}

	if r.waveform == WaveformChirp {
		k := tx.Bandwidth / tx.PulseLength
		switch tx.Slope {
		case SlopeRising:
			r.slope, r.fStart = k, tx.Frequency-tx.Bandwidth/2
		case SlopeFalling:
			r.slope, r.fStart = -k, tx.Frequency+tx.Bandwidth/2
		}
	} else {
		r.fStart = tx.Frequency
	}
	return r, nil
}

func wrapChannel(side string, i int, err error) error {
	return fmt.Errorf("%s channel %d: %w", side, i, err)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func validateTransmitter(tx Transmitter) error {
	switch {
	case !finite(tx.Frequency) || tx.Frequency <= 0:
		return simerr.Invalid("carrier frequency must be positive, got %v", tx.Frequency)
	case !finite(tx.PulseLength) || tx.PulseLength <= 0:
		return simerr.Invalid("pulse length must be positive, got %v", tx.PulseLength)
	case !finite(tx.Bandwidth) || tx.Bandwidth < 0:
		return simerr.Invalid("bandwidth must be positive (or zero for CW/phase-coded), got %v", tx.Bandwidth)
	case tx.Bandwidth/2 >= tx.Frequency:
		return simerr.Invalid("bandwidth %v Hz reaches below zero frequency around %v Hz", tx.Bandwidth, tx.Frequency)
	case !finite(tx.PowerDBm):
		return simerr.Invalid("transmit power must be finite, got %v", tx.PowerDBm)
	case tx.Slope != SlopeRising && tx.Slope != SlopeFalling:
		return simerr.Invalid("unknown chirp slope %v", tx.Slope)
	case !finite(tx.RepetitionPeriod):
		return simerr.Invalid("repetition period must be finite, got %v", tx.RepetitionPeriod)
	case tx.RepetitionPeriod > 0 && tx.RepetitionPeriod < tx.PulseLength:
		return simerr.Invalid("repetition period %v s is shorter than pulse length %v s", tx.RepetitionPeriod, tx.PulseLength)
	case tx.Pulses < 1:
		return simerr.Invalid("pulse count must be at least 1, got %d", tx.Pulses)
	case len(tx.Channels) == 0:
		return simerr.Invalid("transmitter has no channels")
	}
	coded := 0
	for _, c := range tx.Channels {
		if len(c.PhaseCode) > 0 {
			coded++
		}
	}
	if coded > 0 && coded != len(tx.Channels) {
		return simerr.Invalid("%d of %d transmit channels carry a phase code; all or none must", coded, len(tx.Channels))
	}
	if coded > 0 && tx.Bandwidth > 0 {
		return simerr.Invalid("phase-coded transmitter must not also sweep %v Hz", tx.Bandwidth)
	}
	return nil
}

func validateReceiver(rx Receiver) error {
	switch {
	case !finite(rx.SampleRate) || rx.SampleRate <= 0:
		return simerr.Invalid("sample rate must be positive, got %v", rx.SampleRate)
	case !finite(rx.LoadResistance) || rx.LoadResistance <= 0:
		return simerr.Invalid("load resistance must be positive, got %v", rx.LoadResistance)
	case !finite(rx.NoiseFigure) || !finite(rx.RFGain) || !finite(rx.BasebandGain):
		return simerr.Invalid("receiver gains and noise figure must be finite")
	case rx.Baseband != BasebandComplex && rx.Baseband != BasebandReal:
		return simerr.Invalid("unknown baseband type %v", rx.Baseband)
	case len(rx.Channels) == 0:
		return simerr.Invalid("receiver has no channels")
	}
	return nil
}

// validateCode checks that a phase code partitions the pulse into whole chips
// and fits inside it.
func validateCode(w Waveform, pulse float64, c Channel) error {
	if w != WaveformPhaseCoded {
		if c.ChipLength != 0 {
			return simerr.Invalid("chip length %v s set without a phase code", c.ChipLength)
		}
		return nil
	}
	if !finite(c.ChipLength) || c.ChipLength <= 0 {
		return simerr.Invalid("phase code needs a positive chip length, got %v", c.ChipLength)
	}
	chips := pulse / c.ChipLength
	whole := math.Round(chips)
	if whole < 1 || math.Abs(chips-whole) > chipTolerance*whole {
		return simerr.Invalid("pulse length %v s is not a whole number of %v s chips", pulse, c.ChipLength)
	}
	if float64(len(c.PhaseCode)) > whole {
		return simerr.Invalid("phase code of %d chips exceeds the %d chips in a pulse", len(c.PhaseCode), int(whole))
	}
	for i, p := range c.PhaseCode {
		if !finite(p) {
			return simerr.Invalid("phase code chip %d is not finite", i)
		}
	}
	return nil
}

// Transmitter returns a copy of the validated transmitter configuration.
func (r *Radar) Transmitter() Transmitter {
	t := r.tx
	t.Channels = make([]Channel, len(r.tx.Channels))
	for i, c := range r.tx.Channels {
		t.Channels[i] = c.clone()
	}
	return t
}

// Receiver returns a copy of the validated receiver configuration.
func (r *Radar) Receiver() Receiver {
	out := r.rx
	out.Channels = make([]Channel, len(r.rx.Channels))
	for i, c := range r.rx.Channels {
		out.Channels[i] = c.clone()
	}
	return out
}

func (r *Radar) TxAntenna(i int) *Antenna { return r.txAnt[i] }
func (r *Radar) RxAntenna(i int) *Antenna { return r.rxAnt[i] }
func (r *Radar) TxCount() int             { return len(r.txAnt) }
func (r *Radar) RxCount() int             { return len(r.rxAnt) }
func (r *Radar) Waveform() Waveform       { return r.waveform }
func (r *Radar) Pulses() int              { return r.tx.Pulses }
func (r *Radar) SampleRate() float64      { return r.rx.SampleRate }
func (r *Radar) PulseLength() float64     { return r.tx.PulseLength }
func (r *Radar) Bandwidth() float64       { return r.tx.Bandwidth }
func (r *Radar) Frequency() float64       { return r.tx.Frequency }
func (r *Radar) Slope() Slope             { return r.tx.Slope }
func (r *Radar) Baseband() BasebandType   { return r.rx.Baseband }

// SamplesPerPulse is round(fs·T).
func (r *Radar) SamplesPerPulse() int { return r.samples }

// ChannelCount is the number of (tx, rx) pairs.
func (r *Radar) ChannelCount() int { return len(r.txAnt) * len(r.rxAnt) }

// RepetitionPeriod is the effective CRP in seconds.
func (r *Radar) RepetitionPeriod() float64 { return r.crp }

// Wavelength is c/fc.
func (r *Radar) Wavelength() float64 { return units.Wavelength(r.tx.Frequency) }

// ChannelIndex returns the baseband channel index of a (tx, rx) pair. Channels
// are ordered tx-major.
func (r *Radar) ChannelIndex(tx, rx int) int { return tx*len(r.rxAnt) + rx }

// ChannelPair is the inverse of ChannelIndex.
func (r *Radar) ChannelPair(ch int) (tx, rx int) {
	return ch / len(r.rxAnt), ch % len(r.rxAnt)
}

// CodeSamples is the longest phase code expressed in receiver samples, or
// zero for uncoded waveforms.
func (r *Radar) CodeSamples() int {
	n := 0
	for _, a := range r.txAnt {
		if s := int(math.Round(a.CodeDuration() * r.rx.SampleRate)); s > n {
			n = s
		}
	}
	return n
}

// MaxRange is the largest range representable in one pulse: c·fs·T/(2B) for
// a complex chirp receiver, half that for a real one, and
// (N − Ncode + 1)·c/(2fs) correlation lags for phase codes. CW has no range
// axis and reports +Inf.
func (r *Radar) MaxRange() float64 {
	c := units.SpeedOfLight
	switch r.waveform {
	case WaveformChirp:
		mr := c * r.rx.SampleRate * r.tx.PulseLength / (2 * r.tx.Bandwidth)
		if r.rx.Baseband == BasebandReal {
			mr /= 2
		}
		return mr
	case WaveformPhaseCoded:
		lags := r.samples - r.CodeSamples() + 1
		if lags < 1 {
			lags = 1
		}
		return float64(lags) * c / (2 * r.rx.SampleRate)
	default:
		return math.Inf(1)
	}
}

// RangeResolution is c/(2B) for chirps and c·chip/2 for phase codes. CW
// reports +Inf.
func (r *Radar) RangeResolution() float64 {
	c := units.SpeedOfLight
	switch r.waveform {
	case WaveformChirp:
		return c / (2 * r.tx.Bandwidth)
	case WaveformPhaseCoded:
		return c * r.txAnt[0].ChipLength() / 2
	default:
		return math.Inf(1)
	}
}

// UnambiguousSpeed is λ/(4·CRP).
func (r *Radar) UnambiguousSpeed() float64 {
	return r.Wavelength() / (4 * r.crp)
}

// DopplerResolution is the velocity width of one Doppler bin.
func (r *Radar) DopplerResolution() float64 {
	return r.Wavelength() / (2 * float64(r.tx.Pulses) * r.crp)
}

// VirtualArray returns tx.Location + rx.Location for every channel pair in
// channel-index order.
func (r *Radar) VirtualArray() []r3.Vec {
	out := make([]r3.Vec, 0, r.ChannelCount())
	for _, t := range r.txAnt {
		for _, rx := range r.rxAnt {
			out = append(out, r3.Add(t.Location(), rx.Location()))
		}
	}
	return out
}

// PulseStart returns the absolute start time of pulse p on transmit channel
// tx, including the channel's TDM delay.
func (r *Radar) PulseStart(tx, p int) float64 {
	return float64(p)*r.crp + r.txAnt[tx].Delay()
}

// SampleTime returns the absolute time of sample n of pulse p on transmit
// channel tx.
func (r *Radar) SampleTime(tx, p, n int) float64 {
	return r.PulseStart(tx, p) + float64(n)/r.rx.SampleRate
}

// ChirpRate returns the signed frequency slope in Hz/s.
func (r *Radar) ChirpRate() float64 { return r.slope }

// StartFrequency returns the instantaneous frequency at pulse-local time zero.
func (r *Radar) StartFrequency() float64 { return r.fStart }

// TxFrequency returns the instantaneous transmitted frequency at pulse-local
// time u.
func (r *Radar) TxFrequency(u float64) float64 {
	return r.fStart + r.slope*u
}

// TxPhase returns the transmitted phase of channel tx at pulse-local time u.
// ok is false while a coded channel is keyed off.
func (r *Radar) TxPhase(tx int, u float64) (phase float64, ok bool) {
	code, ok := r.txAnt[tx].CodePhase(u)
	if !ok {
		return 0, false
	}
	return 2*math.Pi*(r.fStart*u+0.5*r.slope*u*u) + code, true
}

// BeatPhase returns the dechirped phase φ_LO(u) − φ_tx(u − τ) of an echo with
// round-trip delay tau, observed at pulse-local time u on transmit channel
// tx. ok is false when the coded transmitter was off at u − τ.
func (r *Radar) BeatPhase(tx int, u, tau float64) (phase float64, ok bool) {
	code, ok := r.txAnt[tx].CodePhase(u - tau)
	if !ok {
		return 0, false
	}
	k := r.slope
	return 2*math.Pi*(r.fStart*tau+k*tau*u-0.5*k*tau*tau) - code, true
}

// NoiseBandwidth is fs for complex sampling and fs/2 for real sampling.
func (r *Radar) NoiseBandwidth() float64 {
	if r.rx.Baseband == BasebandReal {
		return r.rx.SampleRate / 2
	}
	return r.rx.SampleRate
}

// Summary is the JSON view of the derived scalars.
type Summary struct {
	Waveform         string       `json:"waveform"`
	Frequency        float64      `json:"frequency_hz"`
	Wavelength       float64      `json:"wavelength_m"`
	SamplesPerPulse  int          `json:"samples_per_pulse"`
	Pulses           int          `json:"pulses"`
	ChannelCount     int          `json:"channel_count"`
	MaxRange         *float64     `json:"max_range_m,omitempty"`
	RangeResolution  *float64     `json:"range_resolution_m,omitempty"`
	UnambiguousSpeed float64      `json:"unambiguous_speed_mps"`
	VirtualArray     [][3]float64 `json:"virtual_array"`
}

// Summary returns the derived scalars. Infinite ranges are omitted.
func (r *Radar) Summary() Summary {
	s := Summary{
		Waveform:         r.waveform.String(),
		Frequency:        r.tx.Frequency,
		Wavelength:       r.Wavelength(),
		SamplesPerPulse:  r.samples,
		Pulses:           r.tx.Pulses,
		ChannelCount:     r.ChannelCount(),
		UnambiguousSpeed: r.UnambiguousSpeed(),
	}
	if v := r.MaxRange(); !math.IsInf(v, 0) {
		s.MaxRange = &v
	}
	if v := r.RangeResolution(); !math.IsInf(v, 0) {
		s.RangeResolution = &v
	}
	for _, p := range r.VirtualArray() {
		s.VirtualArray = append(s.VirtualArray, [3]float64{p.X, p.Y, p.Z})
	}
	return s
}
