package simulator

import "time"

// Baseband is the output of one simulation run: complex samples indexed
// [channel][pulse][sample] and a same-shaped matrix of absolute sample times.
// It is never modified after Run returns; every accessor copies.
type Baseband struct {
	channels, pulses, samples int

	data  []complex128
	times []float64

	real          bool
	seed          uint64
	outOfCoverage []int
	elapsed       time.Duration
}

func newBaseband(channels, pulses, samples int) *Baseband {
	n := channels * pulses * samples
	return &Baseband{
		channels: channels,
		pulses:   pulses,
		samples:  samples,
		data:     make([]complex128, n),
		times:    make([]float64, n),
	}
}

func (b *Baseband) offset(ch, p int) int { return (ch*b.pulses + p) * b.samples }

// Dims returns the channel, pulse and sample counts.
func (b *Baseband) Dims() (channels, pulses, samples int) {
	return b.channels, b.pulses, b.samples
}

// Sample returns one baseband sample.
func (b *Baseband) Sample(ch, p, n int) complex128 { return b.data[b.offset(ch, p)+n] }

// Timestamp returns the absolute time of one sample in seconds.
func (b *Baseband) Timestamp(ch, p, n int) float64 { return b.times[b.offset(ch, p)+n] }

// Pulse returns a copy of the fast-time samples of one pulse.
func (b *Baseband) Pulse(ch, p int) []complex128 {
	off := b.offset(ch, p)
	return append([]complex128(nil), b.data[off:off+b.samples]...)
}

// PulseTimes returns a copy of the sample times of one pulse.
func (b *Baseband) PulseTimes(ch, p int) []float64 {
	off := b.offset(ch, p)
	return append([]float64(nil), b.times[off:off+b.samples]...)
}

// Matrix returns a deep copy of the samples as [channel][pulse][sample].
func (b *Baseband) Matrix() [][][]complex128 {
	out := make([][][]complex128, b.channels)
	for ch := range out {
		out[ch] = make([][]complex128, b.pulses)
		for p := range out[ch] {
			out[ch][p] = b.Pulse(ch, p)
		}
	}
	return out
}

// Timestamps returns a deep copy of the sample times as
// [channel][pulse][sample].
func (b *Baseband) Timestamps() [][][]float64 {
	out := make([][][]float64, b.channels)
	for ch := range out {
		out[ch] = make([][]float64, b.pulses)
		for p := range out[ch] {
			out[ch][p] = b.PulseTimes(ch, p)
		}
	}
	return out
}

// Real reports whether the receiver sampled a single real rail. Imaginary
// parts are zero in that case.
func (b *Baseband) Real() bool { return b.real }

// Seed returns the noise seed used for the run, drawn at random when the
// caller supplied none.
func (b *Baseband) Seed() uint64 { return b.seed }

// OutOfCoverage returns, per target, how many samples were dropped because
// the target lay outside a channel's pattern table.
func (b *Baseband) OutOfCoverage() []int { return append([]int(nil), b.outOfCoverage...) }

// Elapsed returns the wall-clock duration of the run.
func (b *Baseband) Elapsed() time.Duration { return b.elapsed }
