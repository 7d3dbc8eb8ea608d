package radar

import (
	"fmt"
	"strings"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// Slope is the direction of the frequency ramp of a chirp.
type Slope int

const (
	SlopeRising Slope = iota
	SlopeFalling
)

func (s Slope) String() string {
	switch s {
	case SlopeRising:
		return "rising"
	case SlopeFalling:
		return "falling"
	default:
		return fmt.Sprintf("Slope(%d)", int(s))
	}
}

// ParseSlope accepts "rising"/"up" and "falling"/"down". An empty string
// means rising.
func ParseSlope(s string) (Slope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rising", "up":
		return SlopeRising, nil
	case "falling", "down":
		return SlopeFalling, nil
	default:
		return 0, simerr.Invalid("unknown chirp slope %q", s)
	}
}

// Transmitter describes the waveform shared by every transmit channel.
type Transmitter struct {
	Frequency   float64 // centre frequency, Hz
	PowerDBm    float64
	PulseLength float64 // seconds
	Bandwidth   float64 // Hz; zero for CW and phase-coded waveforms
	Slope       Slope

	// RepetitionPeriod is the chirp repetition period (CRP). Zero or less
	// means back-to-back pulses (CRP = PulseLength).
	RepetitionPeriod float64
	Pulses           int

	Channels []Channel
}

// Waveform is the transmitted modulation, inferred from the transmitter.
type Waveform int

const (
	WaveformChirp Waveform = iota
	WaveformPhaseCoded
	WaveformCW
)

func (w Waveform) String() string {
	switch w {
	case WaveformChirp:
		return "chirp"
	case WaveformPhaseCoded:
		return "phase-coded"
	case WaveformCW:
		return "cw"
	default:
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
}

func (t Transmitter) waveform() Waveform {
	for _, c := range t.Channels {
		if len(c.PhaseCode) > 0 {
			return WaveformPhaseCoded
		}
	}
	if t.Bandwidth > 0 {
		return WaveformChirp
	}
	return WaveformCW
}
