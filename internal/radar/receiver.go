package radar

import (
	"fmt"
	"strings"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// BasebandType selects between a quadrature (complex) and a single-rail
// (real) receiver.
type BasebandType int

const (
	BasebandComplex BasebandType = iota
	BasebandReal
)

func (b BasebandType) String() string {
	switch b {
	case BasebandComplex:
		return "complex"
	case BasebandReal:
		return "real"
	default:
		return fmt.Sprintf("BasebandType(%d)", int(b))
	}
}

// ParseBasebandType accepts "complex"/"iq" and "real". Empty means complex.
func ParseBasebandType(s string) (BasebandType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "complex", "iq":
		return BasebandComplex, nil
	case "real":
		return BasebandReal, nil
	default:
		return 0, simerr.Invalid("unknown baseband type %q", s)
	}
}

// Receiver describes the sampling and gain chain shared by every receive
// channel.
type Receiver struct {
	SampleRate     float64 // samples/s
	NoiseFigure    float64 // dB
	RFGain         float64 // dB
	BasebandGain   float64 // dB
	LoadResistance float64 // ohms
	Baseband       BasebandType

	Channels []Channel
}
