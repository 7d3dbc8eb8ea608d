package detection

import (
	"fmt"
	"strings"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// Model is a target fluctuation / detector model.
type Model int

const (
	Swerling1 Model = iota + 1
	Swerling2
	Swerling3
	Swerling4
	Swerling5
	Coherent
	Real
)

// NonFluctuating is the steady target; it is the same model as Swerling 5
// (also called Swerling 0).
const NonFluctuating = Swerling5

// Models lists every distinct model in display order.
var Models = []Model{Swerling1, Swerling2, Swerling3, Swerling4, Swerling5, Coherent, Real}

func (m Model) String() string {
	switch m {
	case Swerling1, Swerling2, Swerling3, Swerling4, Swerling5:
		return fmt.Sprintf("Swerling %d", int(m))
	case Coherent:
		return "Coherent"
	case Real:
		return "Real"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// MarshalText renders the model name.
func (m Model) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, simerr.Invalid("unknown detection model %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText parses a model name with ParseModel.
func (m *Model) UnmarshalText(b []byte) error {
	v, err := ParseModel(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Model) valid() bool { return m >= Swerling1 && m <= Real }

// ParseModel accepts "Swerling 1".."Swerling 5", "Swerling 0", "SW3",
// "swerling3", "Coherent", "Real" and "NonFluctuating"/"steady", ignoring case,
// spaces, dashes and underscores.
func ParseModel(name string) (Model, error) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(name))
	switch key {
	case "swerling1", "sw1":
		return Swerling1, nil
	case "swerling2", "sw2":
		return Swerling2, nil
	case "swerling3", "sw3":
		return Swerling3, nil
	case "swerling4", "sw4":
		return Swerling4, nil
	case "swerling5", "sw5", "swerling0", "sw0", "nonfluctuating", "steady":
		return Swerling5, nil
	case "coherent":
		return Coherent, nil
	case "real":
		return Real, nil
	default:
		return 0, simerr.Invalid("unknown detection model %q", name)
	}
}
