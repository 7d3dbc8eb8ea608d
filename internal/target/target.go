package target

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/units"
)

// Trajectory yields a scatterer's position and velocity at time t (seconds).
// Implementations must be safe for concurrent use.
type Trajectory interface {
	Position(t float64) r3.Vec
	Velocity(t float64) r3.Vec
}

// Static is a scatterer that never moves.
type Static struct {
	At r3.Vec
}

func (s Static) Position(float64) r3.Vec { return s.At }
func (s Static) Velocity(float64) r3.Vec { return r3.Vec{} }

// ConstantVelocity moves in a straight line from Start at time zero.
type ConstantVelocity struct {
	Start r3.Vec
	V     r3.Vec // m/s
}

func (c ConstantVelocity) Position(t float64) r3.Vec { return r3.Add(c.Start, r3.Scale(t, c.V)) }
func (c ConstantVelocity) Velocity(float64) r3.Vec   { return c.V }

// defaultStep is the half-width of the central difference used when a
// Parametric trajectory has no closed-form velocity.
const defaultStep = 1e-6

// Parametric is a closed-form function of time. When Vel is nil the velocity
// is estimated by a central difference of Pos with half-width Step (default
// 1 µs).
type Parametric struct {
	Pos  func(t float64) r3.Vec
	Vel  func(t float64) r3.Vec
	Step float64
}

func (p Parametric) Position(t float64) r3.Vec { return p.Pos(t) }

func (p Parametric) Velocity(t float64) r3.Vec {
	if p.Vel != nil {
		return p.Vel(t)
	}
	h := p.Step
	if h <= 0 {
		h = defaultStep
	}
	return r3.Scale(1/(2*h), r3.Sub(p.Pos(t+h), p.Pos(t-h)))
}

// NewOscillation returns a sinusoidal vibration about center:
// center + amplitude·sin(2π·freqHz·t). This is the usual model for vital-sign
// and vibrating-structure Doppler measurements.
func NewOscillation(center, amplitude r3.Vec, freqHz float64) Parametric {
	w := 2 * math.Pi * freqHz
	return Parametric{
		Pos: func(t float64) r3.Vec { return r3.Add(center, r3.Scale(math.Sin(w*t), amplitude)) },
		Vel: func(t float64) r3.Vec { return r3.Scale(w*math.Cos(w*t), amplitude) },
	}
}

// Target is a point scatterer.
type Target struct {
	Trajectory Trajectory
	RCS        float64 // dBsm
	Phase      float64 // radians
}

// Validate rejects targets the simulator cannot evaluate.
func (tg Target) Validate() error {
	if tg.Trajectory == nil {
		return simerr.Invalid("target has no trajectory")
	}
	if math.IsNaN(tg.RCS) || math.IsInf(tg.RCS, 1) {
		return simerr.Invalid("target RCS must be finite, got %v dBsm", tg.RCS)
	}
	if math.IsNaN(tg.Phase) || math.IsInf(tg.Phase, 0) {
		return simerr.Invalid("target phase must be finite, got %v", tg.Phase)
	}
	if p, ok := tg.Trajectory.(Parametric); ok && p.Pos == nil {
		return simerr.Invalid("parametric target has no position function")
	}
	return nil
}

// RCSLinear returns the radar cross-section in m². An RCS of -Inf dBsm is a
// zero cross-section.
func (tg Target) RCSLinear() float64 { return units.DBToLinear(tg.RCS) }

// Position returns the target position at time t.
func (tg Target) Position(t float64) r3.Vec { return tg.Trajectory.Position(t) }

// Range returns the distance from loc to the target at time t.
func (tg Target) Range(loc r3.Vec, t float64) float64 {
	return r3.Norm(r3.Sub(tg.Trajectory.Position(t), loc))
}

// RadialVelocity returns the rate of change of Range at time t. Positive
// values move away from loc. A target sitting exactly on loc reports zero.
func (tg Target) RadialVelocity(loc r3.Vec, t float64) float64 {
	d := r3.Sub(tg.Trajectory.Position(t), loc)
	n := r3.Norm(d)
	if n == 0 {
		return 0
	}
	return r3.Dot(d, tg.Trajectory.Velocity(t)) / n
}
