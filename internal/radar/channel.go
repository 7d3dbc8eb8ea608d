package radar

import (
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// Channel is one transmit or receive element as configured by the caller.
// Angles are in degrees, gains in dB. Leaving both the angle and gain tables
// of a plane empty makes the channel isotropic in that plane.
type Channel struct {
	Location r3.Vec // metres

	AzimuthAngles   []float64
	AzimuthGains    []float64
	ElevationAngles []float64
	ElevationGains  []float64

	// PhaseCode holds one phase per chip in degrees. Transmit channels only.
	PhaseCode  []float64
	ChipLength float64 // seconds per chip

	// Delay staggers this channel's pulses relative to the pulse grid (TDM).
	Delay float64 // seconds
}

// clone returns a deep copy so a compiled Radar never aliases caller slices.
func (c Channel) clone() Channel {
	out := c
	out.AzimuthAngles = append([]float64(nil), c.AzimuthAngles...)
	out.AzimuthGains = append([]float64(nil), c.AzimuthGains...)
	out.ElevationAngles = append([]float64(nil), c.ElevationAngles...)
	out.ElevationGains = append([]float64(nil), c.ElevationGains...)
	out.PhaseCode = append([]float64(nil), c.PhaseCode...)
	return out
}

// pattern is a compiled gain-vs-angle table.
type pattern struct {
	lo, hi float64 // table domain, degrees
	peak   float64 // dB
	fn     *interp.PiecewiseLinear
}

func compilePattern(plane string, angles, gains []float64) (*pattern, error) {
	if len(angles) == 0 && len(gains) == 0 {
		return nil, nil
	}
	if len(angles) != len(gains) {
		return nil, simerr.Invalid("%s pattern has %d angles but %d gains", plane, len(angles), len(gains))
	}
	if len(angles) < 2 {
		return nil, simerr.Invalid("%s pattern needs at least 2 points, got %d", plane, len(angles))
	}
	peak := math.Inf(-1)
	for i, a := range angles {
		if math.IsNaN(a) || math.IsInf(a, 0) || a < -180 || a > 180 {
			return nil, simerr.Invalid("%s pattern angle %v outside [-180, 180]", plane, a)
		}
		if i > 0 && a <= angles[i-1] {
			return nil, simerr.Invalid("%s pattern angles must be strictly increasing (index %d)", plane, i)
		}
		if math.IsNaN(gains[i]) || math.IsInf(gains[i], 1) {
			return nil, simerr.Invalid("%s pattern gain at %v° is not finite", plane, a)
		}
		peak = math.Max(peak, gains[i])
	}
	fn := &interp.PiecewiseLinear{}
	if err := fn.Fit(angles, gains); err != nil {
		return nil, simerr.Invalid("%s pattern: %v", plane, err)
	}
	return &pattern{lo: angles[0], hi: angles[len(angles)-1], peak: peak, fn: fn}, nil
}

// at interpolates the table. ok is false outside the table domain; the
// pattern is never extrapolated.
func (p *pattern) at(deg float64) (gain float64, ok bool) {
	if deg < p.lo || deg > p.hi {
		return 0, false
	}
	return p.fn.Predict(deg), true
}

// Antenna is the compiled, read-only form of a Channel.
type Antenna struct {
	location r3.Vec
	delay    float64
	az, el   *pattern
	code     []float64 // radians
	chip     float64
}

func compileAntenna(c Channel) (*Antenna, error) {
	az, err := compilePattern("azimuth", c.AzimuthAngles, c.AzimuthGains)
	if err != nil {
		return nil, err
	}
	el, err := compilePattern("elevation", c.ElevationAngles, c.ElevationGains)
	if err != nil {
		return nil, err
	}
	if c.Delay < 0 || math.IsNaN(c.Delay) {
		return nil, simerr.Invalid("channel delay must be non-negative, got %v", c.Delay)
	}
	a := &Antenna{location: c.Location, delay: c.Delay, az: az, el: el, chip: c.ChipLength}
	if len(c.PhaseCode) > 0 {
		a.code = make([]float64, len(c.PhaseCode))
		for i, deg := range c.PhaseCode {
			a.code[i] = deg * math.Pi / 180
		}
	}
	return a, nil
}

// Location returns the phase-centre position of the element.
func (a *Antenna) Location() r3.Vec { return a.location }

// Delay returns the TDM time offset of the element.
func (a *Antenna) Delay() float64 { return a.delay }

// Coded reports whether the element transmits a phase code.
func (a *Antenna) Coded() bool { return len(a.code) > 0 }

// Code returns a copy of the chip phases in radians.
func (a *Antenna) Code() []float64 { return append([]float64(nil), a.code...) }

// ChipLength returns the chip duration of a coded element.
func (a *Antenna) ChipLength() float64 { return a.chip }

// CodeDuration returns len(code)·chip, or zero for uncoded elements.
func (a *Antenna) CodeDuration() float64 { return float64(len(a.code)) * a.chip }

// CodePhase returns the chip phase active at pulse-local time u. The element
// is keyed off (ok false) outside [0, CodeDuration) when coded; uncoded
// elements are always on with zero code phase.
func (a *Antenna) CodePhase(u float64) (phase float64, ok bool) {
	if len(a.code) == 0 {
		return 0, true
	}
	if u < 0 {
		return 0, false
	}
	idx := int(math.Floor(u / a.chip))
	if idx >= len(a.code) {
		return 0, false
	}
	return a.code[idx], true
}

// Gain returns the element gain in dB toward a direction given as azimuth
// and elevation in degrees. The elevation table is normalised to its peak so
// the azimuth table carries the absolute gain. ok is false when the direction
// falls outside either table.
func (a *Antenna) Gain(azDeg, elDeg float64) (gain float64, ok bool) {
	if a.az != nil {
		g, in := a.az.at(azDeg)
		if !in {
			return 0, false
		}
		gain += g
	}
	if a.el != nil {
		g, in := a.el.at(elDeg)
		if !in {
			return 0, false
		}
		gain += g - a.el.peak
	}
	return gain, true
}

// Direction returns the azimuth and elevation in degrees of to as seen from
// from. Boresight is +Y, azimuth grows toward +X and elevation toward +Z.
func Direction(from, to r3.Vec) (azDeg, elDeg float64) {
	d := r3.Sub(to, from)
	az := math.Atan2(d.X, d.Y)
	el := math.Atan2(d.Z, math.Hypot(d.X, d.Y))
	return az * 180 / math.Pi, el * 180 / math.Pi
}

// CosinePattern returns the angle grid and gains of the pattern
// 20·log10(cos θ + 0.01) + peakDB sampled every stepDeg over [-90°, 90°].
func CosinePattern(stepDeg, peakDB float64) (angles, gains []float64) {
	if stepDeg <= 0 {
		stepDeg = 1
	}
	n := int(math.Round(180/stepDeg)) + 1
	angles = make([]float64, n)
	gains = make([]float64, n)
	for i := range angles {
		a := -90 + float64(i)*stepDeg
		if a > 90 {
			a = 90
		}
		angles[i] = a
		gains[i] = 20*math.Log10(math.Cos(a*math.Pi/180)+0.01) + peakDB
	}
	return angles, gains
}

// WithCosinePattern returns c with both planes set to CosinePattern.
func (c Channel) WithCosinePattern(stepDeg, peakDB float64) Channel {
	angles, gains := CosinePattern(stepDeg, peakDB)
	c.AzimuthAngles, c.AzimuthGains = angles, gains
	c.ElevationAngles = append([]float64(nil), angles...)
	c.ElevationGains = append([]float64(nil), gains...)
	return c
}
