package processing

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/simerr"
)

// AngleRangeMap is the beamformed response, [angle][range bin].
type AngleRangeMap struct {
	data     [][]complex128
	angles   []float64 // degrees
	ranges   []float64 // metres
	maxRange float64
}

// Dims returns the angle and range bin counts.
func (m *AngleRangeMap) Dims() (angles, bins int) {
	if len(m.data) == 0 {
		return 0, 0
	}
	return len(m.data), len(m.data[0])
}

// At returns the response at one angle and range bin.
func (m *AngleRangeMap) At(angle, bin int) complex128 { return m.data[angle][bin] }

// Angles returns the angle axis in degrees.
func (m *AngleRangeMap) Angles() []float64 { return append([]float64(nil), m.angles...) }

// Ranges returns the range axis in metres.
func (m *AngleRangeMap) Ranges() []float64 { return append([]float64(nil), m.ranges...) }

// Magnitude returns |AF| as [angle][range bin].
func (m *AngleRangeMap) Magnitude() [][]float64 {
	out := make([][]float64, len(m.data))
	for a, row := range m.data {
		out[a] = make([]float64, len(row))
		for i, v := range row {
			out[a][i] = cmplx.Abs(v)
		}
	}
	return out
}

// MagnitudeDB returns 20·log10|AF| as [angle][range bin].
func (m *AngleRangeMap) MagnitudeDB() [][]float64 {
	out := m.Magnitude()
	for _, row := range out {
		toDB(row)
	}
	return out
}

// Peak returns the angle and range of the strongest cell.
func (m *AngleRangeMap) Peak() (angleDeg, rangeM float64) {
	a, b := Peak2D(m.Magnitude())
	return m.angles[a], m.ranges[b]
}

// AngleGrid returns angles from lo to hi inclusive in steps of step degrees.
func AngleGrid(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func checkAngles(anglesDeg []float64) error {
	if len(anglesDeg) == 0 {
		return simerr.Invalid("angle grid is empty")
	}
	for _, a := range anglesDeg {
		if math.IsNaN(a) || a < -90 || a > 90 {
			return simerr.Invalid("angle %v° outside [-90°, 90°]", a)
		}
	}
	return nil
}

// SteeringMatrix returns A[θ][e] = exp(j·2π·(x_e/λ)·sin θ) for element
// positions along the array (X) axis.
func SteeringMatrix(positions []r3.Vec, wavelength float64, anglesDeg []float64) ([][]complex128, error) {
	if err := checkAngles(anglesDeg); err != nil {
		return nil, err
	}
	if wavelength <= 0 {
		return nil, simerr.Invalid("wavelength must be positive, got %v", wavelength)
	}
	a := make([][]complex128, len(anglesDeg))
	for i, deg := range anglesDeg {
		s := math.Sin(deg * math.Pi / 180)
		a[i] = make([]complex128, len(positions))
		for e, p := range positions {
			a[i][e] = cmplx.Exp(complex(0, 2*math.Pi*p.X/wavelength*s))
		}
	}
	return a, nil
}

// Beamform forms AF[θ][bin] = Σ_e A[θ][e]·taper[e]·rp[e][pulse][bin] over
// the virtual array of r. taper must have one weight per channel.
func Beamform(rp *RangeProfile, r *radar.Radar, pulse int, anglesDeg, taper []float64) (*AngleRangeMap, error) {
	if rp == nil || r == nil {
		return nil, simerr.Invalid("range profile and radar are required")
	}
	channels, pulses, bins := rp.Dims()
	if channels != r.ChannelCount() {
		return nil, simerr.Invalid("range profile has %d channels, radar has %d", channels, r.ChannelCount())
	}
	if pulse < 0 || pulse >= pulses {
		return nil, simerr.Invalid("pulse %d out of range [0, %d)", pulse, pulses)
	}
	if len(taper) != channels {
		return nil, simerr.Invalid("taper has %d weights, virtual array has %d elements", len(taper), channels)
	}
	steer, err := SteeringMatrix(r.VirtualArray(), r.Wavelength(), anglesDeg)
	if err != nil {
		return nil, err
	}

	// Columns of the slice across elements, one per range bin.
	cols := make([][]complex128, bins)
	for b := range cols {
		cols[b] = make([]complex128, channels)
		for e := 0; e < channels; e++ {
			cols[b][e] = rp.data[e][pulse][b]
		}
	}

	out := &AngleRangeMap{
		data:     make([][]complex128, len(anglesDeg)),
		angles:   append([]float64(nil), anglesDeg...),
		ranges:   rp.Ranges(),
		maxRange: float64(bins) * binSpacing(rp.ranges),
	}
	err = parallel(len(anglesDeg), func(i int) error {
		// cmplxs.Dot conjugates its first argument.
		w := make([]complex128, channels)
		for e := range w {
			w[e] = cmplx.Conj(steer[i][e]) * complex(taper[e], 0)
		}
		row := make([]complex128, bins)
		for b := range row {
			row[b] = cmplxs.Dot(w, cols[b])
		}
		out.data[i] = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func binSpacing(ranges []float64) float64 {
	if len(ranges) < 2 {
		return 0
	}
	return ranges[1] - ranges[0]
}

// CartesianImage is a magnitude image on a regular x/y grid. Value is indexed
// [y][x]; cells outside the beamformed field of view are zero.
type CartesianImage struct {
	X     []float64
	Y     []float64
	Value [][]float64
}

// Cartesian resamples |AF| onto nx×ny points with x in [−R, R) and y in
// [0, R), R the range covered by the map, by bilinear interpolation in
// (angle, range).
func (m *AngleRangeMap) Cartesian(nx, ny int) (*CartesianImage, error) {
	if nx < 1 || ny < 1 {
		return nil, simerr.Invalid("cartesian grid must be at least 1x1, got %dx%d", nx, ny)
	}
	if len(m.angles) < 2 || len(m.ranges) < 2 {
		return nil, simerr.Invalid("need at least two angles and two range bins to resample")
	}
	for i := 1; i < len(m.angles); i++ {
		if m.angles[i] <= m.angles[i-1] {
			return nil, simerr.Invalid("angle grid must be strictly increasing to resample")
		}
	}
	mag := m.Magnitude()
	rmax := m.maxRange
	img := &CartesianImage{X: make([]float64, nx), Y: make([]float64, ny), Value: make([][]float64, ny)}
	for i := range img.X {
		img.X[i] = -rmax + 2*rmax*float64(i)/float64(nx)
	}
	for j := range img.Y {
		img.Y[j] = rmax * float64(j) / float64(ny)
	}
	for j, y := range img.Y {
		img.Value[j] = make([]float64, nx)
		for i, x := range img.X {
			rng := math.Hypot(x, y)
			az := math.Atan2(x, y) * 180 / math.Pi
			img.Value[j][i] = bilinear(mag, m.angles, m.ranges, az, rng)
		}
	}
	return img, nil
}

// bilinear samples grid[a][r] at (angle, rng). Axes must be increasing.
// Points outside the axes return zero.
func bilinear(grid [][]float64, angles, ranges []float64, angle, rng float64) float64 {
	ai, af, ok := locate(angles, angle)
	if !ok {
		return 0
	}
	ri, rf, ok := locate(ranges, rng)
	if !ok {
		return 0
	}
	v00 := grid[ai][ri]
	v01 := grid[ai][ri+1]
	v10 := grid[ai+1][ri]
	v11 := grid[ai+1][ri+1]
	return (1-af)*((1-rf)*v00+rf*v01) + af*((1-rf)*v10+rf*v11)
}

// locate returns the lower cell index and fractional offset of v on axis.
func locate(axis []float64, v float64) (idx int, frac float64, ok bool) {
	n := len(axis)
	if v < axis[0] || v > axis[n-1] {
		return 0, 0, false
	}
	idx = max(sort.SearchFloat64s(axis, v)-1, 0)
	idx = min(idx, n-2)
	return idx, (v - axis[idx]) / (axis[idx+1] - axis[idx]), true
}
