package report

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/radarsim/internal/processing"
)

// Heatmap is a regular grid of values indexed [y][x].
type Heatmap struct {
	Title  string
	XLabel string
	YLabel string
	XAxis  []float64
	YAxis  []float64
	Values [][]float64
	// Floor clips values below it when set; dB maps use it to hide the
	// noise floor.
	Floor *float64
}

// grid adapts a Heatmap to plotter.GridXYZ.
type grid struct{ h *Heatmap }

func (g grid) Dims() (c, r int) { return len(g.h.XAxis), len(g.h.YAxis) }
func (g grid) X(c int) float64  { return g.h.XAxis[c] }
func (g grid) Y(r int) float64  { return g.h.YAxis[r] }
func (g grid) Z(c, r int) float64 {
	v := g.h.Values[r][c]
	if g.h.Floor != nil && v < *g.h.Floor {
		return *g.h.Floor
	}
	return v
}

func (h *Heatmap) validate() error {
	if len(h.XAxis) < 2 || len(h.YAxis) < 2 {
		return fmt.Errorf("heatmap needs at least 2x2 cells, got %dx%d", len(h.XAxis), len(h.YAxis))
	}
	if len(h.Values) != len(h.YAxis) {
		return fmt.Errorf("heatmap has %d rows for %d y values", len(h.Values), len(h.YAxis))
	}
	for i, row := range h.Values {
		if len(row) != len(h.XAxis) {
			return fmt.Errorf("heatmap row %d has %d values for %d x values", i, len(row), len(h.XAxis))
		}
	}
	return nil
}

// Plot builds the gonum plot for h.
func (h *Heatmap) Plot() (*plot.Plot, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = h.Title
	p.X.Label.Text = h.XLabel
	p.Y.Label.Text = h.YLabel
	p.Add(plotter.NewHeatMap(grid{h}, palette.Heat(12, 1)))
	return p, nil
}

// Save renders h to path; the extension picks the format (png, svg, pdf).
func (h *Heatmap) Save(path string) error {
	p, err := h.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// WritePNG renders h as PNG to w.
func (h *Heatmap) WritePNG(w io.Writer) error {
	p, err := h.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render heatmap: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// floorBelowPeak returns the peak of z minus dynamicRange.
func floorBelowPeak(z [][]float64, dynamicRange float64) *float64 {
	peak := math.Inf(-1)
	for _, row := range z {
		for _, v := range row {
			peak = math.Max(peak, v)
		}
	}
	f := peak - dynamicRange
	return &f
}

// DefaultDynamicRange is the span of dB values shown below a map's peak.
const DefaultDynamicRange = 60

// RangeDopplerHeatmap is the dB range-Doppler map of one channel with
// velocity across and range up.
func RangeDopplerHeatmap(m *processing.RangeDopplerMap, ch int) *Heatmap {
	db := m.MagnitudeDB(ch) // [doppler][range]
	ranges, vels := m.Ranges(), m.Velocities()
	z := make([][]float64, len(ranges))
	for r := range z {
		z[r] = make([]float64, len(vels))
		for d := range vels {
			z[r][d] = db[d][r]
		}
	}
	xs, z := sortedColumns(vels, z)
	return &Heatmap{
		Title:  fmt.Sprintf("Range-Doppler, channel %d", ch),
		XLabel: "Velocity (m/s)",
		YLabel: "Range (m)",
		XAxis:  xs,
		YAxis:  ranges,
		Values: z,
		Floor:  floorBelowPeak(z, DefaultDynamicRange),
	}
}

// sortedColumns reorders unshifted Doppler columns so the axis increases.
func sortedColumns(xs []float64, z [][]float64) ([]float64, [][]float64) {
	start := 0
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			start = i
			break
		}
	}
	if start == 0 {
		return xs, z
	}
	rot := func(row []float64) []float64 { return append(append([]float64(nil), row[start:]...), row[:start]...) }
	out := make([][]float64, len(z))
	for i, row := range z {
		out[i] = rot(row)
	}
	return rot(xs), out
}

// AngleRangeHeatmap is the dB angle-range map with angle across and range up.
func AngleRangeHeatmap(m *processing.AngleRangeMap) *Heatmap {
	db := m.MagnitudeDB() // [angle][range]
	angles, ranges := m.Angles(), m.Ranges()
	z := make([][]float64, len(ranges))
	for r := range z {
		z[r] = make([]float64, len(angles))
		for a := range angles {
			z[r][a] = db[a][r]
		}
	}
	return &Heatmap{
		Title:  "Angle-range",
		XLabel: "Angle (deg)",
		YLabel: "Range (m)",
		XAxis:  angles,
		YAxis:  ranges,
		Values: z,
		Floor:  floorBelowPeak(z, DefaultDynamicRange),
	}
}

// CartesianHeatmap plots a resampled beamformed image in dB.
func CartesianHeatmap(img *processing.CartesianImage) *Heatmap {
	z := make([][]float64, len(img.Value))
	for j, row := range img.Value {
		z[j] = make([]float64, len(row))
		for i, v := range row {
			z[j][i] = 20 * math.Log10(math.Max(v, 1e-12))
		}
	}
	return &Heatmap{
		Title:  "Beamformed image",
		XLabel: "x (m)",
		YLabel: "y (m)",
		XAxis:  append([]float64(nil), img.X...),
		YAxis:  append([]float64(nil), img.Y...),
		Values: z,
		Floor:  floorBelowPeak(z, DefaultDynamicRange),
	}
}
