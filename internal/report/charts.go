package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/radarsim/internal/detection"
)

func axisLabels(v []float64) []string {
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = strconv.FormatFloat(x, 'g', 4, 64)
	}
	return out
}

func lineData(v []float64) []opts.LineData {
	out := make([]opts.LineData, len(v))
	for i, x := range v {
		out[i] = opts.LineData{Value: x}
	}
	return out
}

// ROCChart renders Pd against SNR with one series per Pfa. grid is indexed
// [pfa][snr] as returned by detection.PdGrid.
func ROCChart(w io.Writer, title string, pfas, snrsDB []float64, grid [][]float64) error {
	if len(grid) != len(pfas) {
		return fmt.Errorf("ROC grid has %d rows for %d pfa values", len(grid), len(pfas))
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "SNR (dB)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Pd", Min: 0, Max: 1}),
	)
	line.SetXAxis(axisLabels(snrsDB))
	for i, pfa := range pfas {
		if len(grid[i]) != len(snrsDB) {
			return fmt.Errorf("ROC row %d has %d values for %d SNR values", i, len(grid[i]), len(snrsDB))
		}
		line.AddSeries(fmt.Sprintf("Pfa=%g", pfa), lineData(grid[i]),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// SNRTableChart renders required SNR against integration count, one series
// per model.
func SNRTableChart(w io.Writer, t *detection.SNRTable) error {
	if t == nil || len(t.SNR) != len(t.Models) {
		return fmt.Errorf("SNR table is empty or inconsistent")
	}
	title := fmt.Sprintf("Required SNR, Pd=%g Pfa=%g", t.Pd, t.Pfa)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Pulses integrated", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "SNR (dB)"}),
	)
	n := make([]string, len(t.N))
	for i, v := range t.N {
		n[i] = strconv.Itoa(v)
	}
	line.SetXAxis(n)
	for i, m := range t.Models {
		line.AddSeries(m.String(), lineData(t.SNR[i]),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
