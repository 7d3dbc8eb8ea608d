package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/radarsim/internal/detection"
	"github.com/banshee-data/radarsim/internal/monitoring"
	"github.com/banshee-data/radarsim/internal/processing"
	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/simulator"
	"github.com/banshee-data/radarsim/internal/target"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleTable() *detection.SNRTable {
	return &detection.SNRTable{
		Pfa:    1e-6,
		Pd:     0.9,
		Models: []detection.Model{detection.Swerling1, detection.Coherent},
		N:      []int{1, 2, 3},
		SNR:    [][]float64{{21.1, 18.2, 16.9}, {13.15, 10.14, 8.38}},
	}
}

func TestSNRTableCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSNRTableCSV(&buf, sampleTable()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "N,Swerling 1,Coherent", lines[0])
	assert.Equal(t, "2,18.200000,10.140000", lines[2])

	got, err := ReadSNRTableCSV(&buf)
	require.NoError(t, err)
	want := sampleTable()
	want.Pfa, want.Pd = 0, 0
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = ReadSNRTableCSV(strings.NewReader("M,Real\n1,2\n"))
	assert.Error(t, err)
	_, err = ReadSNRTableCSV(strings.NewReader("N,Bogus\n1,2\n"))
	assert.Error(t, err)
	_, err = ReadSNRTableCSV(strings.NewReader("N,Real\n1,x\n"))
	assert.Error(t, err)
	assert.Error(t, WriteSNRTableCSV(&buf, nil))
}

func TestWritePdGridCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WritePdGridCSV(&buf, []float64{1e-6, 1e-3}, []float64{0, 10}, [][]float64{{0.1, 0.5}, {0.2, 0.7}})
	require.NoError(t, err)
	assert.Equal(t, "snr_db,pfa=1e-06,pfa=0.001\n0.000000,0.1,0.2\n10.000000,0.5,0.7\n", buf.String())

	assert.Error(t, WritePdGridCSV(&buf, []float64{1e-6}, []float64{0}, nil))
}

func TestCharts(t *testing.T) {
	var buf bytes.Buffer
	pfas := []float64{1e-6, 1e-3}
	snrs := []float64{0, 5, 10}
	grid, err := detection.PdGrid(context.Background(), pfas, snrs, 1, detection.Swerling3)
	require.NoError(t, err)
	require.NoError(t, ROCChart(&buf, "Swerling 3 ROC", pfas, snrs, grid))
	html := buf.String()
	assert.Contains(t, html, "Swerling 3 ROC")
	assert.Contains(t, html, "Pfa=1e-06")
	assert.Contains(t, html, "<html")

	assert.Error(t, ROCChart(&buf, "bad", pfas, snrs, grid[:1]))
	assert.Error(t, ROCChart(&buf, "bad", pfas, snrs[:2], grid))

	buf.Reset()
	require.NoError(t, SNRTableChart(&buf, sampleTable()))
	assert.Contains(t, buf.String(), "Required SNR")
	assert.Contains(t, buf.String(), "Coherent")
	assert.Error(t, SNRTableChart(&buf, &detection.SNRTable{Models: []detection.Model{detection.Real}}))
}

func TestHeatmapOutputs(t *testing.T) {
	h := &Heatmap{
		Title:  "test",
		XAxis:  []float64{0, 1, 2},
		YAxis:  []float64{0, 1},
		Values: [][]float64{{0, 1, 2}, {3, 4, 5}},
	}
	var buf bytes.Buffer
	require.NoError(t, h.WritePNG(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	path := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, h.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	floor := 2.5
	h.Floor = &floor
	assert.Equal(t, 2.5, grid{h}.Z(0, 0))
	assert.Equal(t, 4.0, grid{h}.Z(1, 1))

	bad := []*Heatmap{
		{XAxis: []float64{0}, YAxis: []float64{0, 1}, Values: [][]float64{{0}, {0}}},
		{XAxis: []float64{0, 1}, YAxis: []float64{0, 1}, Values: [][]float64{{0, 1}}},
		{XAxis: []float64{0, 1}, YAxis: []float64{0, 1}, Values: [][]float64{{0, 1}, {0}}},
	}
	for i, b := range bad {
		assert.Error(t, b.WritePNG(&buf), "case %d", i)
	}
}

func TestSortedColumns(t *testing.T) {
	xs, z := sortedColumns([]float64{0, 1, -2, -1}, [][]float64{{10, 11, 12, 13}})
	assert.Equal(t, []float64{-2, -1, 0, 1}, xs)
	assert.Equal(t, [][]float64{{12, 13, 10, 11}}, z)

	xs, _ = sortedColumns([]float64{-1, 0, 1}, [][]float64{{1, 2, 3}})
	assert.Equal(t, []float64{-1, 0, 1}, xs)
}

func TestMapHeatmaps(t *testing.T) {
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })

	tx := radar.Transmitter{
		Frequency:        24e9,
		PowerDBm:         10,
		PulseLength:      20e-6,
		Bandwidth:        100e6,
		RepetitionPeriod: 25e-6,
		Pulses:           8,
		Channels:         []radar.Channel{{}},
	}
	rx := radar.Receiver{
		SampleRate:     1e6,
		NoiseFigure:    10,
		RFGain:         20,
		BasebandGain:   30,
		LoadResistance: 500,
		Channels:       []radar.Channel{{}, {Location: r3.Vec{X: 0.00625}}},
	}
	r, err := radar.NewRadar(tx, rx)
	require.NoError(t, err)
	bb, err := simulator.Run(context.Background(), r,
		[]target.Target{{Trajectory: target.Static{At: r3.Vec{Y: 10}}, RCS: 10}},
		simulator.Options{DisableNoise: true})
	require.NoError(t, err)

	rangeWin, err := processing.Window(processing.Hann, r.SamplesPerPulse(), 0)
	require.NoError(t, err)
	rp, err := processing.ChirpRangeProfile(bb, r, rangeWin)
	require.NoError(t, err)
	dopWin, err := processing.Window(processing.Rectangular, r.Pulses(), 0)
	require.NoError(t, err)
	rd, err := processing.RangeDoppler(rp, r, dopWin, false)
	require.NoError(t, err)

	h := RangeDopplerHeatmap(rd, 0)
	require.Len(t, h.XAxis, 8)
	for i := 1; i < len(h.XAxis); i++ {
		assert.Greater(t, h.XAxis[i], h.XAxis[i-1], "velocity axis must increase")
	}
	require.Len(t, h.Values, 20)
	var buf bytes.Buffer
	require.NoError(t, h.WritePNG(&buf))

	ar, err := processing.Beamform(rp, r, 0, processing.AngleGrid(-60, 60, 5), []float64{1, 1})
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, AngleRangeHeatmap(ar).WritePNG(&buf))

	img, err := ar.Cartesian(16, 8)
	require.NoError(t, err)
	ch := CartesianHeatmap(img)
	assert.Len(t, ch.Values, 8)
	buf.Reset()
	require.NoError(t, ch.WritePNG(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}
