package processing

import (
	"math"
	"math/cmplx"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// magnitudeFloor keeps log magnitudes finite for exact zeros.
const magnitudeFloor = 1e-12

// cube is a read-only [channel][row][column] block of complex samples shared
// by the range and range-Doppler results.
type cube struct {
	data [][][]complex128
}

func newCube(channels, rows, cols int) cube {
	c := cube{data: make([][][]complex128, channels)}
	for ch := range c.data {
		c.data[ch] = make([][]complex128, rows)
		for r := range c.data[ch] {
			c.data[ch][r] = make([]complex128, cols)
		}
	}
	return c
}

// Dims returns the channel, row and column counts.
func (c cube) Dims() (channels, rows, cols int) {
	channels = len(c.data)
	if channels > 0 {
		rows = len(c.data[0])
		if rows > 0 {
			cols = len(c.data[0][0])
		}
	}
	return channels, rows, cols
}

// At returns one cell.
func (c cube) At(ch, row, col int) complex128 { return c.data[ch][row][col] }

// Row returns a copy of one row of a channel.
func (c cube) Row(ch, row int) []complex128 {
	return append([]complex128(nil), c.data[ch][row]...)
}

// Magnitude returns |x| of one channel as [row][column].
func (c cube) Magnitude(ch int) [][]float64 {
	out := make([][]float64, len(c.data[ch]))
	for r, row := range c.data[ch] {
		out[r] = make([]float64, len(row))
		for i, v := range row {
			out[r][i] = cmplx.Abs(v)
		}
	}
	return out
}

// MagnitudeDB returns 20·log10|x| of one channel as [row][column].
func (c cube) MagnitudeDB(ch int) [][]float64 {
	out := c.Magnitude(ch)
	for _, row := range out {
		toDB(row)
	}
	return out
}

// IncoherentSum returns Σ_ch |x| as [row][column].
func (c cube) IncoherentSum() [][]float64 {
	var out [][]float64
	for ch := range c.data {
		m := c.Magnitude(ch)
		if out == nil {
			out = m
			continue
		}
		for r := range out {
			floats.Add(out[r], m[r])
		}
	}
	return out
}

// IntegratedPower returns Σ_row |x|² of one channel for every column.
func (c cube) IntegratedPower(ch int) []float64 {
	rows := c.data[ch]
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for _, row := range rows {
		for i, v := range row {
			out[i] += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return out
}

func toDB(row []float64) {
	for i, v := range row {
		row[i] = 20 * math.Log10(v+magnitudeFloor)
	}
}

// PeakBin returns the index of the largest value.
func PeakBin(v []float64) int {
	if len(v) == 0 {
		return -1
	}
	return floats.MaxIdx(v)
}

// Peak2D returns the (row, column) of the largest value in m.
func Peak2D(m [][]float64) (row, col int) {
	row, col = -1, -1
	best := math.Inf(-1)
	for r, line := range m {
		if len(line) == 0 {
			continue
		}
		if c := floats.MaxIdx(line); line[c] > best {
			best, row, col = line[c], r, c
		}
	}
	return row, col
}

// parallel runs fn(i) for i in [0, n) on at most GOMAXPROCS goroutines.
func parallel(n int, fn func(i int) error) error {
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range n {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}

// planner is the part of *fourier.CmplxFFT used by ifft.
type planner interface {
	Coefficients(dst, seq []complex128) []complex128
}

// ifft computes the normalised inverse DFT through the forward transform,
// ifft(x) = conj(fft(conj(x)))/n. x is overwritten.
func ifft(p planner, dst, x []complex128) []complex128 {
	n := float64(len(x))
	for i := range x {
		x[i] = cmplx.Conj(x[i])
	}
	dst = p.Coefficients(dst, x)
	for i := range dst {
		dst[i] = cmplx.Conj(dst[i]) / complex(n, 0)
	}
	return dst
}

// fftShift rotates x so that the zero-frequency bin sits at index len(x)/2.
func fftShift(x []complex128) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	h := n / 2
	for i, v := range x {
		out[(i+h)%n] = v
	}
	return out
}
