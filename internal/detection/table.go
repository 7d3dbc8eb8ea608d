package detection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/radarsim/internal/monitoring"
	"github.com/banshee-data/radarsim/internal/simerr"
)

// DefaultMaxN is the largest integration count in a default SNR table.
const DefaultMaxN = 256

// forEach runs fn(i) for i in [0, n) on a bounded pool, stopping early when
// ctx is cancelled.
func forEach(ctx context.Context, n int, fn func(i int)) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	return g.Wait()
}

// PdGrid evaluates Pd for every pfa and SNR; the result is indexed
// [pfa][snr].
func PdGrid(ctx context.Context, pfas, snrsDB []float64, n int, m Model) ([][]float64, error) {
	out := make([][]float64, len(pfas))
	errs := make([]error, len(pfas))
	err := forEach(ctx, len(pfas), func(i int) {
		row := make([]float64, len(snrsDB))
		for j, snr := range snrsDB {
			pd, err := Pd(pfas[i], snr, n, m)
			if err != nil {
				errs[i] = err
				return
			}
			row[j] = pd
		}
		out[i] = row
	})
	if err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// RequiredSNRGrid solves the required SNR for every pfa and pd, indexed
// [pfa][pd]. Points without a solution are NaN and their errors are joined
// into the returned error; the grid is still returned.
func RequiredSNRGrid(ctx context.Context, s Solver, pfas, pds []float64, n int, m Model) ([][]float64, error) {
	out := make([][]float64, len(pfas))
	errs := make([][]error, len(pfas))
	err := forEach(ctx, len(pfas), func(i int) {
		out[i] = make([]float64, len(pds))
		errs[i] = make([]error, len(pds))
		for j, pd := range pds {
			snr, err := s.RequiredSNR(pd, pfas[i], n, m)
			if err != nil {
				snr = math.NaN()
				errs[i][j] = fmt.Errorf("pfa=%g pd=%g: %w", pfas[i], pd, err)
			}
			out[i][j] = snr
		}
	})
	if err != nil {
		return nil, err
	}
	var all []error
	for _, row := range errs {
		all = append(all, row...)
	}
	return out, errors.Join(all...)
}

// SNRTable holds the SNR in dB required to reach Pd at Pfa for each model and
// integration count. SNR is indexed [model][n−1].
type SNRTable struct {
	Pfa    float64     `json:"pfa"`
	Pd     float64     `json:"pd"`
	Models []Model     `json:"models"`
	N      []int       `json:"n"`
	SNR    [][]float64 `json:"snr_db"`
}

// Lookup returns the table entry for model m and integration count n.
func (t *SNRTable) Lookup(m Model, n int) (float64, bool) {
	if n < 1 || n > len(t.N) {
		return 0, false
	}
	for i, tm := range t.Models {
		if tm == m {
			return t.SNR[i][n-1], true
		}
	}
	return 0, false
}

// BuildSNRTable computes the required SNR for n = 1..maxN under each model
// with DefaultSolver. maxN ≤ 0 uses DefaultMaxN. Any point without a
// solution fails the whole table.
func BuildSNRTable(ctx context.Context, pfa, pd float64, models []Model, maxN int) (*SNRTable, error) {
	if maxN <= 0 {
		maxN = DefaultMaxN
	}
	if len(models) == 0 {
		return nil, simerr.Invalid("SNR table needs at least one model")
	}
	for _, m := range models {
		if !m.valid() {
			return nil, simerr.Invalid("unknown detection model %d", int(m))
		}
	}
	defer monitoring.Stage("snr table")()

	t := &SNRTable{
		Pfa:    pfa,
		Pd:     pd,
		Models: append([]Model(nil), models...),
		N:      make([]int, maxN),
		SNR:    make([][]float64, len(models)),
	}
	for i := range t.N {
		t.N[i] = i + 1
	}
	for i := range t.SNR {
		t.SNR[i] = make([]float64, maxN)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for mi, m := range models {
		for n := 1; n <= maxN; n++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				snr, err := RequiredSNR(pd, pfa, n, m)
				if err != nil {
					return fmt.Errorf("%v n=%d: %w", m, n, err)
				}
				t.SNR[mi][n-1] = snr
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}
