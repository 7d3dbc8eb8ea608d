package simulator

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/radarsim/internal/monitoring"
	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/target"
	"github.com/banshee-data/radarsim/internal/timeutil"
	"github.com/banshee-data/radarsim/internal/units"
)

// DefaultDelayIterations is the number of fixed-point steps used to solve the
// retarded time. Each step shrinks the error by a factor v/c.
const DefaultDelayIterations = 2

// Options controls a simulation run. The zero value is usable: random seed,
// noise on, GOMAXPROCS workers, DefaultDelayIterations.
type Options struct {
	// Seed makes the receiver noise reproducible. Nil draws a random seed,
	// reported by Baseband.Seed.
	Seed *uint64

	// DisableNoise produces the noise-free signal.
	DisableNoise bool

	// Workers bounds tile concurrency. Zero means runtime.GOMAXPROCS(0).
	Workers int

	// DelayIterations is the number of retarded-time fixed-point steps.
	// Zero means DefaultDelayIterations.
	DelayIterations int

	// Clock times the run. Nil means the wall clock.
	Clock timeutil.Clock
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) delayIterations() int {
	if o.DelayIterations > 0 {
		return o.DelayIterations
	}
	return DefaultDelayIterations
}

// Seed is a convenience for filling Options.Seed.
func Seed(v uint64) *uint64 { return &v }

// scatterer is the per-target state precomputed once per run.
type scatterer struct {
	traj  target.Trajectory
	amp   float64 // volts at unit gain and unit ranges
	phase float64
}

// run holds the read-only state shared by every tile.
type run struct {
	r          *radar.Radar
	targets    []scatterer
	iterations int
	noiseRMS   float64 // per-sample noise voltage, 0 when disabled
	real       bool
	seed       uint64
	out        *Baseband
	missed     []atomic.Int64
}

// Run simulates the baseband returned by r for the given targets. It returns
// an error wrapping simerr.ErrInvalidConfig for bad input and the context's
// error when cancelled; in both cases no Baseband is returned.
func Run(ctx context.Context, r *radar.Radar, targets []target.Target, opts Options) (*Baseband, error) {
	if r == nil {
		return nil, simerr.Invalid("nil radar")
	}
	if opts.Workers < 0 {
		return nil, simerr.Invalid("worker count must not be negative, got %d", opts.Workers)
	}
	if opts.DelayIterations < 0 {
		return nil, simerr.Invalid("delay iterations must not be negative, got %d", opts.DelayIterations)
	}
	for i, tg := range targets {
		if err := tg.Validate(); err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
	}

	clock := timeutil.OrReal(opts.Clock)
	start := clock.Now()

	seed := rand.Uint64()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	rx := r.Receiver()
	w := &run{
		r:          r,
		iterations: opts.delayIterations(),
		real:       r.Baseband() == radar.BasebandReal,
		seed:       seed,
		out:        newBaseband(r.ChannelCount(), r.Pulses(), r.SamplesPerPulse()),
		missed:     make([]atomic.Int64, len(targets)),
	}
	if !opts.DisableNoise {
		w.noiseRMS = NoiseVoltage(r)
	}

	// Amplitude chain: sqrt(Pt·λ²·σ·G_rf·R_L/(4π)³)·G_bb, scaled per sample by
	// the antenna gains and 1/(Rt·Rr).
	lambda := r.Wavelength()
	pt := units.DBmToWatts(r.Transmitter().PowerDBm)
	chain := units.DBToLinear(rx.RFGain) * rx.LoadResistance / units.FourPiCubed
	bbGain := units.DBToAmplitude(rx.BasebandGain)
	for _, tg := range targets {
		w.targets = append(w.targets, scatterer{
			traj:  tg.Trajectory,
			amp:   math.Sqrt(pt*lambda*lambda*tg.RCSLinear()*chain) * bbGain,
			phase: tg.Phase,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	channels, pulses := r.ChannelCount(), r.Pulses()
tiles:
	for ch := 0; ch < channels; ch++ {
		for p := 0; p < pulses; p++ {
			if gctx.Err() != nil {
				break tiles
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				w.tile(ch, p)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	out := w.out
	out.real = w.real
	out.seed = seed
	out.outOfCoverage = make([]int, len(targets))
	total := channels * pulses * r.SamplesPerPulse()
	for i := range w.missed {
		out.outOfCoverage[i] = int(w.missed[i].Load())
		if out.outOfCoverage[i] > 0 {
			monitoring.Logf("simulator: target %d outside antenna coverage for %d of %d samples", i, out.outOfCoverage[i], total)
		}
	}
	out.elapsed = clock.Since(start)
	monitoring.Logf("simulator: %d channels x %d pulses x %d samples, %d targets, seed %d, %s",
		channels, pulses, r.SamplesPerPulse(), len(targets), seed, out.elapsed)
	return out, nil
}

// tile fills one (channel, pulse) row of the output.
func (w *run) tile(ch, p int) {
	r := w.r
	txi, rxi := r.ChannelPair(ch)
	txAnt, rxAnt := r.TxAntenna(txi), r.RxAntenna(rxi)
	txLoc, rxLoc := txAnt.Location(), rxAnt.Location()
	fs := r.SampleRate()
	samples := r.SamplesPerPulse()

	off := w.out.offset(ch, p)
	data := w.out.data[off : off+samples]
	times := w.out.times[off : off+samples]

	missed := make([]int64, len(w.targets))
	for n := 0; n < samples; n++ {
		u := float64(n) / fs
		t := r.PulseStart(txi, p) + u
		times[n] = t

		var sum complex128
		for i, s := range w.targets {
			pos := retarded(s.traj, rxLoc, t, w.iterations)
			rt := r3.Norm(r3.Sub(pos, txLoc))
			rr := r3.Norm(r3.Sub(pos, rxLoc))
			if rt == 0 || rr == 0 {
				missed[i]++
				continue
			}
			gt, okT := txAnt.Gain(radar.Direction(txLoc, pos))
			gr, okR := rxAnt.Gain(radar.Direction(rxLoc, pos))
			if !okT || !okR {
				missed[i]++
				continue
			}
			tau := (rt + rr) / units.SpeedOfLight
			phi, on := r.BeatPhase(txi, u, tau)
			if !on {
				continue
			}
			v := s.amp * units.DBToAmplitude(gt+gr) / (rt * rr)
			if w.real {
				sum += complex(v*math.Cos(phi+s.phase), 0)
			} else {
				sum += complex(v, 0) * cmplx.Exp(complex(0, phi+s.phase))
			}
		}
		data[n] = sum
	}

	if w.noiseRMS > 0 {
		addNoise(data, w.noiseRMS, w.real, rand.NewPCG(w.seed, uint64(off/samples)))
	}
	for i, m := range missed {
		if m > 0 {
			w.missed[i].Add(m)
		}
	}
}

// retarded returns the target position at the time the echo received at t
// was reflected, found by iterating t_r = t − |p(t_r) − rx|/c.
func retarded(traj target.Trajectory, rx r3.Vec, t float64, iterations int) r3.Vec {
	tr := t
	pos := traj.Position(tr)
	for range iterations {
		tr = t - r3.Norm(r3.Sub(pos, rx))/units.SpeedOfLight
		pos = traj.Position(tr)
	}
	return pos
}
