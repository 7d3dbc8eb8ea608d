package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/db"
	"github.com/banshee-data/radarsim/internal/monitoring"
	"github.com/banshee-data/radarsim/internal/processing"
	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/simulator"
)

// Result holds every stage of one scenario run. Stages that do not apply to
// the waveform are nil: CW has no range profile, and the angle-range map
// needs at least two virtual channels.
type Result struct {
	Name         string
	Radar        *radar.Radar
	Baseband     *simulator.Baseband
	RangeProfile *processing.RangeProfile
	RangeDoppler *processing.RangeDopplerMap
	AngleRange   *processing.AngleRangeMap
}

// Peaks are the strongest cells of the processed maps.
type Peaks struct {
	RangeM      *float64 `json:"range_m,omitempty"`
	VelocityMPS *float64 `json:"velocity_mps,omitempty"`
	AngleDeg    *float64 `json:"angle_deg,omitempty"`
	BeamRangeM  *float64 `json:"beam_range_m,omitempty"`
}

// Summary is the JSON view of a run.
type Summary struct {
	Name          string        `json:"name,omitempty"`
	Radar         radar.Summary `json:"radar"`
	Seed          uint64        `json:"seed"`
	Targets       int           `json:"targets"`
	OutOfCoverage []int         `json:"out_of_coverage"`
	ElapsedMS     float64       `json:"elapsed_ms"`
	Peaks         Peaks         `json:"peaks"`
}

// Run simulates and processes cfg.
func Run(ctx context.Context, cfg *config.ScenarioConfig) (*Result, error) {
	if cfg == nil {
		return nil, simerr.Invalid("nil scenario")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := cfg.Radar()
	if err != nil {
		return nil, err
	}
	targets, err := cfg.BuildTargets()
	if err != nil {
		return nil, err
	}
	rangeWin, dopplerWin, taper, err := cfg.Processing.Windows(r)
	if err != nil {
		return nil, err
	}

	res := &Result{Name: cfg.Name, Radar: r}
	done := monitoring.Stage("simulate")
	res.Baseband, err = simulator.Run(ctx, r, targets, cfg.Simulation.Options())
	done()
	if err != nil {
		return nil, err
	}

	switch r.Waveform() {
	case radar.WaveformChirp:
		done = monitoring.Stage("range profile")
		res.RangeProfile, err = processing.ChirpRangeProfile(res.Baseband, r, rangeWin)
		done()
	case radar.WaveformPhaseCoded:
		done = monitoring.Stage("code correlation")
		res.RangeProfile, err = processing.CodeRangeProfile(res.Baseband, r, 0)
		done()
	default:
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("range processing: %w", err)
	}

	done = monitoring.Stage("range-doppler")
	res.RangeDoppler, err = processing.RangeDoppler(res.RangeProfile, r, dopplerWin, cfg.Processing.GetDopplerShift())
	done()
	if err != nil {
		return nil, fmt.Errorf("doppler processing: %w", err)
	}

	if r.ChannelCount() > 1 {
		done = monitoring.Stage("beamform")
		res.AngleRange, err = processing.Beamform(res.RangeProfile, r, 0, cfg.Processing.AngleGrid(), taper)
		done()
		if err != nil {
			return nil, fmt.Errorf("beamforming: %w", err)
		}
	}
	return res, nil
}

func ptr(v float64) *float64 { return &v }

// Peaks locates the strongest range-Doppler cell summed over channels and
// the strongest angle-range cell.
func (r *Result) Peaks() Peaks {
	var p Peaks
	if r.RangeDoppler != nil {
		rng, vel := r.RangeDoppler.IntegratedPeak()
		p.RangeM, p.VelocityMPS = ptr(rng), ptr(vel)
	} else if r.RangeProfile != nil {
		p.RangeM = ptr(r.RangeProfile.IntegratedPeakRange(0))
	}
	if r.AngleRange != nil {
		az, rng := r.AngleRange.Peak()
		p.AngleDeg, p.BeamRangeM = ptr(az), ptr(rng)
	}
	return p
}

// Summary returns the derived scalars, coverage counts and peaks.
func (r *Result) Summary() Summary {
	oc := r.Baseband.OutOfCoverage()
	return Summary{
		Name:          r.Name,
		Radar:         r.Radar.Summary(),
		Seed:          r.Baseband.Seed(),
		Targets:       len(oc),
		OutOfCoverage: oc,
		ElapsedMS:     float64(r.Baseband.Elapsed()) / float64(time.Millisecond),
		Peaks:         r.Peaks(),
	}
}

// Record converts the result to a store row.
func (r *Result) Record() (*db.SimulationRun, error) {
	s := r.Summary()
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	channels, pulses, samples := r.Baseband.Dims()
	missed := 0
	for _, n := range s.OutOfCoverage {
		missed += n
	}
	return &db.SimulationRun{
		Name:            r.Name,
		Seed:            s.Seed,
		Waveform:        s.Radar.Waveform,
		Channels:        channels,
		Pulses:          pulses,
		Samples:         samples,
		Targets:         s.Targets,
		OutOfCoverage:   missed,
		Elapsed:         r.Baseband.Elapsed(),
		PeakRangeM:      s.Peaks.RangeM,
		PeakVelocityMPS: s.Peaks.VelocityMPS,
		Summary:         raw,
	}, nil
}
