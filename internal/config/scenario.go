package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/radarsim/internal/detection"
	"github.com/banshee-data/radarsim/internal/processing"
	"github.com/banshee-data/radarsim/internal/radar"
	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/simulator"
	"github.com/banshee-data/radarsim/internal/target"
)

// DefaultConfigPath is the path to the canonical scenario defaults file.
const DefaultConfigPath = "config/scenario.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ScenarioConfig is the root of a scenario file. Transmitter, receiver and
// targets are required; the remaining sections fall back to the defaults
// returned by their Get* methods.
type ScenarioConfig struct {
	Name        string            `json:"name,omitempty"`
	Transmitter TransmitterConfig `json:"transmitter"`
	Receiver    ReceiverConfig    `json:"receiver"`
	Targets     []TargetConfig    `json:"targets"`
	Simulation  SimulationConfig  `json:"simulation"`
	Processing  ProcessingConfig  `json:"processing"`
	Detection   DetectionConfig   `json:"detection"`
}

// TransmitterConfig mirrors radar.Transmitter.
type TransmitterConfig struct {
	FrequencyHz       float64         `json:"frequency_hz"`
	PowerDBm          float64         `json:"power_dbm"`
	PulseLengthS      float64         `json:"pulse_length_s"`
	BandwidthHz       float64         `json:"bandwidth_hz"`
	Slope             string          `json:"slope,omitempty"`
	RepetitionPeriodS float64         `json:"repetition_period_s,omitempty"`
	Pulses            int             `json:"pulses"`
	Channels          []ChannelConfig `json:"channels"`
}

// ReceiverConfig mirrors radar.Receiver.
type ReceiverConfig struct {
	SampleRateHz      float64         `json:"sample_rate_hz"`
	NoiseFigureDB     float64         `json:"noise_figure_db"`
	RFGainDB          float64         `json:"rf_gain_db"`
	BasebandGainDB    float64         `json:"baseband_gain_db"`
	LoadResistanceOhm float64         `json:"load_resistance_ohm"`
	Baseband          string          `json:"baseband,omitempty"`
	Channels          []ChannelConfig `json:"channels"`
}

// ChannelConfig is one antenna element.
type ChannelConfig struct {
	Location     [3]float64     `json:"location"`
	Azimuth      *PatternConfig `json:"azimuth,omitempty"`
	Elevation    *PatternConfig `json:"elevation,omitempty"`
	PhaseCodeDeg []float64      `json:"phase_code_deg,omitempty"`
	ChipLengthS  float64        `json:"chip_length_s,omitempty"`
	DelayS       float64        `json:"delay_s,omitempty"`
}

// PatternConfig is either an explicit gain table or a generated shape.
// Kind "cosine" uses PeakGainDB and StepDeg; kind "table" (or empty with
// angles present) uses AnglesDeg and GainsDB.
type PatternConfig struct {
	Kind       string    `json:"kind,omitempty"`
	PeakGainDB float64   `json:"peak_gain_db,omitempty"`
	StepDeg    float64   `json:"step_deg,omitempty"`
	AnglesDeg  []float64 `json:"angles_deg,omitempty"`
	GainsDB    []float64 `json:"gains_db,omitempty"`
}

// TargetConfig is one point target. Kind is "static", "constant_velocity"
// or "oscillation".
type TargetConfig struct {
	Kind        string     `json:"kind"`
	Position    [3]float64 `json:"position"`
	Velocity    [3]float64 `json:"velocity,omitempty"`
	Amplitude   [3]float64 `json:"amplitude,omitempty"`
	FrequencyHz float64    `json:"frequency_hz,omitempty"`
	RCSDBsm     float64    `json:"rcs_dbsm"`
	PhaseDeg    float64    `json:"phase_deg,omitempty"`
}

// SimulationConfig holds simulator options.
type SimulationConfig struct {
	Seed            *uint64 `json:"seed,omitempty"`
	Workers         *int    `json:"workers,omitempty"`
	DelayIterations *int    `json:"delay_iterations,omitempty"`
	DisableNoise    *bool   `json:"disable_noise,omitempty"`
}

// ProcessingConfig holds window, Doppler and beamforming settings.
type ProcessingConfig struct {
	RangeWindow   *string  `json:"range_window,omitempty"`
	DopplerWindow *string  `json:"doppler_window,omitempty"`
	Taper         *string  `json:"taper,omitempty"`
	AttenuationDB *float64 `json:"attenuation_db,omitempty"`
	DopplerShift  *bool    `json:"doppler_shift,omitempty"`
	AngleMinDeg   *float64 `json:"angle_min_deg,omitempty"`
	AngleMaxDeg   *float64 `json:"angle_max_deg,omitempty"`
	AngleStepDeg  *float64 `json:"angle_step_deg,omitempty"`
}

// DetectionConfig holds the SNR table request.
type DetectionConfig struct {
	Pfa    *float64 `json:"pfa,omitempty"`
	Pd     *float64 `json:"pd,omitempty"`
	MaxN   *int     `json:"max_n,omitempty"`
	Models []string `json:"models,omitempty"`
}

// LoadScenarioConfig loads a scenario from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*ScenarioConfig, error) {
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("scenario too large: %d bytes (max %d)", len(data), maxFileSize)
	}
	cfg := &ScenarioConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical scenario from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ScenarioConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/radarsim/
	}
	for _, path := range candidates {
		if cfg, err := LoadScenarioConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the parts of the scenario that the radar model does not
// check itself: names, target kinds and section ranges.
func (c *ScenarioConfig) Validate() error {
	if len(c.Transmitter.Channels) == 0 {
		return simerr.Invalid("transmitter needs at least one channel")
	}
	if len(c.Receiver.Channels) == 0 {
		return simerr.Invalid("receiver needs at least one channel")
	}
	if _, err := radar.ParseSlope(c.Transmitter.Slope); err != nil {
		return err
	}
	if _, err := radar.ParseBasebandType(c.Receiver.Baseband); err != nil {
		return err
	}
	for i, tc := range c.Targets {
		if _, err := tc.build(); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
	}
	if err := c.Simulation.validate(); err != nil {
		return err
	}
	if err := c.Processing.validate(); err != nil {
		return err
	}
	return c.Detection.Validate()
}

// Radar builds the radar model described by the transmitter and receiver
// sections.
func (c *ScenarioConfig) Radar() (*radar.Radar, error) {
	tx, err := c.Transmitter.build()
	if err != nil {
		return nil, err
	}
	rx, err := c.Receiver.build()
	if err != nil {
		return nil, err
	}
	return radar.NewRadar(tx, rx)
}

// BuildTargets converts the target list.
func (c *ScenarioConfig) BuildTargets() ([]target.Target, error) {
	out := make([]target.Target, 0, len(c.Targets))
	for i, tc := range c.Targets {
		tg, err := tc.build()
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", i, err)
		}
		out = append(out, tg)
	}
	return out, nil
}

func (t TransmitterConfig) build() (radar.Transmitter, error) {
	slope, err := radar.ParseSlope(t.Slope)
	if err != nil {
		return radar.Transmitter{}, err
	}
	channels, err := buildChannels(t.Channels)
	if err != nil {
		return radar.Transmitter{}, fmt.Errorf("transmitter: %w", err)
	}
	return radar.Transmitter{
		Frequency:        t.FrequencyHz,
		PowerDBm:         t.PowerDBm,
		PulseLength:      t.PulseLengthS,
		Bandwidth:        t.BandwidthHz,
		Slope:            slope,
		RepetitionPeriod: t.RepetitionPeriodS,
		Pulses:           t.Pulses,
		Channels:         channels,
	}, nil
}

func (r ReceiverConfig) build() (radar.Receiver, error) {
	bb, err := radar.ParseBasebandType(r.Baseband)
	if err != nil {
		return radar.Receiver{}, err
	}
	channels, err := buildChannels(r.Channels)
	if err != nil {
		return radar.Receiver{}, fmt.Errorf("receiver: %w", err)
	}
	return radar.Receiver{
		SampleRate:     r.SampleRateHz,
		NoiseFigure:    r.NoiseFigureDB,
		RFGain:         r.RFGainDB,
		BasebandGain:   r.BasebandGainDB,
		LoadResistance: r.LoadResistanceOhm,
		Baseband:       bb,
		Channels:       channels,
	}, nil
}

func buildChannels(in []ChannelConfig) ([]radar.Channel, error) {
	out := make([]radar.Channel, len(in))
	for i, cc := range in {
		ch := radar.Channel{
			Location:   vec(cc.Location),
			PhaseCode:  append([]float64(nil), cc.PhaseCodeDeg...),
			ChipLength: cc.ChipLengthS,
			Delay:      cc.DelayS,
		}
		var err error
		if ch.AzimuthAngles, ch.AzimuthGains, err = cc.Azimuth.table(); err != nil {
			return nil, fmt.Errorf("channel %d azimuth: %w", i, err)
		}
		if ch.ElevationAngles, ch.ElevationGains, err = cc.Elevation.table(); err != nil {
			return nil, fmt.Errorf("channel %d elevation: %w", i, err)
		}
		out[i] = ch
	}
	return out, nil
}

// table expands the pattern. A nil pattern is isotropic.
func (p *PatternConfig) table() (angles, gains []float64, err error) {
	if p == nil {
		return nil, nil, nil
	}
	switch strings.ToLower(p.Kind) {
	case "cosine":
		if p.StepDeg < 0 {
			return nil, nil, simerr.Invalid("pattern step must be positive, got %v", p.StepDeg)
		}
		angles, gains = radar.CosinePattern(p.StepDeg, p.PeakGainDB)
		return angles, gains, nil
	case "", "table":
		return append([]float64(nil), p.AnglesDeg...), append([]float64(nil), p.GainsDB...), nil
	case "isotropic":
		return nil, nil, nil
	default:
		return nil, nil, simerr.Invalid("unknown pattern kind %q", p.Kind)
	}
}

func (t TargetConfig) build() (target.Target, error) {
	var traj target.Trajectory
	switch strings.ToLower(t.Kind) {
	case "", "static":
		traj = target.Static{At: vec(t.Position)}
	case "constant_velocity", "moving":
		traj = target.ConstantVelocity{Start: vec(t.Position), V: vec(t.Velocity)}
	case "oscillation", "vibration":
		if t.FrequencyHz <= 0 {
			return target.Target{}, simerr.Invalid("oscillation frequency must be positive, got %v", t.FrequencyHz)
		}
		traj = target.NewOscillation(vec(t.Position), vec(t.Amplitude), t.FrequencyHz)
	default:
		return target.Target{}, simerr.Invalid("unknown target kind %q", t.Kind)
	}
	tg := target.Target{Trajectory: traj, RCS: t.RCSDBsm, Phase: t.PhaseDeg * math.Pi / 180}
	if err := tg.Validate(); err != nil {
		return target.Target{}, err
	}
	return tg, nil
}

func vec(v [3]float64) r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func (s SimulationConfig) validate() error {
	if s.Workers != nil && *s.Workers < 0 {
		return simerr.Invalid("workers must be non-negative, got %d", *s.Workers)
	}
	if s.DelayIterations != nil && *s.DelayIterations < 0 {
		return simerr.Invalid("delay_iterations must be non-negative, got %d", *s.DelayIterations)
	}
	return nil
}

// Options converts the section to simulator options.
func (s SimulationConfig) Options() simulator.Options {
	opts := simulator.Options{
		Workers:         s.GetWorkers(),
		DelayIterations: s.GetDelayIterations(),
		DisableNoise:    s.GetDisableNoise(),
	}
	if s.Seed != nil {
		opts.Seed = simulator.Seed(*s.Seed)
	}
	return opts
}

// GetWorkers returns the workers value or the default (0, all CPUs).
func (s SimulationConfig) GetWorkers() int {
	if s.Workers == nil {
		return 0
	}
	return *s.Workers
}

// GetDelayIterations returns the delay_iterations value or the default.
func (s SimulationConfig) GetDelayIterations() int {
	if s.DelayIterations == nil {
		return simulator.DefaultDelayIterations
	}
	return *s.DelayIterations
}

// GetDisableNoise returns the disable_noise value or the default.
func (s SimulationConfig) GetDisableNoise() bool {
	if s.DisableNoise == nil {
		return false
	}
	return *s.DisableNoise
}

func (p ProcessingConfig) validate() error {
	for name, w := range map[string]*string{"range_window": p.RangeWindow, "doppler_window": p.DopplerWindow, "taper": p.Taper} {
		if w == nil {
			continue
		}
		if _, err := processing.ParseWindow(*w); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if p.AttenuationDB != nil && *p.AttenuationDB <= 0 {
		return simerr.Invalid("attenuation_db must be positive, got %v", *p.AttenuationDB)
	}
	if p.AngleStepDeg != nil && *p.AngleStepDeg <= 0 {
		return simerr.Invalid("angle_step_deg must be positive, got %v", *p.AngleStepDeg)
	}
	lo, hi := p.GetAngleMinDeg(), p.GetAngleMaxDeg()
	if lo < -90 || hi > 90 || lo > hi {
		return simerr.Invalid("angle range [%v, %v] must lie within [-90, 90]", lo, hi)
	}
	return nil
}

func windowOrDefault(name *string) processing.WindowKind {
	if name == nil {
		return processing.Chebyshev
	}
	k, err := processing.ParseWindow(*name)
	if err != nil {
		return processing.Chebyshev
	}
	return k
}

// GetRangeWindow returns the fast-time window kind or the default (Chebyshev).
func (p ProcessingConfig) GetRangeWindow() processing.WindowKind {
	return windowOrDefault(p.RangeWindow)
}

// GetDopplerWindow returns the slow-time window kind or the default (Chebyshev).
func (p ProcessingConfig) GetDopplerWindow() processing.WindowKind {
	return windowOrDefault(p.DopplerWindow)
}

// GetTaper returns the array taper kind or the default (Chebyshev).
func (p ProcessingConfig) GetTaper() processing.WindowKind { return windowOrDefault(p.Taper) }

// GetAttenuationDB returns the Chebyshev sidelobe attenuation or the default.
func (p ProcessingConfig) GetAttenuationDB() float64 {
	if p.AttenuationDB == nil {
		return processing.DefaultAttenuation
	}
	return *p.AttenuationDB
}

// GetDopplerShift returns the doppler_shift value or the default (true).
func (p ProcessingConfig) GetDopplerShift() bool {
	if p.DopplerShift == nil {
		return true
	}
	return *p.DopplerShift
}

// GetAngleMinDeg returns the angle_min_deg value or the default.
func (p ProcessingConfig) GetAngleMinDeg() float64 {
	if p.AngleMinDeg == nil {
		return -90
	}
	return *p.AngleMinDeg
}

// GetAngleMaxDeg returns the angle_max_deg value or the default.
func (p ProcessingConfig) GetAngleMaxDeg() float64 {
	if p.AngleMaxDeg == nil {
		return 90
	}
	return *p.AngleMaxDeg
}

// GetAngleStepDeg returns the angle_step_deg value or the default.
func (p ProcessingConfig) GetAngleStepDeg() float64 {
	if p.AngleStepDeg == nil {
		return 1
	}
	return *p.AngleStepDeg
}

// AngleGrid returns the beamforming angle grid.
func (p ProcessingConfig) AngleGrid() []float64 {
	return processing.AngleGrid(p.GetAngleMinDeg(), p.GetAngleMaxDeg(), p.GetAngleStepDeg())
}

// Validate checks the probabilities, integration count and model names.
func (d DetectionConfig) Validate() error {
	if d.Pfa != nil && (*d.Pfa <= 0 || *d.Pfa >= 1) {
		return simerr.Invalid("pfa must be in (0, 1), got %v", *d.Pfa)
	}
	if d.Pd != nil && (*d.Pd <= 0 || *d.Pd >= 1) {
		return simerr.Invalid("pd must be in (0, 1), got %v", *d.Pd)
	}
	if d.MaxN != nil && *d.MaxN < 1 {
		return simerr.Invalid("max_n must be at least 1, got %d", *d.MaxN)
	}
	_, err := d.GetModels()
	return err
}

// GetPfa returns the pfa value or the default.
func (d DetectionConfig) GetPfa() float64 {
	if d.Pfa == nil {
		return 1e-6
	}
	return *d.Pfa
}

// GetPd returns the pd value or the default.
func (d DetectionConfig) GetPd() float64 {
	if d.Pd == nil {
		return 0.9
	}
	return *d.Pd
}

// GetMaxN returns the max_n value or the default.
func (d DetectionConfig) GetMaxN() int {
	if d.MaxN == nil {
		return detection.DefaultMaxN
	}
	return *d.MaxN
}

// GetModels parses the model names. An empty list means every model.
func (d DetectionConfig) GetModels() ([]detection.Model, error) {
	if len(d.Models) == 0 {
		return append([]detection.Model(nil), detection.Models...), nil
	}
	out := make([]detection.Model, 0, len(d.Models))
	for _, name := range d.Models {
		m, err := detection.ParseModel(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Windows builds the range window, Doppler window and array taper for r.
func (p ProcessingConfig) Windows(r *radar.Radar) (rangeWin, dopplerWin, taper []float64, err error) {
	at := p.GetAttenuationDB()
	samples := r.SamplesPerPulse()
	if rangeWin, err = processing.Window(p.GetRangeWindow(), samples, at); err != nil {
		return nil, nil, nil, fmt.Errorf("range window: %w", err)
	}
	if dopplerWin, err = processing.Window(p.GetDopplerWindow(), r.Pulses(), at); err != nil {
		return nil, nil, nil, fmt.Errorf("doppler window: %w", err)
	}
	if taper, err = processing.Window(p.GetTaper(), r.ChannelCount(), at); err != nil {
		return nil, nil, nil, fmt.Errorf("taper: %w", err)
	}
	return rangeWin, dopplerWin, taper, nil
}
