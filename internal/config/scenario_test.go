package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/radarsim/internal/detection"
	"github.com/banshee-data/radarsim/internal/processing"
	"github.com/banshee-data/radarsim/internal/simerr"
	"github.com/banshee-data/radarsim/internal/simulator"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

const minimalScenario = `{
  "transmitter": {"frequency_hz": 24e9, "power_dbm": 10, "pulse_length_s": 1e-5, "bandwidth_hz": 1e8, "pulses": 4,
                  "channels": [{"location": [0, 0, 0]}]},
  "receiver": {"sample_rate_hz": 1e6, "noise_figure_db": 10, "rf_gain_db": 20, "baseband_gain_db": 30, "load_resistance_ohm": 500,
               "channels": [{"location": [0, 0, 0]}]},
  "targets": [{"position": [0, 10, 0], "rcs_dbsm": 0}]
}`

func TestDefaultScenarioConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	r, err := cfg.Radar()
	if err != nil {
		t.Fatalf("Radar() error: %v", err)
	}
	if r.SamplesPerPulse() != 160 {
		t.Errorf("SamplesPerPulse() = %d, want 160", r.SamplesPerPulse())
	}
	if r.Pulses() != 256 {
		t.Errorf("Pulses() = %d, want 256", r.Pulses())
	}
	if r.ChannelCount() != 1 {
		t.Errorf("ChannelCount() = %d, want 1", r.ChannelCount())
	}
	if _, ok := r.TxAntenna(0).Gain(0, 0); !ok {
		t.Error("boresight should be inside the cosine pattern")
	}

	targets, err := cfg.BuildTargets()
	if err != nil {
		t.Fatalf("BuildTargets() error: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("len(targets) = %d, want 3", len(targets))
	}
	if got := targets[0].Position(1).Y; got != 195 {
		t.Errorf("target 0 position at 1s = %v, want 195", got)
	}

	opts := cfg.Simulation.Options()
	if opts.Seed == nil || *opts.Seed != 2024 {
		t.Errorf("Seed = %v, want 2024", opts.Seed)
	}
	if cfg.Processing.GetRangeWindow() != processing.Chebyshev {
		t.Errorf("GetRangeWindow() = %v", cfg.Processing.GetRangeWindow())
	}
	models, err := cfg.Detection.GetModels()
	if err != nil {
		t.Fatalf("GetModels() error: %v", err)
	}
	if len(models) != len(detection.Models) {
		t.Errorf("len(models) = %d, want %d", len(models), len(detection.Models))
	}
}

func TestPartialConfigUsesDefaults(t *testing.T) {
	cfg, err := LoadScenarioConfig(writeConfig(t, "partial.json", minimalScenario))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Simulation.GetDelayIterations() != simulator.DefaultDelayIterations {
		t.Errorf("GetDelayIterations() = %d", cfg.Simulation.GetDelayIterations())
	}
	if cfg.Simulation.GetDisableNoise() {
		t.Error("GetDisableNoise() should default to false")
	}
	if opts := cfg.Simulation.Options(); opts.Seed != nil {
		t.Errorf("Seed should be nil without a configured seed, got %v", *opts.Seed)
	}
	if !cfg.Processing.GetDopplerShift() {
		t.Error("GetDopplerShift() should default to true")
	}
	if cfg.Processing.GetAttenuationDB() != processing.DefaultAttenuation {
		t.Errorf("GetAttenuationDB() = %v", cfg.Processing.GetAttenuationDB())
	}
	if got := len(cfg.Processing.AngleGrid()); got != 181 {
		t.Errorf("len(AngleGrid()) = %d, want 181", got)
	}
	if cfg.Detection.GetPfa() != 1e-6 || cfg.Detection.GetPd() != 0.9 {
		t.Errorf("pfa/pd defaults = %v/%v", cfg.Detection.GetPfa(), cfg.Detection.GetPd())
	}
	if cfg.Detection.GetMaxN() != detection.DefaultMaxN {
		t.Errorf("GetMaxN() = %d", cfg.Detection.GetMaxN())
	}

	r, err := cfg.Radar()
	if err != nil {
		t.Fatalf("Radar() error: %v", err)
	}
	rw, dw, taper, err := cfg.Processing.Windows(r)
	if err != nil {
		t.Fatalf("Windows() error: %v", err)
	}
	if len(rw) != 10 || len(dw) != 4 || len(taper) != 1 {
		t.Errorf("window lengths = %d/%d/%d, want 10/4/1", len(rw), len(dw), len(taper))
	}
}

func TestMIMOExample(t *testing.T) {
	cfg, err := LoadScenarioConfig("../../config/tdm_mimo.example.json")
	if err != nil {
		t.Fatalf("Failed to load example: %v", err)
	}
	r, err := cfg.Radar()
	if err != nil {
		t.Fatalf("Radar() error: %v", err)
	}
	if r.ChannelCount() != 8 {
		t.Errorf("ChannelCount() = %d, want 8", r.ChannelCount())
	}
	if cfg.Processing.GetTaper() != processing.Hann {
		t.Errorf("GetTaper() = %v, want hann", cfg.Processing.GetTaper())
	}
	models, err := cfg.Detection.GetModels()
	if err != nil || len(models) != 2 || models[1] != detection.Swerling3 {
		t.Errorf("GetModels() = %v, %v", models, err)
	}
}

func TestPatternKinds(t *testing.T) {
	angles, gains, err := (&PatternConfig{Kind: "cosine", PeakGainDB: 6, StepDeg: 2}).table()
	if err != nil || len(angles) != 91 || len(gains) != 91 {
		t.Errorf("cosine table = %d/%d points, %v", len(angles), len(gains), err)
	}
	angles, _, err = (&PatternConfig{AnglesDeg: []float64{-10, 10}, GainsDB: []float64{0, 0}}).table()
	if err != nil || len(angles) != 2 {
		t.Errorf("explicit table = %v, %v", angles, err)
	}
	var nilPattern *PatternConfig
	if a, g, err := nilPattern.table(); a != nil || g != nil || err != nil {
		t.Error("nil pattern should be isotropic")
	}
	if _, _, err := (&PatternConfig{Kind: "sinc"}).table(); !errors.Is(err, simerr.ErrInvalidConfig) {
		t.Errorf("unknown kind error = %v", err)
	}
}

func TestOscillationTarget(t *testing.T) {
	tg, err := TargetConfig{Kind: "oscillation", Position: [3]float64{0, 1, 0}, Amplitude: [3]float64{0, 0.001, 0}, FrequencyHz: 0.25}.build()
	if err != nil {
		t.Fatalf("build() error: %v", err)
	}
	if got := tg.Position(1).Y; got < 1.000999 || got > 1.001001 {
		t.Errorf("peak displacement = %v, want 1.001", got)
	}
}

func TestLoadScenarioConfigErrors(t *testing.T) {
	replace := func(old, new string) string { return strings.Replace(minimalScenario, old, new, 1) }
	tests := []struct {
		name string
		file string
		body string
	}{
		{"extension", "scenario.yaml", minimalScenario},
		{"invalid json", "bad.json", `{"transmitter": `},
		{"no tx channels", "c.json", replace(`"pulses": 4,
                  "channels": [{"location": [0, 0, 0]}]`, `"pulses": 4, "channels": []`)},
		{"unknown slope", "c.json", replace(`"pulses": 4`, `"pulses": 4, "slope": "sideways"`)},
		{"unknown baseband", "c.json", replace(`"load_resistance_ohm": 500`, `"load_resistance_ohm": 500, "baseband": "quadrature"`)},
		{"unknown target kind", "c.json", replace(`"position": [0, 10, 0]`, `"kind": "teleport", "position": [0, 10, 0]`)},
		{"oscillation without frequency", "c.json", replace(`"position": [0, 10, 0]`, `"kind": "oscillation", "position": [0, 10, 0]`)},
		{"negative workers", "c.json", replace(`"targets"`, `"simulation": {"workers": -1}, "targets"`)},
		{"unknown window", "c.json", replace(`"targets"`, `"processing": {"range_window": "kaiser"}, "targets"`)},
		{"angle range", "c.json", replace(`"targets"`, `"processing": {"angle_max_deg": 120}, "targets"`)},
		{"pfa range", "c.json", replace(`"targets"`, `"detection": {"pfa": 1.5}, "targets"`)},
		{"unknown model", "c.json", replace(`"targets"`, `"detection": {"models": ["Swerling 9"]}, "targets"`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadScenarioConfig(writeConfig(t, tt.file, tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := LoadScenarioConfig("/nonexistent/path/to/config.json"); err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}

	big := writeConfig(t, "big.json", `{"name": "`+strings.Repeat("x", maxFileSize)+`"}`)
	if _, err := LoadScenarioConfig(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestRadarErrorsSurface(t *testing.T) {
	cfg, err := ParseScenario([]byte(strings.Replace(minimalScenario, `"sample_rate_hz": 1e6`, `"sample_rate_hz": 0`, 1)))
	if err != nil {
		t.Fatalf("ParseScenario() error: %v", err)
	}
	if _, err := cfg.Radar(); !errors.Is(err, simerr.ErrInvalidConfig) {
		t.Errorf("Radar() error = %v, want invalid configuration", err)
	}
}
