package config

import (
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// MaxAxisPoints bounds the length of a parsed axis.
const MaxAxisPoints = 4096

// ParseAxis reads a comma-separated list ("1e-4,1e-6") or an inclusive range
// "start:stop:step" ("0:20:0.5").
func ParseAxis(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, simerr.Invalid("empty axis")
	}
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		var b [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, simerr.Invalid("invalid range %q", s)
			}
			b[i] = f
		}
		start, stop, step := b[0], b[1], b[2]
		if step <= 0 || stop < start {
			return nil, simerr.Invalid("invalid range %q: need start <= stop and a positive step", s)
		}
		n := math.Floor((stop-start)/step+1e-9) + 1
		if n > MaxAxisPoints {
			return nil, simerr.Invalid("range %q has %.0f points (max %d)", s, n, MaxAxisPoints)
		}
		out := make([]float64, int(n))
		for i := range out {
			out[i] = start + float64(i)*step
		}
		return out, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) > MaxAxisPoints {
		return nil, simerr.Invalid("axis has %d values (max %d)", len(parts), MaxAxisPoints)
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, simerr.Invalid("invalid axis value %q", p)
		}
		out = append(out, f)
	}
	return out, nil
}

// ParseModels reads a comma-separated list of detection model names into
// the form DetectionConfig.Models holds.
func ParseModels(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
