package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/detection"
	"github.com/banshee-data/radarsim/internal/simerr"
)

func intParam(q url.Values, key string, def int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, simerr.Invalid("invalid %q parameter %q", key, v)
	}
	return n, nil
}

// integrationParam reads the pulse count "n", bounded to what the SNR
// tables cover.
func integrationParam(q url.Values) (int, error) {
	n, err := intParam(q, "n", 1)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > detection.DefaultMaxN {
		return 0, simerr.Invalid("\"n\" must be in [1, %d], got %d", detection.DefaultMaxN, n)
	}
	return n, nil
}

func modelParam(q url.Values, key string, def detection.Model) (detection.Model, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	return detection.ParseModel(v)
}

// floatList parses an axis parameter with config.ParseAxis.
func floatList(q url.Values, key string, def []float64) ([]float64, error) {
	v := q.Get(key)
	if v == "" {
		return def, nil
	}
	out, err := config.ParseAxis(v)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", key, err)
	}
	return out, nil
}

// nullable replaces NaN with nil so the grid survives JSON encoding.
func nullable(grid [][]float64) (out [][]*float64, failed int) {
	out = make([][]*float64, len(grid))
	for i, row := range grid {
		out[i] = make([]*float64, len(row))
		for j := range row {
			if math.IsNaN(row[j]) {
				failed++
				continue
			}
			out[i][j] = &row[j]
		}
	}
	return out, failed
}
