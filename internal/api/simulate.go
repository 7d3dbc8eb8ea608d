package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/db"
	"github.com/banshee-data/radarsim/internal/httputil"
	"github.com/banshee-data/radarsim/internal/pipeline"
	"github.com/banshee-data/radarsim/internal/report"
	"github.com/banshee-data/radarsim/internal/simerr"
)

const (
	defaultImageSize = 200
	maxImageSize     = 1000
)

type simulateResponse struct {
	RunID   string           `json:"run_id,omitempty"`
	Summary pipeline.Summary `json:"summary"`
}

// scenarioFromRequest decodes a posted scenario, or falls back to the
// server's scenario for GET and empty bodies.
func (s *Server) scenarioFromRequest(r *http.Request) (*config.ScenarioConfig, error) {
	if r.Method != http.MethodPost || r.Body == nil || r.ContentLength == 0 {
		if s.scenario == nil {
			return nil, simerr.Invalid("request has no scenario and the server has no default")
		}
		return s.scenario, nil
	}
	cfg := &config.ScenarioConfig{}
	if err := httputil.DecodeJSON(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// handleRadarSummary serves the derived scalars of the default scenario
// (GET) or of a posted one (POST).
func (s *Server) handleRadarSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	cfg, err := s.scenarioFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rd, err := cfg.Radar()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, rd.Summary())
}

// handleSimulate serves POST /api/simulate. The run is recorded when a store
// is configured.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	cfg, err := s.scenarioFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := pipeline.Run(r.Context(), cfg)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := simulateResponse{Summary: res.Summary()}
	if s.db != nil {
		run, err := res.Record()
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if err := s.db.RecordRun(run); err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp.RunID = run.ID
	}
	httputil.WriteJSONOK(w, resp)
}

// handleHeatmap serves a PNG of one processed map:
// kind=range_doppler (default, channel ch), angle_range or cartesian
// (nx×ny pixels). GET uses the default scenario, POST a posted one.
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	kind := q.Get("kind")
	ch, err := intParam(q, "ch", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nx, err := intParam(q, "nx", defaultImageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ny, err := intParam(q, "ny", defaultImageSize)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if nx > maxImageSize || ny > maxImageSize {
		httputil.WriteError(w, simerr.Invalid("image size %dx%d exceeds %d", nx, ny, maxImageSize))
		return
	}
	switch kind {
	case "", "range_doppler", "angle_range", "cartesian":
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown heatmap kind %q", kind))
		return
	}

	cfg, err := s.scenarioFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := pipeline.Run(r.Context(), cfg)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var h *report.Heatmap
	switch kind {
	case "", "range_doppler":
		if res.RangeDoppler == nil {
			httputil.WriteError(w, simerr.Invalid("%v waveform has no range-Doppler map", res.Radar.Waveform()))
			return
		}
		if channels, _, _ := res.RangeDoppler.Dims(); ch < 0 || ch >= channels {
			httputil.WriteError(w, simerr.Invalid("channel %d out of range [0, %d)", ch, channels))
			return
		}
		h = report.RangeDopplerHeatmap(res.RangeDoppler, ch)
	case "angle_range", "cartesian":
		if res.AngleRange == nil {
			httputil.WriteError(w, simerr.Invalid("scenario has no angle-range map (needs a chirp or coded waveform and two or more channels)"))
			return
		}
		if kind == "angle_range" {
			h = report.AngleRangeHeatmap(res.AngleRange)
			break
		}
		img, err := res.AngleRange.Cartesian(nx, ny)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		h = report.CartesianHeatmap(img)
	}
	httputil.WriteBody(w, "image/png", h.WritePNG)
}

// handleRuns serves GET /api/runs?limit=.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}
	limit, err := intParam(r.URL.Query(), "limit", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if runs == nil {
		runs = []db.SimulationRun{}
	}
	httputil.WriteJSONOK(w, runs)
}

// handleRun serves GET /api/runs/{id}.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	run, err := s.db.GetRun(id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, run)
}
