package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/db"
	"github.com/banshee-data/radarsim/internal/detection"
	"github.com/banshee-data/radarsim/internal/httputil"
	"github.com/banshee-data/radarsim/internal/report"
	"github.com/banshee-data/radarsim/internal/security"
	"github.com/banshee-data/radarsim/internal/simerr"
)

var (
	defaultSNRAxis = []float64{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20}
	defaultROCPfas = []float64{1e-4, 1e-6, 1e-8}
)

type pdResponse struct {
	Model detection.Model `json:"model"`
	N     int             `json:"n"`
	Pfa   []float64       `json:"pfa"`
	SNR   []float64       `json:"snr_db"`
	Pd    [][]float64     `json:"pd"`
}

type snrResponse struct {
	Model    detection.Model `json:"model"`
	N        int             `json:"n"`
	Pfa      []float64       `json:"pfa"`
	Pd       []float64       `json:"pd"`
	SNR      [][]*float64    `json:"snr_db"`
	Failures int             `json:"failures,omitempty"`
}

type tableResponse struct {
	ID    string              `json:"table_id,omitempty"`
	Table *detection.SNRTable `json:"table"`
}

// pdQuery reads the axes shared by the Pd and ROC endpoints.
func (s *Server) pdQuery(r *http.Request, pfaDefault []float64) (pfas, snrs []float64, n int, m detection.Model, err error) {
	q := r.URL.Query()
	if pfas, err = floatList(q, "pfa", pfaDefault); err != nil {
		return
	}
	if snrs, err = floatList(q, "snr", defaultSNRAxis); err != nil {
		return
	}
	if n, err = integrationParam(q); err != nil {
		return
	}
	m, err = modelParam(q, "model", detection.Swerling1)
	return
}

func (s *Server) defaultPfa() float64 {
	if s.scenario == nil {
		return config.DetectionConfig{}.GetPfa()
	}
	return s.scenario.Detection.GetPfa()
}

func (s *Server) defaultPd() float64 {
	if s.scenario == nil {
		return config.DetectionConfig{}.GetPd()
	}
	return s.scenario.Detection.GetPd()
}

// handlePd serves GET /api/detection/pd?pfa=&snr=&n=&model=.
func (s *Server) handlePd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	pfas, snrs, n, m, err := s.pdQuery(r, []float64{s.defaultPfa()})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	grid, err := detection.PdGrid(r.Context(), pfas, snrs, n, m)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSONOK(w, pdResponse{Model: m, N: n, Pfa: pfas, SNR: snrs, Pd: grid})
}

// handleRequiredSNR serves GET /api/detection/snr?pd=&pfa=&n=&model=. Points
// without a solution are null; if none has one the request fails.
func (s *Server) handleRequiredSNR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	pfas, err := floatList(q, "pfa", []float64{s.defaultPfa()})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pds, err := floatList(q, "pd", []float64{s.defaultPd()})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := integrationParam(q)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := modelParam(q, "model", detection.Swerling1)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	grid, gridErr := detection.RequiredSNRGrid(r.Context(), detection.DefaultSolver, pfas, pds, n, m)
	if grid == nil {
		httputil.WriteError(w, gridErr)
		return
	}
	if errors.Is(gridErr, simerr.ErrInvalidConfig) {
		httputil.WriteError(w, gridErr)
		return
	}
	snr, failed := nullable(grid)
	if gridErr != nil && failed == len(pfas)*len(pds) {
		httputil.WriteError(w, gridErr)
		return
	}
	httputil.WriteJSONOK(w, snrResponse{Model: m, N: n, Pfa: pfas, Pd: pds, SNR: snr, Failures: failed})
}

// handleROC serves GET /api/detection/roc as an HTML chart, or CSV with
// format=csv.
func (s *Server) handleROC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	pfas, snrs, n, m, err := s.pdQuery(r, defaultROCPfas)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	grid, err := detection.PdGrid(r.Context(), pfas, snrs, n, m)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		title := fmt.Sprintf("Pd vs SNR, %v, N=%d", m, n)
		httputil.WriteBody(w, "text/html; charset=utf-8", func(out io.Writer) error {
			return report.ROCChart(out, title, pfas, snrs, grid)
		})
	case "csv":
		httputil.WriteBody(w, "text/csv", func(out io.Writer) error {
			return report.WritePdGridCSV(out, pfas, snrs, grid)
		})
	default:
		httputil.BadRequest(w, fmt.Sprintf("unknown format %q", format))
	}
}

// handleTables serves GET (list stored tables) and POST (build, and store
// when a store is configured) on /api/detection/tables.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !s.requireStore(w) {
			return
		}
		tables, err := s.db.ListSNRTables()
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if tables == nil {
			tables = []db.SNRTableInfo{}
		}
		httputil.WriteJSONOK(w, tables)
	case http.MethodPost:
		var req config.DetectionConfig
		if r.ContentLength != 0 {
			if err := httputil.DecodeJSON(r, &req); err != nil {
				httputil.WriteError(w, err)
				return
			}
		}
		if err := req.Validate(); err != nil {
			httputil.WriteError(w, err)
			return
		}
		if req.GetMaxN() > detection.DefaultMaxN {
			httputil.WriteError(w, simerr.Invalid("max_n %d exceeds %d", req.GetMaxN(), detection.DefaultMaxN))
			return
		}
		models, _ := req.GetModels()
		t, err := detection.BuildSNRTable(r.Context(), req.GetPfa(), req.GetPd(), models, req.GetMaxN())
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if s.db == nil {
			httputil.WriteJSONOK(w, tableResponse{Table: t})
			return
		}
		id, err := s.db.SaveSNRTable(t)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, tableResponse{ID: id, Table: t})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleTable serves GET and DELETE on /api/detection/tables/{id}. GET
// accepts format=json (default), csv or html.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/detection/tables/")
	if id == "" || strings.Contains(id, "/") {
		httputil.NotFound(w, "table not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, err := s.db.GetSNRTable(id)
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "table not found")
			return
		}
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		switch format := r.URL.Query().Get("format"); format {
		case "", "json":
			httputil.WriteJSONOK(w, tableResponse{ID: id, Table: t})
		case "csv":
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", security.SanitizeFilename("snr_table_"+id)))
			httputil.WriteBody(w, "text/csv", func(out io.Writer) error {
				return report.WriteSNRTableCSV(out, t)
			})
		case "html":
			httputil.WriteBody(w, "text/html; charset=utf-8", func(out io.Writer) error {
				return report.SNRTableChart(out, t)
			})
		default:
			httputil.BadRequest(w, fmt.Sprintf("unknown format %q", format))
		}
	case http.MethodDelete:
		err := s.db.DeleteSNRTable(id)
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "table not found")
			return
		}
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httputil.MethodNotAllowed(w)
	}
}
