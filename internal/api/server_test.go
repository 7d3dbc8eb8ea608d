package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/db"
	"github.com/banshee-data/radarsim/internal/httputil"
	"github.com/banshee-data/radarsim/internal/testutil"
	"github.com/banshee-data/radarsim/internal/units"
)

// testScenario is small enough to simulate per request: one transmitter,
// two half-wavelength receivers, 16 pulses.
const testScenario = `{
  "name": "api-test",
  "transmitter": {
    "frequency_hz": 24.125e9, "power_dbm": 10, "pulse_length_s": 80e-6,
    "bandwidth_hz": 100e6, "repetition_period_s": 100e-6, "pulses": 16,
    "channels": [{"location": [0, 0, 0]}]
  },
  "receiver": {
    "sample_rate_hz": 2e6, "noise_figure_db": 12, "rf_gain_db": 20,
    "baseband_gain_db": 30, "load_resistance_ohm": 500,
    "channels": [{"location": [0, 0, 0]}, {"location": [0.0062, 0, 0]}]
  },
  "targets": [{"kind": "static", "position": [0, 100, 0], "rcs_dbsm": 30}],
  "simulation": {"seed": 3},
  "processing": {"angle_step_deg": 2}
}`

func testConfig(t *testing.T) *config.ScenarioConfig {
	t.Helper()
	cfg, err := config.ParseScenario([]byte(testScenario))
	if err != nil {
		t.Fatalf("failed to parse test scenario: %v", err)
	}
	return cfg
}

func setupTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	dbInst, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { dbInst.Close() })
	return NewServer(dbInst, testConfig(t)), dbInst
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewTestRequest(method, target)
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := testutil.NewTestRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httputil.ErrorResponse
	decode(t, rec, &resp)
	return resp.Kind
}

func TestHandlePd(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	rec := do(t, mux, http.MethodGet, "/api/detection/pd?pfa=1e-6&snr=15&n=1&model=sw3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Model string      `json:"model"`
		Pd    [][]float64 `json:"pd"`
	}
	decode(t, rec, &resp)
	if resp.Model != "Swerling 3" {
		t.Errorf("model = %q, want Swerling 3", resp.Model)
	}
	if len(resp.Pd) != 1 || len(resp.Pd[0]) != 1 {
		t.Fatalf("pd = %v, want one value", resp.Pd)
	}
	testutil.AssertInDelta(t, "pd", resp.Pd[0][0], 0.7794461943, 1e-6)

	rec = do(t, mux, http.MethodGet, "/api/detection/pd?pfa=1e-6,1e-4&snr=0:20:5", "")
	decode(t, rec, &resp)
	if len(resp.Pd) != 2 || len(resp.Pd[0]) != 5 {
		t.Fatalf("grid shape = %dx%d, want 2x5", len(resp.Pd), len(resp.Pd[0]))
	}
	for i := 1; i < 5; i++ {
		if resp.Pd[0][i] <= resp.Pd[0][i-1] {
			t.Errorf("pd not increasing in SNR: %v", resp.Pd[0])
		}
	}
	if resp.Pd[1][2] <= resp.Pd[0][2] {
		t.Errorf("higher pfa should detect more: %v vs %v", resp.Pd[1][2], resp.Pd[0][2])
	}
}

func TestHandlePd_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"bad snr", http.MethodGet, "/api/detection/pd?snr=abc", http.StatusBadRequest},
		{"bad range", http.MethodGet, "/api/detection/pd?snr=10:0:1", http.StatusBadRequest},
		{"huge range", http.MethodGet, "/api/detection/pd?snr=0:1e6:0.01", http.StatusBadRequest},
		{"bad model", http.MethodGet, "/api/detection/pd?model=sw9", http.StatusBadRequest},
		{"bad n", http.MethodGet, "/api/detection/pd?n=0", http.StatusBadRequest},
		{"n above table size", http.MethodGet, "/api/detection/pd?n=257", http.StatusBadRequest},
		{"snr n above table size", http.MethodGet, "/api/detection/snr?n=100000", http.StatusBadRequest},
		{"roc n above table size", http.MethodGet, "/api/detection/roc?n=257", http.StatusBadRequest},
		{"largest n", http.MethodGet, "/api/detection/pd?n=256&snr=10", http.StatusOK},
		{"method", http.MethodPost, "/api/detection/pd", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.method, tt.target, "")
			testutil.AssertStatusCode(t, rec.Code, tt.status)
		})
	}
}

func TestHandleRequiredSNR(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	var resp struct {
		SNR      [][]*float64 `json:"snr_db"`
		Failures int          `json:"failures"`
	}
	rec := do(t, mux, http.MethodGet, "/api/detection/snr?pfa=1e-6&pd=0.5,0.9&model=sw5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &resp)
	if len(resp.SNR) != 1 || len(resp.SNR[0]) != 2 || resp.SNR[0][0] == nil || resp.SNR[0][1] == nil {
		t.Fatalf("snr = %v", resp.SNR)
	}
	if *resp.SNR[0][1] <= *resp.SNR[0][0] {
		t.Errorf("pd 0.9 should need more SNR than 0.5: %v vs %v", *resp.SNR[0][1], *resp.SNR[0][0])
	}

	// Pd below Pfa is already met at the bottom of the search range.
	rec = do(t, mux, http.MethodGet, "/api/detection/snr?pfa=1e-6&pd=1e-9,0.9", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("partial failure status = %d, body %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &resp)
	if resp.Failures != 1 || resp.SNR[0][0] != nil || resp.SNR[0][1] == nil {
		t.Errorf("partial failure: failures=%d snr=%v", resp.Failures, resp.SNR)
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/snr?pfa=1e-6&pd=1e-9", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if kind := errorKind(t, rec); kind != "no_solution" {
		t.Errorf("kind = %q, want no_solution", kind)
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/snr?pd=NaN", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("NaN pd status = %d, want 400", rec.Code)
	}
}

func TestHandleROC(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	rec := do(t, mux, http.MethodGet, "/api/detection/roc?snr=0:20:2&model=sw1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %s", ct)
	}
	for _, want := range []string{"Pfa=1e-06", "Pfa=1e-08", "Swerling 1"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("ROC page missing %q", want)
		}
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/roc?pfa=1e-6&snr=10,20&format=csv", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "snr_db,pfa=1e-06\n") {
		t.Errorf("csv = %d %q", rec.Code, rec.Body.String())
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/roc?format=xml", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", rec.Code)
	}
}

func TestSNRTables(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	rec := do(t, mux, http.MethodPost, "/api/detection/tables", `{"pfa": 1e-6, "pd": 0.9, "models": ["sw1", "sw3"], "max_n": 4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created tableResponse
	decode(t, rec, &created)
	if created.ID == "" || created.Table == nil || len(created.Table.N) != 4 {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/tables", "")
	var list []db.SNRTableInfo
	decode(t, rec, &list)
	if len(list) != 1 || list[0].ID != created.ID || list[0].MaxN != 4 {
		t.Errorf("list = %+v", list)
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/tables/"+created.ID, "")
	var got tableResponse
	decode(t, rec, &got)
	if len(got.Table.SNR) != 2 || got.Table.SNR[1][0] != created.Table.SNR[1][0] {
		t.Errorf("get = %+v", got.Table)
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/tables/"+created.ID+"?format=csv", "")
	if !strings.HasPrefix(rec.Body.String(), "N,Swerling 1,Swerling 3\n") {
		t.Errorf("csv = %q", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, created.ID) {
		t.Errorf("content-disposition = %q", cd)
	}

	rec = do(t, mux, http.MethodGet, "/api/detection/tables/"+created.ID+"?format=html", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Required SNR") {
		t.Errorf("html = %d", rec.Code)
	}

	rec = do(t, mux, http.MethodDelete, "/api/detection/tables/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = do(t, mux, method, "/api/detection/tables/"+created.ID, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s after delete status = %d, want 404", method, rec.Code)
		}
	}
}

func TestSNRTables_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	for _, body := range []string{
		`{"pfa": 2}`,
		`{"models": ["sw9"]}`,
		`{"max_n": 100000}`,
		`{"unknown": 1}`,
	} {
		rec := do(t, mux, http.MethodPost, "/api/detection/tables", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
	if rec := do(t, mux, http.MethodPut, "/api/detection/tables", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d", rec.Code)
	}
}

func TestWithoutStore(t *testing.T) {
	server := NewServer(nil, testConfig(t))
	mux := server.ServeMux()

	rec := do(t, mux, http.MethodPost, "/api/detection/tables", `{"models": ["real"], "max_n": 2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp tableResponse
	decode(t, rec, &resp)
	if resp.ID != "" || resp.Table == nil {
		t.Errorf("resp = %+v", resp)
	}

	for _, target := range []string{"/api/detection/tables", "/api/detection/tables/x", "/api/runs", "/api/runs/x"} {
		if rec := do(t, mux, http.MethodGet, target, ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", target, rec.Code)
		}
	}

	rec = do(t, mux, http.MethodPost, "/api/simulate", "")
	var sim simulateResponse
	decode(t, rec, &sim)
	if rec.Code != http.StatusOK || sim.RunID != "" {
		t.Errorf("simulate without store = %d %+v", rec.Code, sim)
	}
}

func TestHandleRadarSummary(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	rec := do(t, mux, http.MethodGet, "/api/radar/summary", "")
	var s struct {
		Waveform     string  `json:"waveform"`
		Pulses       int     `json:"pulses"`
		ChannelCount int     `json:"channel_count"`
		MaxRange     float64 `json:"max_range_m"`
	}
	decode(t, rec, &s)
	if s.Waveform != "chirp" || s.Pulses != 16 || s.ChannelCount != 2 || math.Abs(s.MaxRange-units.SpeedOfLight*2e6*80e-6/2e8) > 1e-6 {
		t.Errorf("summary = %+v", s)
	}

	body, err := json.Marshal(config.MustLoadDefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	rec = do(t, mux, http.MethodPost, "/api/radar/summary", string(body))
	decode(t, rec, &s)
	if s.Pulses != 256 || s.ChannelCount != 1 {
		t.Errorf("posted summary = %+v", s)
	}
}

func TestSimulateAndRuns(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	rec := do(t, mux, http.MethodPost, "/api/simulate", testScenario)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sim simulateResponse
	decode(t, rec, &sim)
	if sim.RunID == "" || sim.Summary.Seed != 3 || sim.Summary.Name != "api-test" {
		t.Fatalf("simulate = %+v", sim)
	}
	p := sim.Summary.Peaks
	if p.RangeM == nil || math.Abs(*p.RangeM-100) > 1.5 {
		t.Errorf("peak range = %v, want 100 ± 1.5", p.RangeM)
	}
	if p.AngleDeg == nil || math.Abs(*p.AngleDeg) > 10 {
		t.Errorf("peak angle = %v, want near broadside", p.AngleDeg)
	}

	rec = do(t, mux, http.MethodGet, "/api/runs", "")
	var runs []db.SimulationRun
	decode(t, rec, &runs)
	if len(runs) != 1 || runs[0].ID != sim.RunID || runs[0].Channels != 2 {
		t.Fatalf("runs = %+v", runs)
	}

	rec = do(t, mux, http.MethodGet, "/api/runs/"+sim.RunID, "")
	var run db.SimulationRun
	decode(t, rec, &run)
	if run.Seed != 3 || run.Pulses != 16 || run.PeakRangeM == nil {
		t.Errorf("run = %+v", run)
	}

	if rec := do(t, mux, http.MethodGet, "/api/runs/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d", rec.Code)
	}
	if rec := do(t, mux, http.MethodGet, "/api/runs?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestSimulate_Errors(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"malformed", http.MethodPost, "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"radar": {}}`, http.StatusBadRequest},
		{"invalid", http.MethodPost, strings.Replace(testScenario, `"sample_rate_hz": 2e6`, `"sample_rate_hz": 0`, 1), http.StatusBadRequest},
		{"bad target", http.MethodPost, strings.Replace(testScenario, `"static"`, `"teleport"`, 1), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.method, "/api/simulate", tt.body)
			testutil.AssertStatusCode(t, rec.Code, tt.status)
		})
	}

	noDefault := NewServer(nil, nil).ServeMux()
	if rec := do(t, noDefault, http.MethodPost, "/api/simulate", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("no default scenario status = %d", rec.Code)
	}
}

func TestHandleHeatmap(t *testing.T) {
	server, _ := setupTestServer(t)
	mux := server.ServeMux()
	pngMagic := []byte("\x89PNG\r\n\x1a\n")

	for _, target := range []string{
		"/api/heatmap",
		"/api/heatmap?kind=range_doppler&ch=1",
		"/api/heatmap?kind=angle_range",
		"/api/heatmap?kind=cartesian&nx=40&ny=30",
	} {
		rec := do(t, mux, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, body %s", target, rec.Code, rec.Body.String())
			continue
		}
		if rec.Header().Get("Content-Type") != "image/png" || !bytes.HasPrefix(rec.Body.Bytes(), pngMagic) {
			t.Errorf("%s: not a PNG", target)
		}
	}

	single := strings.Replace(testScenario, `{"location": [0, 0, 0]}, {"location": [0.0062, 0, 0]}`, `{"location": [0, 0, 0]}`, 1)
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"unknown kind", http.MethodGet, "/api/heatmap?kind=polar", ""},
		{"channel", http.MethodGet, "/api/heatmap?ch=2", ""},
		{"size", http.MethodGet, "/api/heatmap?kind=cartesian&nx=5000", ""},
		{"single channel", http.MethodPost, "/api/heatmap?kind=angle_range", single},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, tt.method, tt.target, tt.body)
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(io.Discard) })

	server := NewServer(nil, testConfig(t))
	rec := do(t, server.Handler(), http.MethodGet, "/api/detection/pd?model=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	line := buf.String()
	if !strings.Contains(line, statusCodeColor(http.StatusBadRequest)) || !strings.Contains(line, "/api/detection/pd?model=bogus") {
		t.Errorf("log line = %q", line)
	}
}

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code  int
		color string
	}{
		{200, colorBoldGreen},
		{301, colorYellow},
		{404, colorBoldRed},
		{500, colorBoldRed},
		{100, ""},
	}
	for _, tt := range tests {
		got := statusCodeColor(tt.code)
		if tt.color == "" {
			if got != "100" {
				t.Errorf("statusCodeColor(%d) = %q", tt.code, got)
			}
			continue
		}
		if !strings.HasPrefix(got, tt.color) || !strings.HasSuffix(got, colorReset) {
			t.Errorf("statusCodeColor(%d) = %q", tt.code, got)
		}
	}
}
