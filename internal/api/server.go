package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/radarsim/internal/config"
	"github.com/banshee-data/radarsim/internal/db"
	"github.com/banshee-data/radarsim/internal/httputil"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server exposes detection statistics and scenario simulation over HTTP.
// The store is optional; without it nothing is persisted and the listing
// endpoints answer 503.
type Server struct {
	db       *db.DB
	scenario *config.ScenarioConfig
}

// NewServer returns a server that simulates scenario when a request carries
// no scenario of its own.
func NewServer(database *db.DB, scenario *config.ScenarioConfig) *Server {
	return &Server{
		db:       database,
		scenario: scenario,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/detection/pd", s.handlePd)
	mux.HandleFunc("/api/detection/snr", s.handleRequiredSNR)
	mux.HandleFunc("/api/detection/roc", s.handleROC)
	mux.HandleFunc("/api/detection/tables", s.handleTables)
	mux.HandleFunc("/api/detection/tables/", s.handleTable)
	mux.HandleFunc("/api/radar/summary", s.handleRadarSummary)
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/api/heatmap", s.handleHeatmap)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRun)
	return mux
}

// Handler returns the routes wrapped in LoggingMiddleware.
func (s *Server) Handler() http.Handler {
	return LoggingMiddleware(s.ServeMux())
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.db == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "results store is disabled")
		return false
	}
	return true
}
