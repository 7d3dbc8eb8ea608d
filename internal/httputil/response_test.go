package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/radarsim/internal/simerr"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestWriteJSONError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusBadRequest, "test error")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s, want application/json", ct)
	}
	if resp := decodeError(t, rec); resp.Error != "test error" {
		t.Errorf("error = %s, want 'test error'", resp.Error)
	}
}

func TestWriteJSONOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"count": 42})

	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if rec.Code != http.StatusOK || resp["count"] != 42 {
		t.Errorf("got %d %v", rec.Code, resp)
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{simerr.Invalid("bad window"), http.StatusBadRequest, "invalid_config"},
		{fmt.Errorf("wrapped: %w", simerr.NoSolution("no root")), http.StatusUnprocessableEntity, "no_solution"},
		{errors.New("disk full"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, tt.err)
		if rec.Code != tt.status {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.status)
		}
		if resp := decodeError(t, rec); resp.Kind != tt.kind || resp.Error != tt.err.Error() {
			t.Errorf("%v: body = %+v", tt.err, resp)
		}
	}
}

func TestStatusHelpers(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		write  func(http.ResponseWriter)
		status int
	}{
		{MethodNotAllowed, http.StatusMethodNotAllowed},
		{func(w http.ResponseWriter) { BadRequest(w, "x") }, http.StatusBadRequest},
		{func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		tt.write(rec)
		if rec.Code != tt.status {
			t.Errorf("status = %d, want %d", rec.Code, tt.status)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var dst struct {
		Pfa float64 `json:"pfa"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pfa": 1e-6}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Pfa != 1e-6 {
		t.Errorf("DecodeJSON = %v, %+v", err, dst)
	}

	for _, body := range []string{`{"pfa": "x"}`, `{"pd": 0.9}`, `{`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := DecodeJSON(req, &dst); !errors.Is(err, simerr.ErrInvalidConfig) {
			t.Errorf("DecodeJSON(%s) error = %v", body, err)
		}
	}
}

func TestWriteBody(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteBody(rec, "text/csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "N,Real\n")
		return err
	})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" || rec.Body.String() != "N,Real\n" {
		t.Errorf("got %d %q %q", rec.Code, rec.Header().Get("Content-Type"), rec.Body.String())
	}

	rec = httptest.NewRecorder()
	WriteBody(rec, "image/png", func(w io.Writer) error {
		io.WriteString(w, "partial")
		return simerr.Invalid("heatmap too small")
	})
	if rec.Code != http.StatusBadRequest || strings.Contains(rec.Body.String(), "partial") {
		t.Errorf("failed render should be a clean JSON error, got %d %q", rec.Code, rec.Body.String())
	}
}
