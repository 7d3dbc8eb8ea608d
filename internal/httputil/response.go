package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/banshee-data/radarsim/internal/simerr"
)

// MaxBodyBytes caps request bodies decoded by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

// WriteJSONOK writes a successful JSON response (200 OK).
func WriteJSONOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONError writes a JSON error response with the given status code and message.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteError maps err to a status: invalid configuration is 400, no
// solution is 422, anything else 500. The error kind is echoed in the body.
func WriteError(w http.ResponseWriter, err error) {
	status, kind := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, simerr.ErrInvalidConfig):
		status, kind = http.StatusBadRequest, "invalid_config"
	case errors.Is(err, simerr.ErrNoSolution):
		status, kind = http.StatusUnprocessableEntity, "no_solution"
	}
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}
	WriteJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// BadRequest writes a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusBadRequest, msg)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusNotFound, msg)
}

// DecodeJSON decodes a size-limited request body into dst, rejecting unknown
// fields.
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return simerr.Invalid("invalid request body: %v", err)
	}
	return nil
}

// WriteBody writes raw content such as HTML, CSV or PNG.
func WriteBody(w http.ResponseWriter, contentType string, render func(io.Writer) error) {
	// Render first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		WriteError(w, fmt.Errorf("render %s: %w", contentType, err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("failed to write %s response: %v", contentType, err)
	}
}
