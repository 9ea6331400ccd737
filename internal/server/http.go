package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/alfredjeanlab/eventrelay/internal/bus"
)

// maxBodyBytes caps the size of a student request body.
const maxBodyBytes = 1 << 20

// Response bodies of the publish endpoints.
const (
	msgPublished       = "Event published successfully."
	msgInvalidStudent  = "Invalid student data."
	msgPublishFailed   = "Failed to publish event."
	msgBatchFailed     = "Failed to publish some events."
	msgInternalError   = "Internal Server Error."
	msgBatchPublishedF = "%d events published successfully."
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except health and metrics) must include
// a valid Authorization: Bearer <token> header. metrics may be nil.
func (s *RelayServer) NewHTTPHandler(authToken string, metrics *HTTPMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/students", s.handlePublishStudent)
	mux.HandleFunc("POST /v1/students/batch", s.handlePublishBatch)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	return metrics.Middleware(AuthMiddleware(authToken, mux))
}

// handleHealth handles GET /v1/health.
func (s *RelayServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePublishStudent handles POST /v1/students.
func (s *RelayServer) handlePublishStudent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, msgInvalidStudent)
		return
	}

	if _, err := s.PublishStudent(r.Context(), body); err != nil {
		switch {
		case isInputError(err):
			s.logger.Warn("rejected student", "error", err)
			writeText(w, http.StatusBadRequest, msgInvalidStudent)
		case errors.Is(err, bus.ErrPublishFailed):
			s.logger.Error("failed to publish event", "error", err)
			writeText(w, http.StatusInternalServerError, msgPublishFailed)
		default:
			s.logger.Error("publish error", "error", err)
			writeText(w, http.StatusInternalServerError, msgInternalError)
		}
		return
	}
	writeText(w, http.StatusOK, msgPublished)
}

// handlePublishBatch handles POST /v1/students/batch. The body is ignored.
func (s *RelayServer) handlePublishBatch(w http.ResponseWriter, r *http.Request) {
	ack, err := s.PublishBatch(r.Context())
	if err != nil {
		if errors.Is(err, bus.ErrPublishFailed) {
			s.logger.Error("failed to publish some events", "error", err)
			writeText(w, http.StatusInternalServerError, msgBatchFailed)
			return
		}
		s.logger.Error("batch publish error", "error", err)
		writeText(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf(msgBatchPublishedF, ack.Accepted))
}

// writeText writes a plain-text response with the given status code.
func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
