package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/eventrelay/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", token)
}

func TestHTTPClient_PublishStudent(t *testing.T) {
	h := &testHandler{responseBody: "Event published successfully."}
	c := newTestClient(t, h, "")

	s := model.Student{StudentID: "123456", Firstname: "Ada", Lastname: "Lovelace", DateOfBirth: "1995-12-10"}
	msg, err := c.PublishStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("PublishStudent() error = %v", err)
	}
	if msg != "Event published successfully." {
		t.Errorf("message = %q", msg)
	}
	if h.method != http.MethodPost || h.path != "/v1/students" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("Content-Type = %q", h.contentType)
	}

	var sent model.Student
	if err := json.Unmarshal([]byte(h.body), &sent); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if sent != s {
		t.Errorf("sent %+v, want %+v", sent, s)
	}
	if h.auth != "" {
		t.Errorf("unexpected Authorization %q", h.auth)
	}
}

func TestHTTPClient_PublishBatch(t *testing.T) {
	h := &testHandler{responseBody: "20 events published successfully."}
	c := newTestClient(t, h, "secret")

	msg, err := c.PublishBatch(context.Background())
	if err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if msg != "20 events published successfully." {
		t.Errorf("message = %q", msg)
	}
	if h.method != http.MethodPost || h.path != "/v1/students/batch" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.body != "" {
		t.Errorf("body = %q, want empty", h.body)
	}
	if h.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", h.auth)
	}
}

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c := newTestClient(t, h, "")

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.method != http.MethodGet || h.path != "/v1/health" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if status != "ok" {
		t.Errorf("status = %q, want 'ok'", status)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	for _, tc := range []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"PlainText400", http.StatusBadRequest, "Invalid student data.", "Invalid student data."},
		{"PlainText500", http.StatusInternalServerError, "Failed to publish event.\n", "Failed to publish event."},
		{"JSON401", http.StatusUnauthorized, `{"error":"invalid token"}`, "invalid token"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, &testHandler{statusCode: tc.status, responseBody: tc.body}, "")

			_, err := c.PublishStudent(context.Background(), model.Student{StudentID: "1"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tc.status)
			}
			if apiErr.Message != tc.wantMessage {
				t.Errorf("message = %q, want %q", apiErr.Message, tc.wantMessage)
			}
		})
	}
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, "").Health(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure reported as APIError: %v", err)
	}
}

func TestHTTPClient_Close(t *testing.T) {
	if err := NewHTTPClient("http://localhost:0", "").Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
