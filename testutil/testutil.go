// Package testutil provides a mock Orb API server and assertion helpers for
// tests of code that uses the orb client.
package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/broady/orb/internal/apierror"
)

// RecordedRequest is a request received by a [Server].
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is an httptest server that routes by path pattern and records every
// request it receives. Patterns use chi syntax, e.g. "/customers/{id}".
type Server struct {
	*httptest.Server

	router chi.Router

	mu       sync.Mutex
	requests []RecordedRequest
}

// ServerOption configures a [Server].
type ServerOption func(chi.Router)

// WithRateLimit makes the server answer 429 once more than n requests arrive
// within window.
func WithRateLimit(n int, window time.Duration) ServerOption {
	return func(r chi.Router) {
		r.Use(httprate.Limit(n, window, httprate.WithKeyFuncs(func(*http.Request) (string, error) {
			return "all", nil
		})))
	}
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	s := &Server{router: chi.NewRouter()}
	s.router.Use(s.record)
	for _, opt := range opts {
		opt(s.router)
	}
	s.Server = httptest.NewServer(s.router)
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the URL to pass to option.WithBaseURL.
func (s *Server) BaseURL() string {
	return s.URL + "/"
}

// Handle registers h for method and pattern.
func (s *Server) Handle(method, pattern string, h http.HandlerFunc) {
	s.router.Method(method, pattern, h)
}

// JSON registers a handler that always answers with status and body.
func (s *Server) JSON(method, pattern string, status int, body string) {
	s.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, failing the test if there is none.
func (s *Server) LastRequest(t *testing.T) RecordedRequest {
	t.Helper()
	reqs := s.Requests()
	if len(reqs) == 0 {
		t.Fatal("expected at least one request, got none")
	}
	return reqs[len(reqs)-1]
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// AssertStatus checks that err is an API error with the expected status code.
func AssertStatus(t *testing.T, err error, expectedStatus int) *apierror.Error {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected API error with status %d, got %v", expectedStatus, err)
	}
	if apiErr.StatusCode != expectedStatus {
		t.Errorf("expected status %d, got %d\nBody: %s", expectedStatus, apiErr.StatusCode, apiErr.Body)
	}
	return apiErr
}

// AssertErrorKind checks that err is an API error of the expected kind.
func AssertErrorKind(t *testing.T, err error, expectedKind apierror.Kind) {
	t.Helper()
	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected API error of kind %s, got %v", expectedKind, err)
	}
	if apiErr.Kind != expectedKind {
		t.Errorf("expected kind %s, got %s (status %d)", expectedKind, apiErr.Kind, apiErr.StatusCode)
	}
}

// AssertJSONBody compares the request body with expected as JSON, ignoring
// formatting and key order.
func AssertJSONBody(t *testing.T, req RecordedRequest, expected string) {
	t.Helper()

	var expectedData, actualData any
	if err := json.Unmarshal([]byte(expected), &expectedData); err != nil {
		t.Fatalf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal(req.Body, &actualData); err != nil {
		t.Fatalf("failed to decode request body: %v\nBody: %s", err, req.Body)
	}

	expectedStr, _ := json.MarshalIndent(expectedData, "", "  ")
	actualStr, _ := json.MarshalIndent(actualData, "", "  ")

	if string(expectedStr) != string(actualStr) {
		t.Errorf("body mismatch:\nExpected:\n%s\nActual:\n%s", expectedStr, actualStr)
	}
}

// AssertHeader checks that a request header has the expected value.
func AssertHeader(t *testing.T, req RecordedRequest, key, expectedValue string) {
	t.Helper()
	actual := req.Header.Get(key)
	if actual != expectedValue {
		t.Errorf("expected header %s=%s, got %s", key, expectedValue, actual)
	}
}

// AssertQuery checks that a query parameter has the expected value.
func AssertQuery(t *testing.T, req RecordedRequest, key, expectedValue string) {
	t.Helper()
	actual := req.Query.Get(key)
	if actual != expectedValue {
		t.Errorf("expected query %s=%s, got %s", key, expectedValue, actual)
	}
}

// DecodeJSON decodes the request body into the provided value.
func DecodeJSON(t *testing.T, req RecordedRequest, v any) {
	t.Helper()
	if err := json.Unmarshal(req.Body, v); err != nil {
		t.Fatalf("failed to decode request body: %v\nBody: %s", err, req.Body)
	}
}
