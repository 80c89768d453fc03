package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// AssertJSONError fails if the response doesn't carry the status and an error field with the expected message
func AssertJSONError(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMsg string) {
	t.Helper()
	if w.Code != expectedStatus {
		t.Errorf("expected status %d, got %d. Body: %s", expectedStatus, w.Code, w.Body.String())
	}

	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode JSON error: %v. Body: %s", err, w.Body.String())
	}
	if !strings.Contains(body.Error, expectedMsg) {
		t.Errorf("expected error message %q in response, got: %q", expectedMsg, body.Error)
	}
}

// NewJSONRequest creates a new HTTP request with JSON body
func NewJSONRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRawJSONRequest creates a new HTTP request with a literal JSON body
func NewRawJSONRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes JSON response body into the given type
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode JSON response: %v. Body: %s", err, w.Body.String())
	}
	return result
}
