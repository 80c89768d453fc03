package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
)

func TestRequestContext_PropagatesRequestID(t *testing.T) {
	handler := chimiddleware.RequestID(RequestContext(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/chat/getChatsByUser/alice", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(chimiddleware.RequestIDHeader))
}

func TestRequestContext_WithoutRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	RequestContext(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get(chimiddleware.RequestIDHeader))
}
