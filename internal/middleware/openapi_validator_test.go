package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakeso-chat/api"
)

const validChatID = "64b7f0c2a1b2c3d4e5f60718"

func TestOpenAPIDocumentIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.OpenAPI)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))

	for _, path := range []string{
		"/api/chat/createChat",
		"/api/chat/{chatId}",
		"/api/chat/{chatId}/addMessage",
		"/api/chat/{chatId}/participant",
		"/api/chat/getChatsByUser/{username}",
		"/ws",
		"/health",
		"/health/ready",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "path %s should be documented", path)
	}

	for _, schema := range []string{"ErrorResponse", "PopulatedChat", "Message", "ChatUpdate", "CreateChatRequest", "InitialMessageRequest"} {
		assert.Contains(t, doc.Components.Schemas, schema)
	}
}

func TestNewOpenAPIRouter_InvalidDocument(t *testing.T) {
	_, err := NewOpenAPIRouter([]byte("not: [valid"))
	assert.Error(t, err)
}

func validatedRouter(t *testing.T) (*chi.Mux, *bool) {
	t.Helper()
	reached := false
	r := chi.NewRouter()
	r.Use(OpenAPIValidator(DefaultOpenAPIValidatorConfig(true)))
	hit := func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}
	r.Post("/api/chat/createChat", hit)
	r.Get("/api/chat/{chatId}", hit)
	r.Post("/api/chat/{chatId}/addMessage", hit)
	r.Get("/health", hit)
	r.Get("/undocumented", hit)
	return r, &reached
}

func TestOpenAPIValidator_Requests(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantStatus  int
		wantReached bool
	}{
		{
			name:        "valid create chat",
			method:      http.MethodPost,
			path:        "/api/chat/createChat",
			body:        `{"participants":["alice","bob"]}`,
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:        "initial message with kind",
			method:      http.MethodPost,
			path:        "/api/chat/createChat",
			body:        `{"participants":["alice"],"messages":[{"msg":"hi","msgFrom":"alice","type":"global"}]}`,
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:       "initial message kind too long",
			method:     http.MethodPost,
			path:       "/api/chat/createChat",
			body:       `{"participants":["alice"],"messages":[{"msg":"hi","msgFrom":"alice","type":"` + strings.Repeat("k", 33) + `"}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "create chat without participants",
			method:     http.MethodPost,
			path:       "/api/chat/createChat",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "message without text",
			method:     http.MethodPost,
			path:       "/api/chat/" + validChatID + "/addMessage",
			body:       `{"msgFrom":"alice"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed chat id",
			method:     http.MethodGet,
			path:       "/api/chat/not-an-id",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "valid chat id",
			method:      http.MethodGet,
			path:        "/api/chat/" + validChatID,
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:        "skipped path",
			method:      http.MethodGet,
			path:        "/health",
			wantStatus:  http.StatusOK,
			wantReached: true,
		},
		{
			name:       "undocumented path",
			method:     http.MethodGet,
			path:       "/undocumented",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, reached := validatedRouter(t)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.Equal(t, tt.wantReached, *reached)
			if !tt.wantReached {
				assert.Contains(t, rr.Body.String(), `"error"`)
			}
		})
	}
}

func TestOpenAPIValidator_Disabled(t *testing.T) {
	called := false
	handler := OpenAPIValidator(DefaultOpenAPIValidatorConfig(false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.True(t, called)
}

func TestOpenAPIValidator_BrokenDocumentPassesThrough(t *testing.T) {
	called := false
	cfg := DefaultOpenAPIValidatorConfig(true)
	cfg.Document = []byte("{")
	handler := OpenAPIValidator(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.True(t, called)
}

func TestShouldSkipPath(t *testing.T) {
	skip := []string{"/health", "/metrics", "/ws"}
	assert.True(t, shouldSkipPath("/health/ready", skip))
	assert.True(t, shouldSkipPath("/metrics", skip))
	assert.True(t, shouldSkipPath("/ws", skip))
	assert.False(t, shouldSkipPath("/api/chat/createChat", skip))
}
