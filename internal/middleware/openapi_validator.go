package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"fakeso-chat/api"
)

// OpenAPIValidatorConfig holds configuration for OpenAPI validation middleware
type OpenAPIValidatorConfig struct {
	// Enabled controls whether validation is active
	Enabled bool
	// Document is the raw OpenAPI 3 document
	Document []byte
	// ValidateRequests enables request validation
	ValidateRequests bool
	// ValidateResponses enables response validation (impacts performance)
	ValidateResponses bool
	// SkipPaths are path prefixes that bypass validation
	SkipPaths []string
}

// DefaultOpenAPIValidatorConfig validates requests against the embedded API document.
func DefaultOpenAPIValidatorConfig(enabled bool) *OpenAPIValidatorConfig {
	return &OpenAPIValidatorConfig{
		Enabled:           enabled,
		Document:          api.OpenAPI,
		ValidateRequests:  true,
		ValidateResponses: false,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/ws",
		},
	}
}

// NewOpenAPIRouter parses and validates doc and builds a route matcher for it.
func NewOpenAPIRouter(doc []byte) (routers.Router, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(doc)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	router, err := gorillamux.NewRouter(swagger)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return router, nil
}

// OpenAPIValidator creates a middleware that validates HTTP requests and responses
// against an OpenAPI 3.0 document. A document that fails to load disables validation.
func OpenAPIValidator(config *OpenAPIValidatorConfig) func(next http.Handler) http.Handler {
	if config == nil {
		config = DefaultOpenAPIValidatorConfig(true)
	}

	noop := func(next http.Handler) http.Handler { return next }

	if !config.Enabled {
		slog.Info("OpenAPI validation disabled")
		return noop
	}

	router, err := NewOpenAPIRouter(config.Document)
	if err != nil {
		slog.Error("OpenAPI validation unavailable", slog.String("error", err.Error()))
		return noop
	}

	slog.Info("OpenAPI validation enabled",
		slog.Bool("validate_requests", config.ValidateRequests),
		slog.Bool("validate_responses", config.ValidateResponses))

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || shouldSkipPath(r.URL.Path, config.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				if config.ValidateRequests {
					slog.Warn("request path not found in OpenAPI document",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path))
					writeValidationError(w, http.StatusNotFound, fmt.Sprintf("Unknown route: %s %s", r.Method, r.URL.Path))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			requestInput := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}

			if config.ValidateRequests {
				if err := openapi3filter.ValidateRequest(r.Context(), requestInput); err != nil {
					slog.Warn("request validation failed",
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()))
					writeValidationError(w, http.StatusBadRequest, requestValidationMessage(err))
					return
				}
			}

			if !config.ValidateResponses {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(recorder, r)

			responseInput := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: requestInput,
				Status:                 recorder.statusCode,
				Header:                 recorder.Header(),
				Body:                   io.NopCloser(bytes.NewReader(recorder.body)),
				Options:                options,
			}
			// The response is already written, so failures are only logged.
			if err := openapi3filter.ValidateResponse(r.Context(), responseInput); err != nil {
				slog.Warn("response validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", recorder.statusCode),
					slog.String("error", err.Error()))
			}
		})
	}
}

// requestValidationMessage keeps the client-facing message short: the
// first line of the kin-openapi error, which names the failing field.
func requestValidationMessage(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return "Request validation failed: " + msg
}

func shouldSkipPath(path string, skipPaths []string) bool {
	for _, skipPath := range skipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

func writeValidationError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// responseRecorder wraps http.ResponseWriter to capture response data
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body = append(r.body, b...)
	return r.ResponseWriter.Write(b)
}
