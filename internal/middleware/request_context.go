package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"fakeso-chat/internal/observability"
)

// RequestContext copies chi's request id into the logging context so
// observability.FromContext tags every log line of the request. It must
// run after chimiddleware.RequestID.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set(chimiddleware.RequestIDHeader, reqID)
			r = r.WithContext(observability.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
