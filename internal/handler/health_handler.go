package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Checker is a dependency that can report its availability
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Ready returns readiness check with dependencies, checked in parallel
func Ready(checks map[string]Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			results = make(map[string]HealthCheckResult, len(checks))
		)
		for name, checker := range checks {
			wg.Add(1)
			go func(name string, checker Checker) {
				defer wg.Done()
				result := runCheck(ctx, checker)
				mu.Lock()
				results[name] = result
				mu.Unlock()
			}(name, checker)
		}
		wg.Wait()

		allHealthy := true
		for _, result := range results {
			if result.Status != "up" {
				allHealthy = false
			}
		}

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    results,
		}

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			response["status"] = "ready"
			w.WriteHeader(http.StatusOK)
		} else {
			response["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}

func runCheck(ctx context.Context, checker Checker) HealthCheckResult {
	start := time.Now()
	err := checker.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}
	return HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
	}
}
