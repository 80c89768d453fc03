package middleware

import (
	"context"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxLimiters     = 10000
	cleanupInterval = 5 * time.Minute
	limiterTTL      = 15 * time.Minute
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per client host. Idle buckets expire
// after limiterTTL and the table is trimmed to half of maxLimiters when
// it overflows.
type RateLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a per-client limiter. The cleanup goroutine runs
// until ctx is cancelled or Stop is called.
func NewRateLimiter(ctx context.Context, requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop(ctx)
	return rl
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-limiterTTL)
	for key, entry := range rl.limiters {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
	if len(rl.limiters) <= maxLimiters {
		return
	}

	// Over capacity: keep only the most recently seen half.
	keys := make([]string, 0, len(rl.limiters))
	for key := range rl.limiters {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return rl.limiters[a].lastAccess.Compare(rl.limiters[b].lastAccess)
	})
	for _, key := range keys[:len(keys)-maxLimiters/2] {
		delete(rl.limiters, key)
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Size reports how many client limiters are currently tracked.
func (rl *RateLimiter) Size() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastAccess = now
	return entry.limiter
}

// Middleware rejects requests over the client's budget with 429 and a JSON
// error body.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.getLimiter(clientKey(r)).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey strips the port so every connection from one host shares a
// bucket. RealIP runs first in the chain and rewrites RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
