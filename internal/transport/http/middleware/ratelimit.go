package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/IgorGrieder/atalho/internal/constants"
	"github.com/IgorGrieder/atalho/pkg/httputils"
)

// FixedWindowLimiter enforces a simple counter per caller per fixed time
// window, in process memory. Counters reset when the window rolls over;
// restarting the process resets them too, which is acceptable for an
// abuse guard on link creation.
type FixedWindowLimiter struct {
	limit  int64
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	starts map[string]time.Time
	counts map[string]int64
}

func NewFixedWindowLimiter(limitPerWindow int, window time.Duration) *FixedWindowLimiter {
	if limitPerWindow <= 0 {
		limitPerWindow = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		limit:  int64(limitPerWindow),
		window: window,
		now:    time.Now,
		starts: make(map[string]time.Time),
		counts: make(map[string]int64),
	}
}

// Allow increments the caller's counter and reports whether it is still
// within the window's budget.
func (l *FixedWindowLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	start, ok := l.starts[key]
	if !ok || now.Sub(start) >= l.window {
		l.starts[key] = now
		l.counts[key] = 0
	}

	l.counts[key]++
	return l.counts[key] <= l.limit
}

func RateLimitMiddleware(limiter *FixedWindowLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(rateLimitKey(r)) {
				httputils.WriteAPIError(w, r, constants.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader)); apiKey != "" {
		return "api_key:" + apiKey
	}

	// Fallback: use client IP (best-effort).
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:unknown"
}
