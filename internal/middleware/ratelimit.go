package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a client can go quiet before its limiter is dropped.
const idleAfter = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP.
//
// Each bucket refills at requestsPerMinute and holds up to burst tokens, so
// a client can fire burst requests at once and then settles to the steady
// rate.
type RateLimiter struct {
	mu                sync.Mutex
	clients           map[string]*clientLimiter
	limit             rate.Limit
	burst             int
	requestsPerMinute int
	now               func() time.Time
	logger            *slog.Logger
}

func NewRateLimiter(requestsPerMinute, burst int, logger *slog.Logger) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clients:           make(map[string]*clientLimiter),
		limit:             rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:             burst,
		requestsPerMinute: requestsPerMinute,
		now:               time.Now,
		logger:            logger,
	}
}

// limiterFor returns the bucket for key, creating it on first use.
func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = rl.now()
	return c.limiter
}

// Cleanup drops the buckets of clients idle for longer than idleAfter and
// reports how many it removed.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleAfter)
	removed := 0
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rl.Cleanup(); n > 0 {
				rl.logger.Debug("rate limiters cleaned up", slog.Int("removed", n))
			}
		}
	}
}

// Middleware rejects a client's request with 429 once its bucket is empty.
// It keys on r.RemoteAddr, so chi's RealIP middleware must run first when
// the server sits behind a proxy.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		limiter := rl.limiterFor(key)

		if !limiter.AllowN(rl.now(), 1) {
			rl.logger.Warn("rate limit exceeded",
				slog.String("client", key),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int((time.Minute/time.Duration(rl.requestsPerMinute)).Seconds())+1))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"Too Many Requests","message":"Too many requests. Limit: %d requests per minute"}`, rl.requestsPerMinute)
			return
		}

		remaining := int(limiter.TokensAt(rl.now()))
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. RealIP may already have
// replaced it with a bare address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
