package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func get(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =========================================================================
// RATE LIMIT TESTS
// =========================================================================

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(60, 3, quietLogger())
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }
	h := rl.Middleware(ok)

	for i := 0; i < 3; i++ {
		rec := get(h, "10.0.0.1:5000")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := get(h, "10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "60 requests per minute")

	// Another client has its own bucket.
	assert.Equal(t, http.StatusOK, get(h, "10.0.0.2:5000").Code)

	// One token refills per second at 60/minute.
	rl.now = func() time.Time { return start.Add(time.Second) }
	assert.Equal(t, http.StatusOK, get(h, "10.0.0.1:5002").Code)
}

func TestRateLimiter_RemainingHeader(t *testing.T) {
	rl := NewRateLimiter(60, 5, quietLogger())
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }
	h := rl.Middleware(ok)

	assert.Equal(t, "4", get(h, "10.0.0.1:1").Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3", get(h, "10.0.0.1:1").Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(60, 1, quietLogger())
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return start }
	h := rl.Middleware(ok)

	get(h, "10.0.0.1:1")
	rl.now = func() time.Time { return start.Add(9 * time.Minute) }
	get(h, "10.0.0.2:1")

	rl.now = func() time.Time { return start.Add(11 * time.Minute) }
	assert.Equal(t, 1, rl.Cleanup())
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.2")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:41234"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "192.0.2.7" // as left by chi's RealIP
	assert.Equal(t, "192.0.2.7", clientIP(req))
}

// =========================================================================
// LOGGER TESTS
// =========================================================================

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	})
	h := chimiddleware.RequestID(Logger(logger)(notFound))

	req := httptest.NewRequest(http.MethodGet, "/api/events/missing", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.True(t, strings.Contains(line, "level=WARN"), line)
	assert.Contains(t, line, "status=404")
	assert.Contains(t, line, "path=/api/events/missing")
	assert.Contains(t, line, "bytes=4")
	assert.NotContains(t, line, `requestID=""`)
}

func TestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(logger)(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "status=200")
}
