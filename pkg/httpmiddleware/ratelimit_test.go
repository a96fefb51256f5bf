package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimitPerClient(t *testing.T) {
	t.Parallel()

	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, addr)
	}
}

func TestRateLimitCustomKey(t *testing.T) {
	t.Parallel()

	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-API-Key") },
	})(okHandler())

	send := func(key string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-API-Key", key)
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))
	assert.Equal(t, http.StatusOK, send("bob"))
}

func TestLimiterSlidingWindow(t *testing.T) {
	t.Parallel()

	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	base := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

	_, _, ok := l.take("k", base)
	require.True(t, ok)
	_, _, ok = l.take("k", base.Add(time.Second))
	require.True(t, ok)
	_, _, ok = l.take("k", base.Add(2*time.Second))
	require.False(t, ok)

	// Just after the window rolls over some budget frees up, but the previous
	// window still weighs in on the next attempt.
	_, _, ok = l.take("k", base.Add(61*time.Second))
	require.True(t, ok)
	_, _, ok = l.take("k", base.Add(62*time.Second))
	require.False(t, ok)

	// Two full windows later the old count is gone.
	_, _, ok = l.take("k", base.Add(3*time.Minute))
	require.True(t, ok)
}

func TestLimiterSweep(t *testing.T) {
	t.Parallel()

	l := newLimiter(RateLimitConfig{Max: 1, Window: time.Minute})
	base := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

	_, _, ok := l.take("stale", base)
	require.True(t, ok)

	l.sweep(base.Add(3 * time.Minute))

	l.mu.Lock()
	_, found := l.windows["stale"]
	l.mu.Unlock()
	assert.False(t, found)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(*http.Request)
		expect string
	}{
		{
			name:   "remote addr",
			setup:  func(r *http.Request) { r.RemoteAddr = "10.0.0.1:4321" },
			expect: "10.0.0.1",
		},
		{
			name: "x-forwarded-for first entry",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			},
			expect: "203.0.113.7",
		},
		{
			name: "x-real-ip fallback",
			setup: func(r *http.Request) {
				r.Header.Set("X-Real-IP", "203.0.113.9")
			},
			expect: "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			assert.Equal(t, tt.expect, clientIP(req))
		})
	}
}
