package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(handler http.Handler, method string, path string, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMemoryLimiterGeneralScope(t *testing.T) {
	t.Parallel()

	handler := NewRateLimitMiddleware(NewMemoryLimiter(100, 1)).Handler(okHandler())

	for i := 0; i < 10; i++ {
		rec := serve(handler, http.MethodGet, "/api/v1/restaurants", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestMemoryLimiterAuthScope(t *testing.T) {
	t.Parallel()

	handler := NewRateLimitMiddleware(NewMemoryLimiter(100, 1)).Handler(okHandler())

	first := serve(handler, http.MethodPost, "/api/v1/auth/login", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(handler, http.MethodPost, "/api/v1/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")

	other := serve(handler, http.MethodPost, "/api/v1/auth/login", "198.51.100.7:4242")
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestMemoryLimiterDefaults(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryLimiter(-1, 0)
	assert.Equal(t, 100, limiter.generalRPM)
	assert.Equal(t, 10, limiter.authRPM)
}

func newRedisLimiter(t *testing.T, generalRPM int, authRPM int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRedisLimiter(client, generalRPM, authRPM)
	limiter.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return limiter, mr
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	t.Parallel()

	limiter, mr := newRedisLimiter(t, 100, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, ScopeAuth, "203.0.113.5")
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
	}

	allowed, retry, err := limiter.Allow(ctx, ScopeAuth, "203.0.113.5")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	key := "rl:auth:203.0.113.5:" + "28333333"
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))

	allowed, _, err = limiter.Allow(ctx, ScopeGeneral, "203.0.113.5")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiterNextWindowResets(t *testing.T) {
	t.Parallel()

	limiter, _ := newRedisLimiter(t, 100, 1)
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, ScopeAuth, "ip")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, ScopeAuth, "ip")
	require.NoError(t, err)
	require.False(t, allowed)

	limiter.now = func() time.Time { return time.UnixMilli(1_700_000_000_000).Add(time.Minute) }
	allowed, _, err = limiter.Allow(ctx, ScopeAuth, "ip")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisLimiterThroughMiddleware(t *testing.T) {
	t.Parallel()

	limiter, _ := newRedisLimiter(t, 100, 1)
	handler := NewRateLimitMiddleware(limiter).Handler(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, http.MethodPost, "/api/v1/auth/register", "").Code)
	limited := serve(handler, http.MethodPost, "/api/v1/auth/register", "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
}

func TestRateLimiterFailsOpen(t *testing.T) {
	t.Parallel()

	limiter, mr := newRedisLimiter(t, 1, 1)
	mr.Close()

	handler := NewRateLimitMiddleware(limiter).Handler(okHandler())
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(handler, http.MethodPost, "/api/v1/auth/login", "").Code)
	}
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string, string) (bool, time.Duration, error) {
	return false, 0, errors.New("boom")
}

func TestRateLimiterErrorAllows(t *testing.T) {
	t.Parallel()

	handler := NewRateLimitMiddleware(erroringLimiter{}).Handler(okHandler())
	assert.Equal(t, http.StatusOK, serve(handler, http.MethodGet, "/api/v1", "").Code)
}
