package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ScopeGeneral = "general"
	ScopeAuth    = "auth"

	rateWindow = time.Minute
)

// Limiter decides whether one more request for key in scope is allowed.
type Limiter interface {
	Allow(ctx context.Context, scope string, key string) (bool, time.Duration, error)
}

type RateLimitMiddleware struct {
	limiter Limiter
}

func NewRateLimitMiddleware(limiter Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Handler limits per client IP. Auth endpoints use their own, tighter scope.
// A limiter error lets the request through.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := ScopeGeneral
		if strings.HasPrefix(strings.ToLower(r.URL.Path), "/api/v1/auth") {
			scope = ScopeAuth
		}

		allowed, retryAfter, err := m.limiter.Allow(r.Context(), scope, ClientIP(r))
		if err != nil {
			slog.Warn("rate limiter unavailable; allowing request", "scope", scope, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one token bucket per client and scope in process.
type MemoryLimiter struct {
	generalRPM int
	authRPM    int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

func NewMemoryLimiter(generalRPM int, authRPM int) *MemoryLimiter {
	if generalRPM <= 0 {
		generalRPM = 100
	}
	if authRPM <= 0 {
		authRPM = 10
	}

	return &MemoryLimiter{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		clients:    map[string]*clientLimiter{},
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, scope string, key string) (bool, time.Duration, error) {
	limiter := m.getLimiter(key)

	target := limiter.general
	if scope == ScopeAuth {
		target = limiter.auth
	}

	now := time.Now()
	reservation := target.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

func (m *MemoryLimiter) getLimiter(key string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists := m.clients[key]; exists {
		limiter.lastSeen = time.Now()
		m.gcLocked()
		return limiter
	}

	general := rate.NewLimiter(rate.Every(rateWindow/time.Duration(m.generalRPM)), m.generalRPM)
	auth := rate.NewLimiter(rate.Every(rateWindow/time.Duration(m.authRPM)), m.authRPM)
	created := &clientLimiter{general: general, auth: auth, lastSeen: time.Now()}
	m.clients[key] = created
	m.gcLocked()

	return created
}

func (m *MemoryLimiter) gcLocked() {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}
