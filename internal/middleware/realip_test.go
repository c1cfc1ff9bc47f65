package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealIP(t *testing.T) {
	t.Parallel()

	trusted := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.10/32"),
	}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		realIP     string
		want       string
	}{
		{name: "direct client", remoteAddr: "198.51.100.7:5555", want: "198.51.100.7"},
		{name: "spoofed forwarded header from untrusted peer", remoteAddr: "198.51.100.7:5555", forwarded: "1.2.3.4", want: "198.51.100.7"},
		{name: "spoofed real ip from untrusted peer", remoteAddr: "198.51.100.7:5555", realIP: "1.2.3.4", want: "198.51.100.7"},
		{name: "trusted proxy forwards client", remoteAddr: "10.1.2.3:443", forwarded: "203.0.113.9", want: "203.0.113.9"},
		{name: "rightmost untrusted hop wins", remoteAddr: "10.1.2.3:443", forwarded: "1.2.3.4, 203.0.113.9, 10.9.9.9", want: "203.0.113.9"},
		{name: "all hops trusted", remoteAddr: "192.0.2.10:443", forwarded: "10.0.0.5, 10.0.0.6", want: "10.0.0.5"},
		{name: "garbage hop stops the walk", remoteAddr: "10.1.2.3:443", forwarded: "not-an-ip", realIP: "203.0.113.4", want: "203.0.113.4"},
		{name: "trusted proxy without headers", remoteAddr: "10.1.2.3:443", want: "10.1.2.3"},
		{name: "peer without port", remoteAddr: "198.51.100.8", want: "198.51.100.8"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			handler := RealIP(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientIPWithoutRealIPIgnoresHeaders(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	req.Header.Set("X-Real-IP", "5.6.7.8")

	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown", ClientIP(req))
}

func TestRateLimitKeysOnResolvedIP(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryLimiter(1, 1)
	handler := RealIP(nil)(NewRateLimitMiddleware(limiter).Handler(okHandler()))

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1", nil)
		req.RemoteAddr = "198.51.100.7:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("2.2.2.2"))
}
