package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	rec := serve(SecurityHeaders(okHandler()), http.MethodGet, "/health", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	t.Parallel()

	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	}))

	rec := serve(handler, http.MethodGet, "/", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, rec.Body.String(), "nil map")
}

func TestLoggingSetsRequestID(t *testing.T) {
	t.Parallel()

	rec := serve(Logging(okHandler()), http.MethodGet, "/", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	Logging(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	handler := CORS([]string{"https://app.ikiraha.rw"})(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.ikiraha.rw")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.ikiraha.rw", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origins []string
		origin  string
		method  string
		allowed bool
	}{
		{name: "wildcard subdomain", origins: []string{"https://*.ikiraha.rw"}, origin: "https://admin.ikiraha.rw", method: http.MethodPut, allowed: true},
		{name: "unknown origin", origins: []string{"https://app.ikiraha.rw"}, origin: "https://evil.example", method: http.MethodPost, allowed: false},
		{name: "unrouted method", origins: []string{"https://app.ikiraha.rw"}, origin: "https://app.ikiraha.rw", method: http.MethodDelete, allowed: false},
		{name: "empty list allows any", origins: nil, origin: "https://anywhere.example", method: http.MethodGet, allowed: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/profile", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", tt.method)
			rec := httptest.NewRecorder()
			CORS(tt.origins)(okHandler()).ServeHTTP(rec, req)

			if tt.allowed {
				assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestTimeoutAnswersWithEnvelope(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	rec := serve(Timeout(20*time.Millisecond)(slow), http.MethodGet, "/api/v1/restaurants", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeEnvelope(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "REQUEST_TIMEOUT", body.Error.Code)
}

func TestTimeoutPassesFastResponses(t *testing.T) {
	t.Parallel()

	fast := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	rec := serve(Timeout(time.Second)(fast), http.MethodGet, "/api/v1", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", rec.Body.String())
}
