package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ikiraha-api/internal/event"
)

func newRouter(m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/restaurants/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())
	return r
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	r := newRouter(m)

	for _, path := range []string{"/api/v1/restaurants/1", "/api/v1/restaurants/2", "/nowhere/3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/restaurants/{id}", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, unmatchedRoute, "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m := New()
	r := newRouter(m)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/restaurants/9", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ikiraha_http_requests_total")
	assert.Contains(t, string(body), "ikiraha_http_request_duration_seconds_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCountEvents(t *testing.T) {
	t.Parallel()

	m := New()
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		m.CountEvents(context.Background(), events)
		close(done)
	}()

	at := time.Now()
	bus.Publish(event.New(event.TypeLoginFailed, event.AuthPayload{Status: event.StatusFailure}, at))
	bus.Publish(event.New(event.TypeLoginFailed, event.AuthPayload{Status: event.StatusFailure}, at))
	bus.Publish(event.New(event.TypeUserRegistered, event.AuthPayload{UserID: 1, Status: event.StatusSuccess}, at))
	unsubscribe()
	<-done

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues(string(event.TypeLoginFailed), event.StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues(string(event.TypeUserRegistered), event.StatusSuccess)))
}
