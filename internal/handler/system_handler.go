package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"ikiraha-api/pkg/apierror"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

type SystemHandler struct {
	db      healthChecker
	version string
	now     func() time.Time
}

func NewSystemHandler(db healthChecker, version string) *SystemHandler {
	return &SystemHandler{db: db, version: version, now: time.Now}
}

var endpoints = map[string]string{
	"register":              "POST /api/v1/auth/register",
	"login":                 "POST /api/v1/auth/login",
	"validate":              "POST /api/v1/auth/validate",
	"refresh":               "POST /api/v1/auth/refresh",
	"profile":               "GET /api/v1/auth/profile",
	"update_profile":        "PUT /api/v1/auth/profile",
	"change_password":       "POST /api/v1/auth/change-password",
	"restaurants":           "GET /api/v1/restaurants",
	"restaurant":            "GET /api/v1/restaurants/{id}",
	"restaurant_categories": "GET /api/v1/restaurant-categories",
	"users":                 "GET /api/v1/users",
	"audit":                 "GET /api/v1/audit",
	"health":                "GET /health",
	"metrics":               "GET /metrics",
}

func (h *SystemHandler) Index(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "Ikiraha API is running", map[string]any{
		"name":      "ikiraha-api",
		"version":   h.version,
		"endpoints": endpoints,
	}, nil)
}

// Health reports 503 when the database cannot be reached.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		slog.Warn("health check failed", "error", err)
		writeError(w, apierror.New("SERVICE_UNAVAILABLE", "Database unavailable", "", http.StatusServiceUnavailable))
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"status":    "ok",
		"database":  "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}, nil)
}

// NotFound and MethodNotAllowed keep router-level failures in the envelope.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, apierror.NotFound("Endpoint not found", ""))
}

func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, apierror.New("METHOD_NOT_ALLOWED", "Method not allowed", "", http.StatusMethodNotAllowed))
}
