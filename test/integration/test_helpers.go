//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ikiraha-api/internal/config"
	"ikiraha-api/internal/database"
	"ikiraha-api/internal/event"
	"ikiraha-api/internal/handler"
	"ikiraha-api/internal/metrics"
	"ikiraha-api/internal/middleware"
	"ikiraha-api/internal/password"
	"ikiraha-api/internal/repository"
	"ikiraha-api/internal/router"
	"ikiraha-api/internal/service"
	"ikiraha-api/internal/token"
)

const testSecret = "integration-test-secret-0123456789"

type testEnv struct {
	server *httptest.Server
	db     *database.DB
}

// newTestEnv wires the full stack against TEST_DATABASE_URL and starts from
// empty user, restaurant and audit tables.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, url, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE audit_entries, restaurants, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	codec, err := token.New("hmac", testSecret)
	require.NoError(t, err)

	bus := event.NewBus()
	userRepo := repository.NewUserRepository(db.Pool)
	authService, err := service.NewAuthService(userRepo, codec, password.NewBcryptHasher(4), bus, service.AuthConfig{})
	require.NoError(t, err)
	restaurantService := service.NewRestaurantService(repository.NewRestaurantRepository(db.Pool))
	auditService := service.NewAuditService(repository.NewAuditRepository(db.Pool))

	runCtx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := bus.Subscribe()
	go auditService.Run(runCtx, events)
	t.Cleanup(func() {
		cancel()
		unsubscribe()
	})

	cfg := &config.Config{
		CORSOrigins:    []string{"*"},
		RequestTimeout: 10 * time.Second,
	}
	server := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(authService), middleware.NewMemoryLimiter(1000, 1000), metrics.New(), router.Handlers{
		System:     handler.NewSystemHandler(db, "test"),
		Auth:       handler.NewAuthHandler(authService),
		User:       handler.NewUserHandler(authService),
		Restaurant: handler.NewRestaurantHandler(restaurantService),
		Audit:      handler.NewAuditHandler(auditService),
	}))
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: db}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"meta"`
}

type authData struct {
	User struct {
		ID    int64  `json:"id"`
		UUID  string `json:"uuid"`
		Email string `json:"email"`
		Phone string `json:"phone"`
		Role  string `json:"role"`
	} `json:"user"`
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

func (e *testEnv) do(t *testing.T, method string, path string, body any, bearer string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func (e *testEnv) register(t *testing.T, email string, phone string) authData {
	t.Helper()

	status, body := e.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      email,
		"phone":      phone,
		"password":   "Secret123",
	}, "")
	require.Equal(t, http.StatusCreated, status, body.Message)

	var data authData
	require.NoError(t, json.Unmarshal(body.Data, &data))
	return data
}

func (e *testEnv) promote(t *testing.T, userID int64, role string) {
	t.Helper()

	_, err := e.db.Pool.Exec(context.Background(),
		`UPDATE users SET role_id = (SELECT id FROM user_roles WHERE name = $1) WHERE id = $2`, role, userID)
	require.NoError(t, err)
}
