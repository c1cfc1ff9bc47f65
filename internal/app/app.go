package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

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

// Version is overridden at build time with -ldflags "-X ikiraha-api/internal/app.Version=...".
var Version = "1.0.0"

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	cancel       context.CancelFunc
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	app := &App{cleanupFuncs: []func(){db.Close}}

	codec, err := token.New(cfg.TokenCodec, cfg.JWTSecret)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	bus := event.NewBus()
	userRepo := repository.NewUserRepository(db.Pool)
	restaurantRepo := repository.NewRestaurantRepository(db.Pool)
	auditRepo := repository.NewAuditRepository(db.Pool)

	authService, err := service.NewAuthService(userRepo, codec, password.NewBcryptHasher(cfg.BcryptCost), bus, service.AuthConfig{
		TokenTTL:         cfg.TokenTTL,
		TokenRememberTTL: cfg.TokenRememberTTL,
	})
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	restaurantService := service.NewRestaurantService(restaurantRepo)
	auditService := service.NewAuditService(auditRepo)

	auditEvents, unsubscribeAudit := bus.Subscribe()
	app.cleanupFuncs = append(app.cleanupFuncs, unsubscribeAudit)
	go auditService.Run(bgCtx, auditEvents)

	appMetrics := metrics.New()
	metricEvents, unsubscribeMetrics := bus.Subscribe()
	app.cleanupFuncs = append(app.cleanupFuncs, unsubscribeMetrics)
	go appMetrics.CountEvents(bgCtx, metricEvents)

	if cfg.RabbitMQURL != "" {
		forwarder, err := event.DialForwarder(cfg.RabbitMQURL, cfg.EventsQueue)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to initialize event forwarder: %w", err)
		}
		forwardEvents, unsubscribeForward := bus.Subscribe()
		app.cleanupFuncs = append(app.cleanupFuncs, unsubscribeForward, func() {
			if err := forwarder.Close(); err != nil {
				slog.Warn("event forwarder close failed", "error", err)
			}
		})
		go forwarder.Run(bgCtx, forwardEvents)
	}

	limiter, err := app.newLimiter(ctx, cfg)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	handler.ExposeInternalErrors(!cfg.IsProduction())

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), limiter, appMetrics, router.Handlers{
		System:     handler.NewSystemHandler(db, Version),
		Auth:       handler.NewAuthHandler(authService),
		User:       handler.NewUserHandler(authService),
		Restaurant: handler.NewRestaurantHandler(restaurantService),
		Audit:      handler.NewAuditHandler(auditService),
	})

	app.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return app, nil
}

func (a *App) newLimiter(ctx context.Context, cfg *config.Config) (middleware.Limiter, error) {
	if cfg.RateLimitBackend != "redis" {
		return middleware.NewMemoryLimiter(cfg.RateLimitRPM, cfg.AuthRateLimitRPM), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unreachable; rate limiting fails open until it recovers", "addr", cfg.RedisAddr, "error", err)
	} else {
		slog.Info("redis rate limiter ready", "addr", cfg.RedisAddr)
	}

	return middleware.NewRedisLimiter(client, cfg.RateLimitRPM, cfg.AuthRateLimitRPM), nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr, "version", Version)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.cleanup()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup runs in reverse registration order so the pool closes last.
func (a *App) cleanup() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
