package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ikiraha-api/internal/config"
	"ikiraha-api/internal/handler"
	"ikiraha-api/internal/metrics"
	"ikiraha-api/internal/middleware"
	"ikiraha-api/internal/model"
)

type Handlers struct {
	System     *handler.SystemHandler
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Restaurant *handler.RestaurantHandler
	Audit      *handler.AuditHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, limiter middleware.Limiter, m *metrics.Metrics, h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(m.Middleware)
	r.Use(middleware.Recovery)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.NewRateLimitMiddleware(limiter).Handler)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", h.System.Health)
	r.Handle("/metrics", m.Handler())

	admin := []func(http.Handler) http.Handler{
		authMiddleware.RequireAuth,
		authMiddleware.RequireRoles(model.RoleAdmin, model.RoleSuperAdmin),
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Get("/", h.System.Index)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/validate", h.Auth.Validate)
			auth.Post("/refresh", h.Auth.Refresh)

			auth.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)
				protected.Get("/profile", h.Auth.Profile)
				protected.Put("/profile", h.Auth.UpdateProfile)
				protected.Post("/change-password", h.Auth.ChangePassword)
			})
		})

		api.Get("/restaurants", h.Restaurant.List)
		api.Get("/restaurants/{id}", h.Restaurant.Get)
		api.Get("/restaurant-categories", h.Restaurant.Categories)

		api.With(admin...).Get("/users", h.User.List)
		api.With(admin...).Get("/users/{id}", h.User.Get)
		api.With(admin...).Get("/audit", h.Audit.List)
	})

	return r
}
