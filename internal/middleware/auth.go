package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ikiraha-api/internal/model"
	"ikiraha-api/pkg/apierror"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, raw string) (model.TokenValidation, error)
}

type contextKey string

const authContextKey contextKey = "auth_validation"

type AuthMiddleware struct {
	validator tokenValidator
}

func NewAuthMiddleware(validator tokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// RequireAuth resolves the Bearer token to the current, active user.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required")
			return
		}

		validation, err := m.validator.ValidateToken(r.Context(), raw)
		if err != nil {
			var apiErr *apierror.APIError
			if errors.As(err, &apiErr) {
				writeError(w, apiErr.HTTPStatus, apiErr.Code, apiErr.Message)
				return
			}
			slog.Error("token validation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error")
			return
		}

		ctx := context.WithValue(r.Context(), authContextKey, validation)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			validation, ok := AuthFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if _, exists := roleSet[strings.ToLower(validation.User.Role)]; !exists {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuthFromContext(ctx context.Context) (model.TokenValidation, bool) {
	validation, ok := ctx.Value(authContextKey).(model.TokenValidation)
	return validation, ok
}

// WithAuth stores a resolved validation on ctx, for handler tests.
func WithAuth(ctx context.Context, validation model.TokenValidation) context.Context {
	return context.WithValue(ctx, authContextKey, validation)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}

	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
