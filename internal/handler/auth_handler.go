package handler

import (
	"context"
	"net/http"
	"strings"

	"ikiraha-api/internal/middleware"
	"ikiraha-api/internal/model"
	"ikiraha-api/pkg/apierror"
)

type authService interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error)
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error)
	ValidateToken(ctx context.Context, raw string) (model.TokenValidation, error)
	RefreshToken(ctx context.Context, raw string) (model.AuthResult, error)
	GetProfile(ctx context.Context, userID int64) (model.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, input map[string]any) (model.Profile, error)
	ChangePassword(ctx context.Context, userID int64, req model.ChangePasswordRequest) error
}

type AuthHandler struct {
	service authService
}

func NewAuthHandler(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Register(requestContext(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "User registered successfully", result, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Login(requestContext(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful", result, nil)
}

func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	raw, err := tokenFromRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	validation, err := h.service.ValidateToken(requestContext(r), raw)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Token is valid", validation, nil)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := tokenFromRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.RefreshToken(requestContext(r), raw)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Token refreshed successfully", result, nil)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	current, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.service.GetProfile(requestContext(r), current.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User profile retrieved successfully", map[string]any{"user": profile}, nil)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	payload := map[string]any{}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.service.UpdateProfile(requestContext(r), current.User.ID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Profile updated successfully", map[string]any{"user": profile}, nil)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	current, err := currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.ChangePasswordRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if payload.CurrentPassword == "" || payload.NewPassword == "" {
		writeError(w, apierror.Validation("Current password and new password are required", nil))
		return
	}

	if err := h.service.ChangePassword(requestContext(r), current.User.ID, payload); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password changed successfully", nil, nil)
}

// tokenFromRequest prefers the Authorization header over a "token" body field.
func tokenFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if raw, ok := middleware.BearerToken(r); ok {
		return raw, nil
	}

	var payload model.TokenRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		return "", err
	}

	raw := strings.TrimSpace(payload.Token)
	if raw == "" {
		return "", apierror.BadRequest("Token is required", "token")
	}
	return raw, nil
}
