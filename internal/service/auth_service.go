package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"ikiraha-api/internal/event"
	"ikiraha-api/internal/model"
	"ikiraha-api/internal/password"
	"ikiraha-api/internal/token"
	"ikiraha-api/internal/util"
	"ikiraha-api/pkg/apierror"
)

const (
	TokenType = "Bearer"

	msgInvalidCredentials = "Invalid email or password"
	msgDeactivated        = "Account is deactivated. Please contact support."
	msgInvalidToken       = "Invalid token"
	msgUserUnavailable    = "User not found or inactive"

	// dummyPassword is hashed once at startup so unknown-email logins spend
	// the same bcrypt work as wrong-password logins.
	dummyPassword = "ikiraha-timing-equalizer"
)

// CredentialStore is the persistence boundary of AuthService.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByPhone(ctx context.Context, phone string) (model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindRoleByName(ctx context.Context, name string) (model.Role, error)
	InsertUser(ctx context.Context, u model.User) (int64, error)
	UpdateFields(ctx context.Context, id int64, update model.ProfileUpdate, at time.Time) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string, at time.Time) error
	List(ctx context.Context, query model.UserQuery) ([]model.User, int, error)
}

type AuthConfig struct {
	TokenTTL         time.Duration
	TokenRememberTTL time.Duration
}

type AuthService struct {
	store       CredentialStore
	codec       token.Codec
	hasher      password.Hasher
	events      event.Publisher
	now         func() time.Time
	ttl         time.Duration
	rememberTTL time.Duration
	dummyHash   string
}

func NewAuthService(store CredentialStore, codec token.Codec, hasher password.Hasher, events event.Publisher, cfg AuthConfig) (*AuthService, error) {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.TokenRememberTTL <= 0 {
		cfg.TokenRememberTTL = 7 * 24 * time.Hour
	}
	if events == nil {
		events = event.Discard{}
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare timing hash: %w", err)
	}

	return &AuthService{
		store:       store,
		codec:       codec,
		hasher:      hasher,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
		ttl:         cfg.TokenTTL,
		rememberTTL: cfg.TokenRememberTTL,
		dummyHash:   dummyHash,
	}, nil
}

// SetClock overrides the time source, for tests.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	input := model.RegisterRequest{
		FirstName:   util.SanitizeText(req.FirstName),
		LastName:    util.SanitizeText(req.LastName),
		Email:       util.NormalizeEmail(req.Email),
		Phone:       util.SanitizeText(req.Phone),
		Password:    req.Password,
		DateOfBirth: strings.TrimSpace(req.DateOfBirth),
		Gender:      strings.ToLower(strings.TrimSpace(req.Gender)),
	}

	dob, errs := validateRegistration(input)
	if len(errs) > 0 {
		return model.AuthResult{}, apierror.Validation("Validation failed", errs)
	}

	if _, err := s.store.FindByEmail(ctx, input.Email); err == nil {
		return model.AuthResult{}, apierror.Conflict("User with this email already exists", "")
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return model.AuthResult{}, fmt.Errorf("check email: %w", err)
	}

	if _, err := s.store.FindByPhone(ctx, input.Phone); err == nil {
		return model.AuthResult{}, apierror.Conflict("User with this phone number already exists", "")
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return model.AuthResult{}, fmt.Errorf("check phone: %w", err)
	}

	role, err := s.store.FindRoleByName(ctx, model.RoleCustomer)
	if errors.Is(err, model.ErrRoleNotFound) {
		slog.Error("customer role missing from user_roles")
		return model.AuthResult{}, apierror.Precondition("Customer role not found in database")
	}
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("find customer role: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return model.AuthResult{}, err
	}

	now := s.now()
	user := model.User{
		UUID:         uuid.NewString(),
		RoleID:       role.ID,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		DateOfBirth:  dob,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.Gender != "" {
		user.Gender = &input.Gender
	}

	id, err := s.store.InsertUser(ctx, user)
	if err != nil {
		if conflict := conflictFor(err); conflict != nil {
			return model.AuthResult{}, conflict
		}
		return model.AuthResult{}, fmt.Errorf("insert user: %w", err)
	}

	created, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("load registered user: %w", err)
	}

	result, err := s.issue(created, s.ttl)
	if err != nil {
		return model.AuthResult{}, err
	}

	slog.Info("user registered", "user_id", created.ID, "email", created.Email)
	s.publish(ctx, event.TypeUserRegistered, created.ID, created.Email, event.StatusSuccess, "", nil)
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	email := util.NormalizeEmail(req.Email)

	if email == "" || req.Password == "" {
		return model.AuthResult{}, apierror.Validation("Email and password are required", nil)
	}
	if !util.ValidEmail(email) {
		return model.AuthResult{}, apierror.Validation("Invalid email format", []string{"Invalid email format"})
	}

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.Verify(req.Password, s.dummyHash)
		s.loginFailed(ctx, 0, email, "unknown_email")
		return model.AuthResult{}, apierror.Unauthorized("INVALID_CREDENTIALS", msgInvalidCredentials)
	}
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("find user for login: %w", err)
	}

	if !user.IsActive {
		s.loginFailed(ctx, user.ID, email, "deactivated")
		return model.AuthResult{}, apierror.Unauthorized("ACCOUNT_DEACTIVATED", msgDeactivated)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.loginFailed(ctx, user.ID, email, "wrong_password")
		return model.AuthResult{}, apierror.Unauthorized("INVALID_CREDENTIALS", msgInvalidCredentials)
	}

	now := s.now()
	if err := s.store.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return model.AuthResult{}, fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = &now

	ttl := s.ttl
	if req.RememberMe {
		ttl = s.rememberTTL
	}

	result, err := s.issue(user, ttl)
	if err != nil {
		return model.AuthResult{}, err
	}

	slog.Info("login succeeded", "user_id", user.ID, "remember_me", req.RememberMe)
	s.publish(ctx, event.TypeLoginSucceeded, user.ID, user.Email, event.StatusSuccess, "", map[string]any{"remember_me": req.RememberMe})
	return result, nil
}

// ValidateToken decodes the token and re-checks that its subject still
// exists and is active.
func (s *AuthService) ValidateToken(ctx context.Context, raw string) (model.TokenValidation, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		return model.TokenValidation{}, apierror.Unauthorized("INVALID_TOKEN", msgInvalidToken)
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenValidation{}, apierror.Unauthorized("INVALID_TOKEN", msgUserUnavailable)
	}
	if err != nil {
		return model.TokenValidation{}, fmt.Errorf("find token subject: %w", err)
	}
	if !user.IsActive {
		return model.TokenValidation{}, apierror.Unauthorized("INVALID_TOKEN", msgUserUnavailable)
	}

	return model.TokenValidation{
		User: user.Profile(),
		TokenData: model.TokenClaims{
			UserID:    claims.UserID,
			Email:     claims.Email,
			IssuedAt:  claims.IssuedAt,
			ExpiresAt: claims.ExpiresAt,
		},
	}, nil
}

// RefreshToken issues a fresh default-window token. The presented token
// stays valid until its own expiry.
func (s *AuthService) RefreshToken(ctx context.Context, raw string) (model.AuthResult, error) {
	validation, err := s.ValidateToken(ctx, raw)
	if err != nil {
		return model.AuthResult{}, err
	}

	user, err := s.store.FindByID(ctx, validation.User.ID)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("reload token subject: %w", err)
	}

	result, err := s.issue(user, s.ttl)
	if err != nil {
		return model.AuthResult{}, err
	}

	s.publish(ctx, event.TypeTokenRefreshed, user.ID, user.Email, event.StatusSuccess, "", nil)
	return result, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID int64) (model.Profile, error) {
	user, err := s.store.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.Profile{}, apierror.NotFound("User not found", "")
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return user.Profile(), nil
}

// UpdateProfile applies the whitelisted fields of input. Unknown keys and
// empty values are ignored.
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, input map[string]any) (model.Profile, error) {
	update, errs := buildProfileUpdate(input)
	if len(errs) > 0 {
		return model.Profile{}, apierror.Validation("Validation failed", errs)
	}
	if update.Empty() {
		return model.Profile{}, apierror.Validation("No valid fields to update", nil)
	}

	if update.Phone != nil {
		existing, err := s.store.FindByPhone(ctx, *update.Phone)
		switch {
		case err == nil && existing.ID != userID:
			return model.Profile{}, apierror.Conflict("Phone number already exists", "")
		case err != nil && !errors.Is(err, model.ErrUserNotFound):
			return model.Profile{}, fmt.Errorf("check phone: %w", err)
		}
	}

	if err := s.store.UpdateFields(ctx, userID, update, s.now()); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.Profile{}, apierror.NotFound("User not found", "")
		}
		if conflict := conflictFor(err); conflict != nil {
			return model.Profile{}, conflict
		}
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("reload profile: %w", err)
	}

	s.publish(ctx, event.TypeProfileUpdated, user.ID, user.Email, event.StatusSuccess, "", map[string]any{"fields": update.Fields()})
	return user.Profile(), nil
}

// ChangePassword only enforces the minimum length on the new password,
// unlike registration.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req model.ChangePasswordRequest) error {
	user, err := s.store.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.NotFound("User not found", "")
	}
	if err != nil {
		return fmt.Errorf("find user for password change: %w", err)
	}

	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		s.publish(ctx, event.TypePasswordChangeFail, user.ID, user.Email, event.StatusFailure, "wrong_current_password", nil)
		return apierror.New("INVALID_CURRENT_PASSWORD", "Current password is incorrect", "", http.StatusBadRequest)
	}

	if len([]rune(req.NewPassword)) < util.MinPasswordLength {
		msg := "New password must be at least 8 characters long"
		return apierror.Validation(msg, []string{msg})
	}
	if len(req.NewPassword) > util.MaxPasswordBytes {
		msg := "New password must be at most 72 bytes long"
		return apierror.Validation(msg, []string{msg})
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.store.UpdatePasswordHash(ctx, userID, hash, s.now()); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}

	slog.Info("password changed", "user_id", userID)
	s.publish(ctx, event.TypePasswordChanged, user.ID, user.Email, event.StatusSuccess, "", nil)
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, query model.UserQuery) ([]model.Profile, model.Meta, error) {
	query.Page, query.Limit = util.NormalizePage(query.Page, query.Limit)
	if err := checkPage(query.Page, query.Limit); err != nil {
		return nil, model.Meta{}, err
	}

	users, total, err := s.store.List(ctx, query)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list users: %w", err)
	}

	profiles := make([]model.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, model.NewMeta(query.Page, query.Limit, total), nil
}

func (s *AuthService) issue(user model.User, ttl time.Duration) (model.AuthResult, error) {
	claims := token.NewClaims(user.ID, user.Email, s.now(), ttl)
	signed, err := s.codec.Encode(claims)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	return model.AuthResult{
		User:      user.Profile(),
		Token:     signed,
		TokenType: TokenType,
		ExpiresIn: int64(ttl / time.Second),
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID int64, email string, reason string) {
	slog.Warn("login failed", "email", email, "reason", reason, "ip", ClientIP(ctx))
	s.publish(ctx, event.TypeLoginFailed, userID, email, event.StatusFailure, reason, nil)
}

func (s *AuthService) publish(ctx context.Context, t event.Type, userID int64, email string, status string, reason string, details map[string]any) {
	s.events.Publish(event.New(t, event.AuthPayload{
		UserID:  userID,
		Email:   email,
		IP:      ClientIP(ctx),
		Status:  status,
		Reason:  reason,
		Details: details,
	}, s.now()))
}

func conflictFor(err error) *apierror.APIError {
	switch {
	case errors.Is(err, model.ErrEmailTaken):
		return apierror.Conflict("User with this email already exists", "")
	case errors.Is(err, model.ErrPhoneTaken):
		return apierror.Conflict("User with this phone number already exists", "")
	case errors.Is(err, model.ErrDuplicate):
		return apierror.Conflict("Record already exists", "")
	}
	return nil
}
