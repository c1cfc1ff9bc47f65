// Package token issues and verifies the compact signed bearer tokens handed
// out at registration and login.
//
// Two codecs share the same wire format (three unpadded base64url segments,
// HS256 over "header.payload"): HMACCodec is a direct implementation and
// JWTCodec delegates to golang-jwt. A token produced by either verifies under
// the other when both hold the same secret.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalid is the only failure Decode reports. Callers cannot tell a bad
// signature from an expired or malformed token.
var ErrInvalid = errors.New("invalid token")

// MinSecretLength is the shortest signing secret the codecs accept.
const MinSecretLength = 16

type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// UnmarshalJSON accepts user_id as a number or a numeric string; tokens minted
// right after registration by the previous backend carried it as a string.
func (c *Claims) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID    json.RawMessage `json:"user_id"`
		Email     string          `json:"email"`
		IssuedAt  int64           `json:"iat"`
		ExpiresAt int64           `json:"exp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := parseUserID(raw.UserID)
	if err != nil {
		return err
	}

	*c = Claims{UserID: id, Email: raw.Email, IssuedAt: raw.IssuedAt, ExpiresAt: raw.ExpiresAt}
	return nil
}

func parseUserID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("user_id is missing")
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("user_id: %w", err)
	}
	return strconv.ParseInt(s, 10, 64)
}

// Codec encodes and decodes signed claim sets.
type Codec interface {
	Encode(claims Claims) (string, error)
	Decode(token string) (Claims, error)
}

// NewClaims builds a claim set valid for ttl starting at now.
func NewClaims(userID int64, email string, now time.Time, ttl time.Duration) Claims {
	return Claims{
		UserID:    userID,
		Email:     email,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New returns the codec registered under name ("hmac" or "jwt").
func New(name string, secret string, opts ...Option) (Codec, error) {
	switch name {
	case "", "hmac":
		return NewHMACCodec(secret, opts...)
	case "jwt":
		return NewJWTCodec(secret, opts...)
	default:
		return nil, fmt.Errorf("unknown token codec %q", name)
	}
}

func validateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	return nil
}
