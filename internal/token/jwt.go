package token

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// UnmarshalJSON reuses the lenient user_id parsing of Claims.
func (c *jwtClaims) UnmarshalJSON(data []byte) error {
	var base Claims
	if err := base.UnmarshalJSON(data); err != nil {
		return err
	}

	var registered jwt.RegisteredClaims
	if err := json.Unmarshal(data, &registered); err != nil {
		return err
	}

	c.UserID = base.UserID
	c.Email = base.Email
	c.RegisteredClaims = registered
	return nil
}

// JWTCodec is the standards-based Codec backed by golang-jwt.
type JWTCodec struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTCodec(secret string, opts ...Option) (*JWTCodec, error) {
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(o.now),
	)

	return &JWTCodec{secret: []byte(secret), parser: parser}, nil
}

func (c *JWTCodec) Encode(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwtClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Decode(tokenString string) (Claims, error) {
	var parsed jwtClaims
	token, err := c.parser.ParseWithClaims(tokenString, &parsed, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalid
	}

	claims := Claims{UserID: parsed.UserID, Email: parsed.Email}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Unix()
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Unix()
	}
	return claims, nil
}
