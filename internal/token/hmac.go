package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "."

type header struct {
	Typ string `json:"typ"`
	Alg string `json:"alg"`
}

var encoding = base64.RawURLEncoding

// HMACCodec signs tokens with HMAC-SHA256 without any third-party token
// library, producing the exact byte layout existing clients hold.
type HMACCodec struct {
	secret []byte
	now    func() time.Time
	header string
}

func NewHMACCodec(secret string, opts ...Option) (*HMACCodec, error) {
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	headerJSON, err := json.Marshal(header{Typ: "JWT", Alg: "HS256"})
	if err != nil {
		return nil, fmt.Errorf("encode token header: %w", err)
	}

	o := buildOptions(opts)
	return &HMACCodec{
		secret: []byte(secret),
		now:    o.now,
		header: encoding.EncodeToString(headerJSON),
	}, nil
}

func (c *HMACCodec) Encode(claims Claims) (string, error) {
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode token payload: %w", err)
	}

	signingInput := c.header + separator + encoding.EncodeToString(payloadJSON)
	return signingInput + separator + c.sign(signingInput), nil
}

func (c *HMACCodec) Decode(token string) (Claims, error) {
	parts := strings.Split(token, separator)
	if len(parts) != 3 {
		return Claims{}, ErrInvalid
	}

	expected := c.sign(parts[0] + separator + parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return Claims{}, ErrInvalid
	}

	payloadJSON, err := encoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrInvalid
	}

	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return Claims{}, ErrInvalid
	}

	if claims.ExpiresAt <= c.now().Unix() {
		return Claims{}, ErrInvalid
	}

	return claims, nil
}

func (c *HMACCodec) sign(signingInput string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return encoding.EncodeToString(mac.Sum(nil))
}
