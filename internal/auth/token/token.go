// Package token encodes and decodes the signed access and refresh tokens.
// The codec is deliberately dumb: it knows nothing about users or stores,
// only how to mint a claims set and how to reject one.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskgate/pkg/domain"
)

// Decode failure modes. ErrExpired means the token was well formed and
// correctly signed but past its expiry; everything else is ErrInvalid.
var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Claims is the payload carried inside every token this service mints.
// Subject holds the account email, ID the account identifier.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Codec signs and verifies tokens with a shared HMAC secret.
type Codec struct {
	signingKey []byte
	method     *jwt.SigningMethodHMAC
	now        func() time.Time
}

// Option configures optional Codec behaviour.
type Option func(*Codec)

// WithClock overrides the time source, for tests that need to move time.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec builds a codec for the given secret and HMAC algorithm name
// (HS256, HS384 or HS512).
func NewCodec(secret, alg string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret cannot be empty")
	}

	var method *jwt.SigningMethodHMAC
	switch alg {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}

	c := &Codec{
		signingKey: []byte(secret),
		method:     method,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode mints a signed token for the given identity that expires after ttl.
func (c *Codec) Encode(email string, userID domain.UserID, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of a token and returns its claims.
// Expired-but-otherwise-valid tokens return ErrExpired so callers can decide
// whether a refresh is worth attempting; every other failure is ErrInvalid.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	if claims.Subject == "" || claims.UserID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}
