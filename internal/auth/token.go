package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken covers bad signatures, unexpected algorithms and unparsable tokens.
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken is returned once the embedded expiry has been reached.
	ErrExpiredToken = errors.New("token expired")
)

// Token is a signed bearer token and its absolute expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Codec issues and verifies HS256 bearer tokens carrying a principal
// identifier as the subject.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithTimeFunc overrides the clock used for issuing and expiry checks.
func WithTimeFunc(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a codec signing with secret. Tokens are valid for ttl from issue.
func NewCodec(secret string, ttl time.Duration, opts ...CodecOption) *Codec {
	c := &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue signs a token for principal id.
func (c *Codec) Issue(id string) (Token, error) {
	if id == "" {
		return Token{}, errors.New("subject is required")
	}
	now := c.now()
	exp := now.Add(c.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks the signature and expiry of raw and returns its subject. An
// elapsed expiry is reported as ErrExpiredToken even when the signature is
// also invalid.
func (c *Codec) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || c.expiredUnverified(raw) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	return claims.Subject, nil
}

// expiredUnverified reads the expiry of a token whose signature failed.
func (c *Codec) expiredUnverified(raw string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}
