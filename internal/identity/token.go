package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RememberMeTTL is the access token lifetime with remember_me set.
const RememberMeTTL = 30 * 24 * time.Hour

// ErrInvalidToken is returned for malformed, mis-signed, or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies HS256 access tokens carrying the user id
// as subject.
type TokenIssuer struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. defaultTTL applies when Issue is
// called with ttl 0.
func NewTokenIssuer(secret string, defaultTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Issue returns a signed token for the user.
func (i *TokenIssuer) Issue(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = i.defaultTTL
	}
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify validates a token and returns its subject (the user id).
func (i *TokenIssuer) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
