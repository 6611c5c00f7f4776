package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession means the session token failed verification.
var ErrInvalidSession = errors.New("invalid session token")

// sessionClaims are the claims carried by a session token. Fingerprint
// binds the token to the credential that was current at login; it is an
// opaque hash, never the credential itself.
type sessionClaims struct {
	Tenant      string `json:"tenant"`
	Fingerprint string `json:"fingerprint"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies the short-lived tokens handed out at
// login.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

// NewSessions creates a Sessions signer/verifier.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the tenant bound to the given credential
// fingerprint.
func (s *Sessions) Issue(tenant, fingerprint string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Tenant:      tenant,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenant,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the tenant and the
// credential fingerprint it was bound to.
func (s *Sessions) Verify(tokenString string) (tenant, fingerprint string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || claims.Tenant == "" {
		return "", "", ErrInvalidSession
	}
	return claims.Tenant, claims.Fingerprint, nil
}
