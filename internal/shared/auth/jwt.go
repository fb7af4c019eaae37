package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity contained in a JWT. Subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var (
	errMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

const defaultTTL = 24 * time.Hour

// Signer issues and verifies HS256 tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner builds a signer. An empty secret is only accepted outside production.
func NewSigner(secret, env string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
		}
		secret = "dev-secret"
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign signs the given claims, filling iat and exp when unset.
func (s *Signer) Sign(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("sub is required")
	}
	now := s.now().UTC()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(defaultTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry and returns the claims.
func (s *Signer) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
