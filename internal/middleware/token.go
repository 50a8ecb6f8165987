package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mtlprog/tasktrack/internal/domain"
)

var (
	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// TokenConfig holds JWT signing configuration.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Duration time.Duration
}

// Claims are the identity claims carried by a bearer token.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	config TokenConfig
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(config TokenConfig) (*TokenManager, error) {
	if config.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenManager{config: config}, nil
}

// Issue signs a token for the given identity. A zero Duration issues a
// token without expiry.
func (m *TokenManager) Issue(identity domain.Identity) (string, error) {
	if identity.UserID == "" {
		return "", errors.New("user id is required")
	}

	now := time.Now()
	claims := Claims{
		Name:  identity.DisplayName,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if m.config.Duration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.config.Duration))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns the identity it carries.
func (m *TokenManager) Verify(tokenString string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(m.config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &domain.Identity{
		UserID:      claims.Subject,
		DisplayName: claims.Name,
		Email:       claims.Email,
	}, nil
}
