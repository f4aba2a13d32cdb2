// Package auth issues and validates the HMAC-signed editor tokens that guard
// design-mode operations. When the server runs without a configured secret the
// guard is disabled entirely and publish relies on the design-mode flag alone.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrEmptyName     = errors.New("name cannot be empty")
	ErrInvalidRole   = errors.New("invalid role")
	ErrShortSecret   = errors.New("secret must be at least 32 characters")
)

// Roles accepted in editor tokens. Editors may publish rooms; viewers only
// read them.
const (
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

var validRoles = map[string]bool{
	RoleEditor: true,
	RoleViewer: true,
}

// Claims is the decoded content of a valid editor token.
type Claims struct {
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	IssuedAt  time.Time `json:"issued_at"`
}

// CanPublish reports whether the token holder may run the publish pipeline.
func (c *Claims) CanPublish() bool {
	return c.Role == RoleEditor
}

// Manager issues and validates HS256 editor tokens.
type Manager struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewManager creates a Manager. The secret must be at least 32 characters.
func NewManager(secret string, tokenDuration time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &Manager{
		secretKey:     []byte(secret),
		tokenDuration: tokenDuration,
	}, nil
}

// IssueToken signs a token for the named user with the given role.
func (m *Manager) IssueToken(name, role string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if !validRoles[role] {
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenDuration)

	claims := jwt.MapClaims{
		"name": name,
		"role": role,
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a token's signature and expiry and returns its
// claims.
func (m *Manager) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claimsMap, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	name, ok := claimsMap["name"].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: missing or invalid name", ErrInvalidClaims)
	}
	role, ok := claimsMap["role"].(string)
	if !ok || !validRoles[role] {
		return nil, fmt.Errorf("%w: missing or invalid role", ErrInvalidClaims)
	}

	exp, err := claimsMap.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing or invalid exp", ErrInvalidClaims)
	}
	iat, err := claimsMap.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, fmt.Errorf("%w: missing or invalid iat", ErrInvalidClaims)
	}

	return &Claims{
		Name:      name,
		Role:      role,
		ExpiresAt: exp.Time,
		IssuedAt:  iat.Time,
	}, nil
}

// TokenDuration returns the configured token lifetime.
func (m *Manager) TokenDuration() time.Duration {
	return m.tokenDuration
}
