// Package auth resolves typed principals from signed tokens. The token
// transport (cookie or bearer header) is decided by the HTTP layer.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"live-session-service/internal/domain"
)

// DefaultTokenTTL matches the week-scale lifetime of session tokens.
const DefaultTokenTTL = 7 * 24 * time.Hour

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens carrying the caller id
// as subject and the role as a custom claim.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, clock: time.Now}
}

// Issue signs a token for the given principal.
func (s *TokenService) Issue(p domain.Principal) (string, error) {
	now := s.clock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// Verify parses and validates a token and returns the typed principal.
// Failures map to the AuthError classification.
func (s *TokenService) Verify(raw string) (domain.Principal, error) {
	if raw == "" {
		return domain.Principal{}, domain.AuthErrorf("missing token")
	}
	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil || !parsed.Valid {
		return domain.Principal{}, domain.AuthErrorf("invalid or expired token")
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return domain.Principal{}, domain.AuthErrorf("invalid token payload")
	}
	role := domain.Role(c.Role)
	if role != domain.RoleOwner && role != domain.RoleParticipant {
		return domain.Principal{}, domain.AuthErrorf("unknown role %q", c.Role)
	}
	return domain.Principal{ID: c.Subject, Role: role}, nil
}
