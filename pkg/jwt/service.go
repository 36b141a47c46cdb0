package jwt

import (
	"context"
	"time"
)

// Service is a wrapper for JWT operations
type Service struct {
	secretKey   string
	expiry      time.Duration
	issuer      string
	revocations RevocationStore
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration, revocations RevocationStore) *Service {
	if secretKey == "" {
		secretKey = getSecretKey()
	}

	if expiry == 0 {
		expiry = time.Hour
	}

	return &Service{
		secretKey:   secretKey,
		expiry:      expiry,
		issuer:      "chat-assistant",
		revocations: revocations,
	}
}

// WithIssuer sets the issuer claim on generated tokens
func (s *Service) WithIssuer(issuer string) *Service {
	if issuer != "" {
		s.issuer = issuer
	}
	return s
}

// GenerateToken generates a JWT token for a user
func (s *Service) GenerateToken(userID uint, email string, roles []string) (string, error) {
	return signToken(newClaims(userID, email, roles, s.issuer, s.expiry), s.secretKey)
}

// ValidateToken validates a JWT token and rejects revoked ones
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*JWTClaims, error) {
	claims, err := parseToken(tokenString, s.secretKey)
	if err != nil {
		return nil, err
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	return claims, nil
}

// Revoke invalidates the token until it would have expired anyway
func (s *Service) Revoke(ctx context.Context, claims *JWTClaims) error {
	if s.revocations == nil {
		return nil
	}
	ttl := claims.TTL()
	if ttl <= 0 {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.ID, ttl)
}
