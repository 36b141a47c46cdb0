package jwt

import (
	"context"
	"time"

	"chat-assistant/backend/pkg/cache"
)

// RevocationStore remembers token IDs that were logged out before expiry
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationStore keeps revoked token IDs in the in-process cache.
// Entries leave the cache only when the token would have expired anyway.
type MemoryRevocationStore struct {
	cache *cache.Cache
}

// NewMemoryRevocationStore creates a revocation store backed by c
func NewMemoryRevocationStore(c *cache.Cache) *MemoryRevocationStore {
	return &MemoryRevocationStore{cache: c}
}

// RevocationKey is the storage key for a revoked token ID
func RevocationKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.cache.SetWithExpiration(RevocationKey(tokenID), true, ttl)
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := s.cache.Get(RevocationKey(tokenID))
	return found, nil
}
