package redis

import (
	"context"
	"time"

	"chat-assistant/backend/pkg/jwt"
	"chat-assistant/backend/pkg/logger"
)

// TokenDenylist stores revoked token IDs in Redis. Revocations are
// mirrored into a local fallback store so logouts still hold on this
// instance while Redis is unreachable.
type TokenDenylist struct {
	client   *RedisClient
	fallback jwt.RevocationStore
	log      *logger.Logger
}

// NewTokenDenylist creates a Redis-backed revocation store
func NewTokenDenylist(client *RedisClient, fallback jwt.RevocationStore, log *logger.Logger) *TokenDenylist {
	return &TokenDenylist{client: client, fallback: fallback, log: log}
}

func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if d.fallback != nil {
		if err := d.fallback.Revoke(ctx, tokenID, ttl); err != nil {
			return err
		}
	}

	if err := d.client.Set(ctx, jwt.RevocationKey(tokenID), "1", ttl); err != nil {
		if d.fallback == nil {
			return err
		}
		d.log.Warn("Failed to store token revocation in redis, kept locally", "error", err.Error())
	}
	return nil
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if d.fallback != nil {
		if revoked, err := d.fallback.IsRevoked(ctx, tokenID); err == nil && revoked {
			return true, nil
		}
	}

	revoked, err := d.client.Exists(ctx, jwt.RevocationKey(tokenID))
	if err != nil {
		if d.fallback == nil {
			return false, err
		}
		d.log.Warn("Failed to check token revocation in redis", "error", err.Error())
		return false, nil
	}
	return revoked, nil
}
