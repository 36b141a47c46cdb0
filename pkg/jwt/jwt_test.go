package jwt

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chat-assistant/backend/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, expiry time.Duration) *Service {
	t.Helper()
	c := cache.New(cache.Options{})
	t.Cleanup(c.Close)
	return NewService("test-secret", expiry, NewMemoryRevocationStore(c))
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, err := svc.GenerateToken(7, "john.doe@example.com", []string{RoleUser})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "john.doe@example.com", claims.Email)
	assert.True(t, claims.HasRole(RoleUser))
	assert.False(t, claims.HasRole(RoleBot))
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "chat-assistant", claims.Issuer)
}

func TestTokensHaveUniqueIDs(t *testing.T) {
	svc := newTestService(t, time.Hour)

	a, err := svc.GenerateToken(1, "a@example.com", nil)
	require.NoError(t, err)
	b, err := svc.GenerateToken(1, "a@example.com", nil)
	require.NoError(t, err)

	ca, err := svc.ValidateToken(context.Background(), a)
	require.NoError(t, err)
	cb, err := svc.ValidateToken(context.Background(), b)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newTestService(t, time.Hour)
	other := NewService("other-secret", time.Hour, nil)

	token, err := other.GenerateToken(1, "a@example.com", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService(t, -time.Minute)

	token, err := svc.GenerateToken(1, "a@example.com", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := newTestService(t, time.Hour)

	_, err := svc.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()

	token, err := svc.GenerateToken(1, "a@example.com", []string{RoleUser})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, claims))

	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestRevocationSurvivesManyLaterLogouts(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()

	victim, err := svc.GenerateToken(1, "victim@example.com", []string{RoleUser})
	require.NoError(t, err)
	victimClaims, err := svc.ValidateToken(ctx, victim)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, victimClaims))

	// every later entry outlives the victim's
	for i := 0; i < 20000; i++ {
		require.NoError(t, svc.revocations.Revoke(ctx, fmt.Sprintf("other-%d", i), 2*time.Hour))
	}

	_, err = svc.ValidateToken(ctx, victim)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestMemoryRevocationExpires(t *testing.T) {
	c := cache.New(cache.Options{})
	t.Cleanup(c.Close)
	store := NewMemoryRevocationStore(c)
	ctx := context.Background()

	require.NoError(t, store.Revoke(ctx, "short", 10*time.Millisecond))
	revoked, err := store.IsRevoked(ctx, "short")
	require.NoError(t, err)
	assert.True(t, revoked)

	time.Sleep(30 * time.Millisecond)
	revoked, err = store.IsRevoked(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeWithoutStoreIsNoop(t *testing.T) {
	svc := NewService("secret", time.Hour, nil)
	ctx := context.Background()

	token, err := svc.GenerateToken(1, "a@example.com", nil)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)

	assert.NoError(t, svc.Revoke(ctx, claims))
	_, err = svc.ValidateToken(ctx, token)
	assert.NoError(t, err)
}
