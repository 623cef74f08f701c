package auth

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueGeneratesUniqueURLSafeTokens(t *testing.T) {
	store := newFakeUserStore()
	_, err := store.Create(context.Background(), "ana", "ana@example.com", "hash")
	require.NoError(t, err)

	svc := NewTokenService(store)

	first, _, err := svc.Issue(context.Background(), 1)
	require.NoError(t, err)
	second, _, err := svc.Issue(context.Background(), 1)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	raw, err := base64.URLEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestIssueSetsExpiryOneDayOut(t *testing.T) {
	store := newFakeUserStore()
	_, err := store.Create(context.Background(), "ana", "ana@example.com", "hash")
	require.NoError(t, err)

	svc := NewTokenService(store)

	_, expires, err := svc.Issue(context.Background(), 1)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)
}

func TestRedeemMapsMissingTokenToSentinel(t *testing.T) {
	svc := NewTokenService(newFakeUserStore())

	_, err := svc.Redeem(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
}

func TestIssueForVerifiedUserFails(t *testing.T) {
	store := newFakeUserStore()
	u, err := store.Create(context.Background(), "ana", "ana@example.com", "hash")
	require.NoError(t, err)
	store.users[u.ID].IsVerified = true

	svc := NewTokenService(store)

	_, _, err = svc.Issue(context.Background(), u.ID)
	assert.Error(t, err)
}
