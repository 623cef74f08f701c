package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2HasherRoundTrip(t *testing.T) {
	h := NewArgon2Hasher()

	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, h.Verify(hash, "correct horse battery staple"))
	assert.False(t, h.Verify(hash, "correct horse battery stapl"))
	assert.False(t, h.Verify(hash, ""))
}

func TestArgon2HasherEncodesParameters(t *testing.T) {
	h := NewArgon2Hasher()

	hash, err := h.Hash("password123")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	assert.NotContains(t, hash, "password123")
}

func TestArgon2HasherSaltsEachHash(t *testing.T) {
	h := NewArgon2Hasher()

	first, err := h.Hash("password123")
	require.NoError(t, err)
	second, err := h.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify(first, "password123"))
	assert.True(t, h.Verify(second, "password123"))
}

func TestArgon2HasherRejectsMalformedHash(t *testing.T) {
	h := NewArgon2Hasher()

	assert.False(t, h.Verify("", "password123"))
	assert.False(t, h.Verify("not-a-hash", "password123"))
	assert.False(t, h.Verify("$argon2id$v=19$m=65536,t=3,p=4$bad", "password123"))
}
