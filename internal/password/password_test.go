package password_test

import (
	"strings"
	"testing"

	"busticket/internal/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashThenVerify(t *testing.T) {
	h := password.NewBcrypt(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, h.Verify("secret1", hash))
	assert.False(t, h.Verify("secret2", hash))
}

func TestHashIsSalted(t *testing.T) {
	h := password.NewBcrypt(bcrypt.MinCost)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyMalformedHash(t *testing.T) {
	h := password.Bcrypt{}
	assert.False(t, h.Verify("secret1", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("secret1", ""))
}

func TestHashRejectsOverlongPassword(t *testing.T) {
	h := password.NewBcrypt(bcrypt.MinCost)
	_, err := h.Hash(strings.Repeat("x", 73))
	assert.Error(t, err)
}
