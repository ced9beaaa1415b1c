package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogforge/apiserver/internal/auth"
)

func TestBcryptHasherHash(t *testing.T) {
	hasher := auth.NewBcryptHasher(4)

	t.Run("produces a bcrypt digest", func(t *testing.T) {
		digest, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(digest, "$2a$"))
	})

	t.Run("same password produces different digests", func(t *testing.T) {
		first, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		second, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		assert.True(t, hasher.Verify("samepassword", first))
		assert.True(t, hasher.Verify("samepassword", second))
	})
}

func TestBcryptHasherVerify(t *testing.T) {
	hasher := auth.NewBcryptHasher(4)

	t.Run("correct password verifies", func(t *testing.T) {
		digest, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("correctpassword", digest))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		digest, err := hasher.Hash("correctpassword")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("wrongpassword", digest))
	})

	t.Run("garbage digest fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("password", "not-a-digest"))
	})
}

func TestNewBcryptHasherCostFallback(t *testing.T) {
	// An out-of-range cost must still yield a working hasher.
	hasher := auth.NewBcryptHasher(-1)
	digest, err := hasher.Hash("p")
	require.NoError(t, err)
	assert.True(t, hasher.Verify("p", digest))
}
