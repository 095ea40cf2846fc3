package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	secret, digest, err := Generate()
	require.NoError(t, err)

	assert.Len(t, secret, 64)
	assert.Len(t, digest, 64)
	assert.NotEqual(t, secret, digest)
	assert.Equal(t, Digest(secret), digest)
}

func TestGenerateIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		secret, _, err := Generate()
		require.NoError(t, err)
		assert.False(t, seen[secret])
		seen[secret] = true
	}
}

func TestDigestIsStable(t *testing.T) {
	assert.Equal(t, Digest("abc"), Digest("abc"))
	assert.NotEqual(t, Digest("abc"), Digest("abd"))
}
