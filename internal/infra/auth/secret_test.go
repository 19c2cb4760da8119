package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretGenerator_NewSecret(t *testing.T) {
	gen := NewSecretGenerator()
	seen := make(map[string]struct{})

	for range 100 {
		secret, err := gen.NewSecret()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(secret)
		require.NoError(t, err)
		assert.Len(t, raw, secretBytes)

		_, dup := seen[secret]
		assert.False(t, dup)
		seen[secret] = struct{}{}
	}
}

func TestHashSecret(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashSecret("abc"))
}
