package auth

import (
	"strings"
	"testing"

	"campuseval/config"
	domainerrors "campuseval/internal/domain/errors"

	"campuseval/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasherConfig(hasher string) *config.Config {
	cfg := &config.Config{}
	cfg.Auth.Hasher = hasher
	cfg.Auth.BcryptCost = bcrypt.MinCost

	return cfg
}

func TestPasswordHasher_RoundTrip(t *testing.T) {
	for _, scheme := range []string{config.HasherBcrypt, config.HasherArgon2} {
		t.Run(scheme, func(t *testing.T) {
			hasher := NewPasswordHasher(newTestHasherConfig(scheme))

			first, err := hasher.Hash("secret1")
			require.NoError(t, err)
			second, err := hasher.Hash("secret1")
			require.NoError(t, err)

			assert.NotEqual(t, "secret1", first)
			assert.NotEqual(t, first, second, "hashes of the same password must be salted")

			ok, err := hasher.Check("secret1", first)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = hasher.Check("secret2", first)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPasswordHasher_SchemePrefixes(t *testing.T) {
	bcryptHash, err := NewPasswordHasher(newTestHasherConfig(config.HasherBcrypt)).Hash("pw")
	require.NoError(t, err)
	argonHash, err := NewPasswordHasher(newTestHasherConfig(config.HasherArgon2)).Hash("pw")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(bcryptHash, "$2"))
	assert.True(t, strings.HasPrefix(argonHash, "$argon2id$"))
}

func TestPasswordHasher_ChecksHashesFromOtherScheme(t *testing.T) {
	legacy, err := NewPasswordHasher(newTestHasherConfig(config.HasherBcrypt)).Hash("secret1")
	require.NoError(t, err)

	current := NewPasswordHasher(newTestHasherConfig(config.HasherArgon2))

	ok, err := current.Check("secret1", legacy)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(newTestHasherConfig(config.HasherBcrypt))

	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "plaintext", hash: "secret1"},
		{name: "truncated bcrypt", hash: "$2a$04$abc"},
		{name: "truncated argon2", hash: "$argon2id$v=19$m=65536"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := hasher.Check("secret1", tt.hash)
			assert.Error(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPasswordHasher_TooLongForBcrypt(t *testing.T) {
	hasher := NewPasswordHasher(newTestHasherConfig(config.HasherBcrypt))

	_, err := hasher.Hash(strings.Repeat("a", 73))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrHashingFailed))
}
