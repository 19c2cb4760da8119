package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
)

const secretBytes = 32

type secretGenerator struct{}

// NewSecretGenerator returns a generator of 256-bit URL-safe secrets.
func NewSecretGenerator() service.SecretGenerator {
	return secretGenerator{}
}

func (secretGenerator) NewSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the hex SHA-256 digest under which a bearer secret is
// stored. The secrets are high-entropy, so an unsalted fast hash suffices.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:])
}
