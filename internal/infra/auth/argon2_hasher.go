package auth

import (
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/errors"

	"github.com/matthewhartstonge/argon2"
)

// argon2Hasher hashes with argon2id and stores the PHC-encoded string, which
// carries its own salt and parameters.
type argon2Hasher struct {
	config argon2.Config
}

func newArgon2Hasher() *argon2Hasher {
	return &argon2Hasher{config: argon2.DefaultConfig()}
}

func (h *argon2Hasher) Hash(password string) (string, error) {
	encoded, err := h.config.HashEncoded([]byte(password))
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrHashingFailed, err.Error())
	}

	return string(encoded), nil
}

func (h *argon2Hasher) Check(password, hash string) (bool, error) {
	ok, err := argon2.VerifyEncoded([]byte(password), []byte(hash))
	if err != nil {
		return false, errors.Wrap(err, "malformed argon2 hash")
	}

	return ok, nil
}
