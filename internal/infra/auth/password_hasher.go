package auth

import (
	"strings"

	"campuseval/config"
	"campuseval/internal/domain/service"
	"campuseval/internal/errors"
)

// ErrUnknownHashFormat is returned when a stored hash matches no supported scheme.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// passwordHasher hashes new passwords with the configured scheme and checks
// stored hashes with whichever scheme produced them, so switching
// auth.hasher does not lock out existing accounts.
type passwordHasher struct {
	primary service.PasswordHasher
	bcrypt  *bcryptHasher
	argon2  *argon2Hasher
}

// NewPasswordHasher is the fx constructor for service.PasswordHasher.
func NewPasswordHasher(cfg *config.Config) service.PasswordHasher {
	h := &passwordHasher{
		bcrypt: newBcryptHasher(cfg.Auth.BcryptCost),
		argon2: newArgon2Hasher(),
	}

	h.primary = h.bcrypt
	if cfg.Auth.Hasher == config.HasherArgon2 {
		h.primary = h.argon2
	}

	return h
}

func (h *passwordHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

func (h *passwordHasher) Check(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "$argon2"):
		return h.argon2.Check(password, hash)
	case strings.HasPrefix(hash, "$2"):
		return h.bcrypt.Check(password, hash)
	default:
		return false, ErrUnknownHashFormat
	}
}
