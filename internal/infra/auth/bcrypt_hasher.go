// Package auth provides the credential primitives behind the domain services:
// password hashing, JWT session artifacts and random secrets.
package auth

import (
	domainerrors "campuseval/internal/domain/errors"
	"campuseval/internal/errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptHasher hashes with bcrypt. Salts are generated per hash by bcrypt.
type bcryptHasher struct {
	cost int
}

func newBcryptHasher(cost int) *bcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(domainerrors.ErrHashingFailed, err.Error())
	}

	return string(hashed), nil
}

func (h *bcryptHasher) Check(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, errors.Wrap(err, "malformed bcrypt hash")
}
