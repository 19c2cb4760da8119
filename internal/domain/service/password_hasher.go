// Package service defines the collaborator contracts of the auth use cases.
// Implementations live under internal/infra.
package service

// PasswordHasher hashes and verifies plaintext passwords with a slow, salted,
// one-way algorithm. Two hashes of the same plaintext differ.
type PasswordHasher interface {
	Hash(password string) (string, error)

	// Check reports whether password matches hash. A mismatch is (false, nil);
	// an error means the stored hash is malformed.
	Check(password, hash string) (bool, error)
}
