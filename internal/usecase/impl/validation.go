package impl

import (
	"strconv"

	"campuseval/config"
	"campuseval/internal/domain/entity"
	domainerrors "campuseval/internal/domain/errors"

	"github.com/go-playground/validator/v10"
)

// maxPasswordBytes is the longest input bcrypt hashes without truncation.
const maxPasswordBytes = 72

type credentialValidator struct {
	validate          *validator.Validate
	minPasswordLength int
}

func newCredentialValidator(cfg *config.Config) *credentialValidator {
	minLength := config.DefaultPasswordMinLength
	if cfg != nil && cfg.Auth.PasswordMinLength > 0 {
		minLength = cfg.Auth.PasswordMinLength
	}

	return &credentialValidator{
		validate:          validator.New(),
		minPasswordLength: minLength,
	}
}

// email returns the normalized address or a validation error.
func (v *credentialValidator) email(raw string) (string, error) {
	email := entity.NormalizeEmail(raw)
	if err := v.validate.Var(email, "required,email"); err != nil {
		return "", domainerrors.ErrValidationFailed.WithDetails("email must be a valid address")
	}

	return email, nil
}

func (v *credentialValidator) password(password string) error {
	switch {
	case password == "":
		return domainerrors.ErrValidationFailed.WithDetails("password is required")
	case len([]rune(password)) < v.minPasswordLength:
		return domainerrors.ErrValidationFailed.WithDetails(
			"password must be at least " + strconv.Itoa(v.minPasswordLength) + " characters")
	case len(password) > maxPasswordBytes:
		return domainerrors.ErrValidationFailed.WithDetails(
			"password must be at most " + strconv.Itoa(maxPasswordBytes) + " bytes")
	}

	return nil
}
