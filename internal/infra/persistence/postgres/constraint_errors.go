package postgres

import (
	"strings"

	"campuseval/internal/errors"

	"gorm.io/gorm"
)

// isUniqueConstraintViolation matches both translated GORM errors and the raw
// driver messages of PostgreSQL (SQLSTATE 23505) and SQLite.
func isUniqueConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint failed") ||
		strings.Contains(errMsg, "23505")
}

func isNotNullConstraintViolation(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "null value") ||
		strings.Contains(errMsg, "not null constraint failed") ||
		strings.Contains(errMsg, "23502")
}
