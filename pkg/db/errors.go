package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

const sqlStateUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-key conflict. Postgres
// driver errors are matched on SQLSTATE and constraint name; other drivers
// fall back to gorm's translated error and message wording. An empty
// constraintName matches any unique index.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code, constraint, ok := pkgerrors.PostgresCode(err); ok {
		if code != sqlStateUniqueViolation {
			return false
		}
		return constraintName == "" || constraint == constraintName
	}

	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
