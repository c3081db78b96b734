package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// uniqueField names the column behind a unique violation when the driver says so.
func uniqueField(err error, fields ...string) string {
	var pgErr *pgconn.PgError
	source := strings.ToLower(err.Error())
	if errors.As(err, &pgErr) {
		source = strings.ToLower(pgErr.ConstraintName + " " + pgErr.Detail)
	}
	for _, f := range fields {
		if strings.Contains(source, f) {
			return f
		}
	}
	return ""
}
