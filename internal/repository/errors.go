package repository

import (
	"errors"
	"strings"

	"femcircle/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"

	usernameIndex = "ux_users_username_ci"
	emailIndex    = "ux_users_email_ci"
)

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
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

// duplicateUserError names the violated user index, or returns nil when the
// driver did not say which one.
func duplicateUserError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case usernameIndex:
			return models.ErrDuplicateUsername
		case emailIndex:
			return models.ErrDuplicateEmail
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, usernameIndex), strings.Contains(msg, "users.username"):
		return models.ErrDuplicateUsername
	case strings.Contains(msg, emailIndex), strings.Contains(msg, "users.email"):
		return models.ErrDuplicateEmail
	}
	return nil
}
