package db

import "strings"

// IsUniqueViolation reports whether err looks like a Postgres unique
// constraint violation. When constraintName is given the error message must
// mention that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
