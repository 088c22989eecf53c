// Package repository defines the persistence contract used by the
// reservation core together with its adapters (memory, MySQL, PostgreSQL)
// and the staff account / refresh token repositories.  Sentinel errors in
// this file allow higher layers to distinguish between failure scenarios
// without depending on a particular driver.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a document or row with the requested key
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionMismatch is returned by conditional writes when the stored
// version differs from the one the caller read.  The service translates it
// into a concurrent-modification conflict.
var ErrVersionMismatch = errors.New("version mismatch")

// ErrEmailExists is returned when a staff account is created with a
// username or email that is already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidQuery is returned by QueryFiltered when the offset or limit is
// negative.
var ErrInvalidQuery = errors.New("invalid query")

// isDuplicateKey reports whether err is a unique-constraint violation from
// either SQL driver (MySQL 1062, PostgreSQL 23505).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}
