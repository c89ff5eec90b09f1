package storage

import (
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"busticket/internal/errs"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFailedAt = "UNIQUE constraint failed: "
)

// Classify maps a raw persistence error onto the errs taxonomy. Unique
// violations on the users table become DuplicateEmail or DuplicateUsername
// depending on the offending index; connectivity failures become
// StorageUnavailable; everything else is Internal.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}

	if key, ok := uniqueViolationKey(err); ok {
		switch {
		case strings.HasSuffix(key, "username"):
			return &errs.Error{Kind: errs.KindDuplicateUsername, Detail: errs.ErrDuplicateUsername.Detail, Err: err}
		case strings.HasSuffix(key, "email"):
			return &errs.Error{Kind: errs.KindDuplicateEmail, Detail: errs.ErrDuplicateEmail.Detail, Err: err}
		default:
			return &errs.Error{Kind: errs.KindConflict, Detail: "record already exists", Err: err}
		}
	}

	if isUnavailable(err) {
		return errs.StorageUnavailable(err)
	}
	return errs.Internal(err)
}

// uniqueViolationKey extracts the violated index or column name. The key
// is empty when the driver reports a violation without naming it.
func uniqueViolationKey(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return pgErr.ConstraintName, true
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number != mysqlDuplicateEntry {
			return "", false
		}
		// Duplicate entry 'x' for key 'users.uq_users_email'
		_, key, _ := strings.Cut(myErr.Message, "for key ")
		return strings.Trim(key, "'` "), true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}

	// constraint failed: UNIQUE constraint failed: users.email (2067)
	if _, rest, ok := strings.Cut(err.Error(), sqliteUniqueFailedAt); ok {
		key, _, _ := strings.Cut(rest, " (")
		return strings.TrimSpace(key), true
	}
	return "", false
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysqldriver.ErrInvalidConn) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
