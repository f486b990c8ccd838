package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString    = errors.New("pg: connection string is empty (PG_CONN_URL)")
	ErrFailedToParseDBConfig    = errors.New("pg: invalid connection config")
	ErrFailedToOpenDBConnection = errors.New("pg: database unreachable")
	ErrHealthcheckFailed        = errors.New("pg: healthcheck failed")
	ErrMigrationPathNotProvided = errors.New("pg: migrations fs or dir not set")
	ErrMigrationsDirNotFound    = errors.New("pg: migrations dir not found")
	ErrFailedToApplyMigrations  = errors.New("pg: migrations failed")
)

const (
	sqlStateForeignKeyViolation = "23503"
	sqlStateUniqueViolation     = "23505"
)

// IsNotFoundError reports whether a single-row query matched nothing.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return sqlState(err) == sqlStateUniqueViolation
}

// IsForeignKeyViolationError reports a write that references a missing row,
// e.g. a device token for a user that is not in the directory.
func IsForeignKeyViolationError(err error) bool {
	return sqlState(err) == sqlStateForeignKeyViolation
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
