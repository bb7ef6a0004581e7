// Package store abstracts transactional access to Postgres. Repositories
// speak to a Querier, which both *sql.DB and *sql.Tx satisfy, so the same
// repository code runs standalone or inside a serializable transaction.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of database/sql both *sql.DB and *sql.Tx implement.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Transactor runs a function inside an atomic transaction. The function must
// perform all its reads before staging any writes; the transaction commits
// as a whole or not at all.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Querier) error) error
}

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsSerializationFailure reports whether err is a Postgres serialization
// conflict that is safe to retry.
func IsSerializationFailure(err error) bool {
	code := pgCode(err)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
// The slot table's natural primary key turns a lost occupancy race into
// exactly this error.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}
