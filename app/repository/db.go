package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateEntry marks an insert rejected by a unique constraint. The
// schema's unique indexes on users.email and oauth_accounts(provider,
// provider_account_id) are the only concurrency control for check-then-insert
// sequences; callers turn this into a domain conflict or a retry instead of
// a generic failure.
var ErrDuplicateEntry = errors.New("duplicate entry")

const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so repositories can be
// scoped to a transaction when a protocol needs insert-then-read
// consistency.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
