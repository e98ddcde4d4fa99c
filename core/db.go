package core

import (
	"context"
	"database/sql"
)

// DBExecutor is satisfied by *sql.DB, *sql.Tx and their sqlx wrappers.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Transactor runs fn inside a single database transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
// Repository calls made inside fn must be given exec.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(exec DBExecutor) error) error
}

// DBOrdering is one ORDER BY term. The zero value sorts descending.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (o DBOrdering) String() string {
	if o.Ascending {
		return o.Field + " ASC"
	}
	return o.Field + " DESC"
}
