package pool

import (
	"context"
	"database/sql"
)

// Conn is the capability set of a raw transport connection that the pool
// manages and that LeaseProxy forwards transparently to callers.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)

	// IsClosed reports whether the underlying transport has already been closed.
	IsClosed() bool
	// GetAutoCommit reports whether the connection currently runs without an implicit transaction.
	GetAutoCommit() bool
	// SetAutoCommit toggles auto-commit. Rollback only has an effect when auto-commit is off.
	SetAutoCommit(autoCommit bool) error
	// Rollback rolls back any implicit transaction left open on the connection.
	Rollback() error
	// Close releases the underlying transport. Never called directly by a lessee;
	// only the pool closes raw connections.
	Close() error
}

// ConnectionFactory produces a fresh transport connection or fails.
// The pool never retries at this layer.
type ConnectionFactory interface {
	Create(ctx context.Context) (Conn, error)
}
