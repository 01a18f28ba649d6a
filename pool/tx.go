package pool

import (
	"context"
	"database/sql"
	"sync"
)

// Tx is a transaction running over one leased connection. It is the single
// operation that holds a lease across more than one statement; Commit and
// Rollback both return the lease exactly once, whichever runs first.
type Tx struct {
	lease *LeaseProxy
	sqlTx *sql.Tx
	once  sync.Once
}

func (t *Tx) release() {
	t.once.Do(func() {
		t.lease.Close()
	})
}

func (t *Tx) Commit() error {
	defer t.release()
	return t.sqlTx.Commit()
}

func (t *Tx) Rollback() error {
	defer t.release()
	return t.sqlTx.Rollback()
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.sqlTx.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.sqlTx.QueryRowContext(ctx, query, args...)
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.sqlTx.ExecContext(ctx, query, args...)
}
