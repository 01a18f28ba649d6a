package pool

import (
	"context"
	"database/sql"
	"sync"
)

// sqlConn adapts a *sql.Conn checked out of a standard-library *sql.DB into
// the Conn capability set. database/sql does not expose IsClosed or an
// auto-commit flag on a bare connection, so both are tracked locally: closed
// is flipped on Close, autoCommit defaults to true and is only ever turned
// off by a caller that explicitly wants implicit-transaction semantics.
type sqlConn struct {
	mu         sync.Mutex
	raw        *sql.Conn
	closed     bool
	autoCommit bool
}

func newSQLConn(raw *sql.Conn) *sqlConn {
	return &sqlConn{raw: raw, autoCommit: true}
}

func (c *sqlConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.raw.QueryContext(ctx, query, args...)
}

func (c *sqlConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.raw.QueryRowContext(ctx, query, args...)
}

func (c *sqlConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.raw.ExecContext(ctx, query, args...)
}

func (c *sqlConn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return c.raw.PrepareContext(ctx, query)
}

func (c *sqlConn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.raw.BeginTx(ctx, opts)
}

func (c *sqlConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *sqlConn) GetAutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit
}

func (c *sqlConn) SetAutoCommit(autoCommit bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoCommit = autoCommit
	return nil
}

func (c *sqlConn) Rollback() error {
	_, err := c.raw.ExecContext(context.Background(), "ROLLBACK")
	return err
}

func (c *sqlConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.raw.Close()
}

// identity returns a stable per-connection pointer value, used by LeaseProxy
// to derive equality/hash from the raw connection's identity.
func (c *sqlConn) identity() uintptr {
	return connIdentity(c.raw)
}

// sqlConnFactory is the ConnectionFactory backed by database/sql and a
// registered driver (mysql, postgres, sqlite3, ...). It owns the *sql.DB
// used purely as a connection-opening mechanism; the pool, not database/sql,
// enforces the admission limits.
type sqlConnFactory struct {
	db *sql.DB
}

// NewSQLConnFactory wraps an already-open *sql.DB as a ConnectionFactory.
// Callers should leave the *sql.DB's own pool limits effectively unbounded
// (or close to MaxActive) since pool.Pool is the layer enforcing admission.
func NewSQLConnFactory(db *sql.DB) ConnectionFactory {
	return &sqlConnFactory{db: db}
}

func (f *sqlConnFactory) Create(ctx context.Context) (Conn, error) {
	raw, err := f.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return newSQLConn(raw), nil
}
