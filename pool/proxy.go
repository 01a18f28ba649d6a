package pool

import (
	"context"
	"database/sql"
)

// LeaseProxy is the caller-facing view of a lease. It forwards every Conn
// method to the underlying raw connection except Close, which returns the
// lease to the owning Pool instead of destroying the transport.
type LeaseProxy struct {
	pool   *Pool
	handle *LeaseHandle
}

func newLeaseProxy(p *Pool, h *LeaseHandle) *LeaseProxy {
	proxy := &LeaseProxy{pool: p, handle: h}
	h.proxy = proxy
	return proxy
}

// Identity derives from the raw connection's own identity, not the lease's,
// so two proxies obtained across a return/re-checkout of the same raw
// connection compare unequal as leases but share this identity.
func (p *LeaseProxy) Identity() uintptr {
	if sc, ok := p.handle.raw.(*sqlConn); ok {
		return sc.identity()
	}
	return 0
}

func (p *LeaseProxy) checkValid() error {
	p.pool.state.mu.Lock()
	defer p.pool.state.mu.Unlock()
	if !p.handle.valid {
		return ErrLeaseInvalid
	}
	return nil
}

func (p *LeaseProxy) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := p.checkValid(); err != nil {
		return nil, err
	}
	return p.handle.raw.QueryContext(ctx, query, args...)
}

func (p *LeaseProxy) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	if err := p.checkValid(); err != nil {
		return nil
	}
	return p.handle.raw.QueryRowContext(ctx, query, args...)
}

func (p *LeaseProxy) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := p.checkValid(); err != nil {
		return nil, err
	}
	return p.handle.raw.ExecContext(ctx, query, args...)
}

func (p *LeaseProxy) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	if err := p.checkValid(); err != nil {
		return nil, err
	}
	return p.handle.raw.PrepareContext(ctx, query)
}

func (p *LeaseProxy) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	if err := p.checkValid(); err != nil {
		return nil, err
	}
	return p.handle.raw.BeginTx(ctx, opts)
}

func (p *LeaseProxy) IsClosed() bool {
	if err := p.checkValid(); err != nil {
		return true
	}
	return p.handle.raw.IsClosed()
}

func (p *LeaseProxy) GetAutoCommit() bool {
	if err := p.checkValid(); err != nil {
		return false
	}
	return p.handle.raw.GetAutoCommit()
}

func (p *LeaseProxy) SetAutoCommit(autoCommit bool) error {
	if err := p.checkValid(); err != nil {
		return err
	}
	return p.handle.raw.SetAutoCommit(autoCommit)
}

func (p *LeaseProxy) Rollback() error {
	if err := p.checkValid(); err != nil {
		return err
	}
	return p.handle.raw.Rollback()
}

// Close intercepts the lease boundary: it returns the handle to the pool
// instead of closing the raw transport. A second Close on the same proxy
// observes a handle already invalidated by the first and is a silent no-op.
func (p *LeaseProxy) Close() error {
	p.pool.returnLease(p.handle)
	return nil
}
