package pool

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Option configures a Pool at construction time.
type Option func(*config)

func WithMaxActive(n int) Option { return func(c *config) { c.maxActive = n } }
func WithMaxIdle(n int) Option   { return func(c *config) { c.maxIdle = n } }
func WithMaxCheckoutTime(d time.Duration) Option {
	return func(c *config) { c.maxCheckoutTime = d }
}
func WithWaitTime(d time.Duration) Option { return func(c *config) { c.waitTime = d } }
func WithMaxLocalBadTolerance(n int) Option {
	return func(c *config) { c.maxLocalBadTolerance = n }
}
func WithPing(enabled bool, query string, notUsedFor time.Duration) Option {
	return func(c *config) {
		c.pingEnabled = enabled
		c.pingQuery = query
		c.pingNotUsedFor = notUsedFor
	}
}

// Pool is the bounded, synchronous connection pool described by SPEC_FULL §4.
// All state transitions happen under state.mu; the only suspension point is
// the timed wait inside Checkout.
type Pool struct {
	state   *poolState
	factory ConnectionFactory
	health  *healthChecker
}

// New constructs a Pool over factory, admitting connections fingerprinted by
// (driver, dsn). driver/dsn participate only in the type-code fingerprint
// used to detect stale handles after reconfiguration; the factory is what
// actually dials connections.
func New(factory ConnectionFactory, driver, dsn string, opts ...Option) *Pool {
	cfg := defaultConfig()
	cfg.driver = driver
	cfg.dsn = dsn
	for _, opt := range opts {
		opt(&cfg)
	}
	st := newPoolState(cfg)
	return &Pool{
		state:   st,
		factory: factory,
		health:  newHealthChecker(&st.cfg),
	}
}

// Checkout runs the admission algorithm (SPEC_FULL §4.3) until a usable
// lease is produced or a fatal condition is reached.
func (p *Pool) Checkout(ctx context.Context) (*LeaseProxy, error) {
	attemptStart := nowMillis()
	localBad := 0
	hasWaited := false

	p.state.mu.Lock()
	defer p.state.mu.Unlock()

	for {
		if p.state.closed {
			return nil, ErrPoolClosed
		}

		handle, err := p.admit(ctx, &hasWaited)
		if err != nil {
			return nil, err
		}
		if handle == nil {
			// admit() returned nil, nil only when it chose to wait; loop again.
			continue
		}

		if p.health.isUsable(ctx, handle) {
			now := nowMillis()
			if !handle.raw.GetAutoCommit() {
				_ = handle.raw.Rollback()
			}
			handle.typeCode = p.state.expectedTypeCode
			handle.checkedOutAt = now
			handle.lastUsedAt = now
			p.state.active = append(p.state.active, handle)
			p.state.requestCount++
			p.state.accumulatedRequestTime += uint64(now - attemptStart)
			return newLeaseProxy(p, handle), nil
		}

		p.state.badConnectionCount++
		localBad++
		_ = handle.raw.Close()
		if localBad > p.state.cfg.maxIdle+p.state.cfg.maxLocalBadTolerance {
			return nil, fmt.Errorf("%w: %d consecutive bad connections", ErrUnreachable, localBad)
		}
	}
}

// admit performs one iteration of steps 1-3 of the checkout algorithm. It
// returns a handle to validate, or (nil, nil) if it waited and the caller
// should re-run admit from the top. hasWaited tracks, across the calling
// Checkout's whole attempt, whether hadToWaitCount has already been bumped.
// Must be called with state.mu held.
func (p *Pool) admit(ctx context.Context, hasWaited *bool) (*LeaseHandle, error) {
	s := p.state

	if n := len(s.idle); n > 0 {
		handle := s.idle[0]
		s.idle = s.idle[1:]
		return handle, nil
	}

	if len(s.active) < s.cfg.maxActive {
		raw, err := p.factory.Create(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
		}
		return newLeaseHandle(raw, s.expectedTypeCode), nil
	}

	oldest := s.active[0]
	now := nowMillis()
	if oldest.checkoutAge(now) > s.cfg.maxCheckoutTime {
		s.active = s.active[1:]
		s.claimedOverdueCount++
		age := uint64(oldest.checkoutAge(now).Milliseconds())
		s.accumulatedCheckoutTimeOfOverdue += age
		s.accumulatedCheckoutTime += age
		if !oldest.raw.GetAutoCommit() {
			_ = oldest.raw.Rollback()
		}
		fresh := reparkedFrom(oldest, s.expectedTypeCode)
		oldest.invalidate()
		return fresh, nil
	}

	if !*hasWaited {
		s.hadToWaitCount++
		*hasWaited = true
	}
	waitStart := nowMillis()
	err := s.timedWait(ctx, s.cfg.waitTime)
	s.accumulatedWaitTime += uint64(nowMillis() - waitStart)
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// returnLease implements SPEC_FULL §4.4. Invoked by LeaseProxy.Close and by
// Tx.Commit/Tx.Rollback. A handle already invalidated by a prior return, an
// overdue reclamation or ForceCloseAll is discarded silently, without being
// counted or closed: the double-close/double-return is a no-op.
func (p *Pool) returnLease(handle *LeaseHandle) {
	s := p.state
	s.mu.Lock()
	defer s.mu.Unlock()

	removeHandle(&s.active, handle)

	if !handle.valid || handle.typeCode != s.expectedTypeCode {
		// An invalid handle has been superseded: ForceCloseAll already closed
		// its raw connection, or a prior return or an overdue reclamation
		// handed that connection to a fresh handle. It is neither counted
		// in badConnectionCount nor closed here.
		if handle.valid {
			s.badConnectionCount++
			_ = handle.raw.Close()
			handle.invalidate()
		}
		return
	}

	now := nowMillis()
	s.accumulatedCheckoutTime += uint64(handle.checkoutAge(now).Milliseconds())
	if !handle.raw.GetAutoCommit() {
		_ = handle.raw.Rollback()
	}

	if len(s.idle) < s.cfg.maxIdle {
		fresh := reparkedFrom(handle, s.expectedTypeCode)
		s.idle = append(s.idle, fresh)
		handle.invalidate()
		s.notifyAll()
		return
	}

	_ = handle.raw.Close()
	handle.invalidate()
}

// ForceCloseAll implements SPEC_FULL §4.5. Every setter that changes
// credentials or a capacity calls this under the monitor.
func (p *Pool) ForceCloseAll() {
	s := p.state
	s.mu.Lock()
	defer s.mu.Unlock()
	p.forceCloseAllLocked()
}

func (p *Pool) forceCloseAllLocked() {
	s := p.state
	s.expectedTypeCode = typeCodeOf(s.cfg.driver, s.cfg.dsn)

	for _, h := range s.active {
		if !h.raw.GetAutoCommit() {
			_ = h.raw.Rollback()
		}
		_ = h.raw.Close()
		h.invalidate()
	}
	s.active = nil

	for _, h := range s.idle {
		if !h.raw.GetAutoCommit() {
			_ = h.raw.Rollback()
		}
		_ = h.raw.Close()
		h.invalidate()
	}
	s.idle = nil

	s.notifyAll()
}

// Close force-closes every connection and marks the pool unusable.
func (p *Pool) Close() error {
	p.state.mu.Lock()
	defer p.state.mu.Unlock()
	p.forceCloseAllLocked()
	p.state.closed = true
	return nil
}

// --- Reconfiguration setters: each triggers ForceCloseAll. ---

func (p *Pool) SetDriverDSN(driver, dsn string) {
	s := p.state
	s.mu.Lock()
	s.cfg.driver = driver
	s.cfg.dsn = dsn
	p.forceCloseAllLocked()
	s.mu.Unlock()
}

func (p *Pool) SetMaxActive(n int) {
	s := p.state
	s.mu.Lock()
	s.cfg.maxActive = n
	p.forceCloseAllLocked()
	s.mu.Unlock()
}

func (p *Pool) SetMaxIdle(n int) {
	s := p.state
	s.mu.Lock()
	s.cfg.maxIdle = n
	p.forceCloseAllLocked()
	s.mu.Unlock()
}

func (p *Pool) SetMaxCheckoutTime(d time.Duration) {
	s := p.state
	s.mu.Lock()
	s.cfg.maxCheckoutTime = d
	s.mu.Unlock()
}

func (p *Pool) SetWaitTime(d time.Duration) {
	s := p.state
	s.mu.Lock()
	s.cfg.waitTime = d
	s.mu.Unlock()
}

func (p *Pool) SetMaxLocalBadTolerance(n int) {
	s := p.state
	s.mu.Lock()
	s.cfg.maxLocalBadTolerance = n
	s.mu.Unlock()
}

func (p *Pool) SetPingEnabled(enabled bool) {
	s := p.state
	s.mu.Lock()
	s.cfg.pingEnabled = enabled
	s.mu.Unlock()
}

func (p *Pool) SetPingQuery(query string) {
	s := p.state
	s.mu.Lock()
	s.cfg.pingQuery = query
	s.mu.Unlock()
}

func (p *Pool) SetPingNotUsedFor(d time.Duration) {
	s := p.state
	s.mu.Lock()
	s.cfg.pingNotUsedFor = d
	s.mu.Unlock()
}

// --- Executor forwarding: one implicit checkout+return per call. ---

func (p *Pool) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	lease, err := p.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Close()
	return lease.ExecContext(ctx, query, args...)
}

func (p *Pool) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	lease, err := p.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Close()
	return lease.QueryContext(ctx, query, args...)
}

func (p *Pool) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	lease, err := p.Checkout(ctx)
	if err != nil {
		return nil
	}
	defer lease.Close()
	return lease.QueryRowContext(ctx, query, args...)
}

// Begin checks out a lease for the lifetime of a transaction: unlike the
// single-statement Executor methods above, the lease is not returned until
// the returned Tx commits or rolls back.
func (p *Pool) Begin(ctx context.Context) (*Tx, error) {
	lease, err := p.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	sqlTx, err := lease.BeginTx(ctx, nil)
	if err != nil {
		lease.Close()
		return nil, err
	}
	return &Tx{lease: lease, sqlTx: sqlTx}, nil
}

func removeHandle(list *[]*LeaseHandle, target *LeaseHandle) {
	for i, h := range *list {
		if h == target {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// StatusString renders a human-readable snapshot, in the module's own log
// line shape, for operators inspecting pool health.
func (p *Pool) StatusString() string {
	st := p.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "pool: active=%d idle=%d requests=%d waited=%d overdue=%d badConns=%d",
		st.Active, st.Idle, st.RequestCount, st.HadToWaitCount, st.ClaimedOverdueCount, st.BadConnectionCount)
	return b.String()
}
