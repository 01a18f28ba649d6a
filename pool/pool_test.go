package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// countingFactory dials real sqlite connections against a shared on-disk
// database, counting how many times Create was invoked.
type countingFactory struct {
	db       *sql.DB
	attempts int32
}

func newCountingFactory(t *testing.T) *countingFactory {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pool_test.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(64)
	t.Cleanup(func() { db.Close() })
	return &countingFactory{db: db}
}

func (f *countingFactory) Create(ctx context.Context) (Conn, error) {
	atomic.AddInt32(&f.attempts, 1)
	raw, err := f.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return newSQLConn(raw), nil
}

// deadOnArrivalFactory hands back connections that are already closed, so
// every checkout attempt against it trips the bad-connection path.
type deadOnArrivalFactory struct {
	inner   *countingFactory
	created int32
}

func (f *deadOnArrivalFactory) Create(ctx context.Context) (Conn, error) {
	atomic.AddInt32(&f.created, 1)
	c, err := f.inner.Create(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.Close()
	return c, nil
}

func testPool(t *testing.T, factory ConnectionFactory, opts ...Option) *Pool {
	t.Helper()
	p := New(factory, "sqlite3", "pool_test", opts...)
	t.Cleanup(func() { p.Close() })
	return p
}

// 1. Basic serve-one: checkout, do work, close; idle grows, active shrinks.
func TestCheckoutCloseRoundTrip(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(1))

	lease, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := lease.ExecContext(context.Background(), "CREATE TABLE IF NOT EXISTS t (id INTEGER)"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	identity := lease.Identity()
	if err := lease.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	stats := p.Stats()
	if stats.Idle != 1 || stats.Active != 0 {
		t.Fatalf("expected idle=1 active=0, got idle=%d active=%d", stats.Idle, stats.Active)
	}
	if stats.RequestCount != 1 {
		t.Fatalf("expected requestCount=1, got %d", stats.RequestCount)
	}
	if stats.AccumulatedCheckoutTime == 0 {
		t.Fatalf("expected accumulatedCheckoutTime > 0")
	}

	// Checking out again with no contention must yield the same raw
	// connection identity, and must not dial a second connection.
	lease2, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if lease2.Identity() != identity {
		t.Fatalf("expected same raw connection identity across round-trip")
	}
	if atomic.LoadInt32(&factory.attempts) != 1 {
		t.Fatalf("expected exactly 1 factory dial, got %d", factory.attempts)
	}
	lease2.Close()
}

// Double close on the same proxy is a no-op after the first.
func TestDoubleCloseIsNoop(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(1))

	lease, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if err := lease.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := lease.Close(); err != nil {
		t.Fatalf("second close should be a silent no-op, got: %v", err)
	}
	if p.Stats().Idle != 1 {
		t.Fatalf("expected exactly one idle connection after double close, got %d", p.Stats().Idle)
	}
}

// A proxy invoked for anything but Close after its handle is invalidated
// fails with ErrLeaseInvalid.
func TestLeaseInvalidAfterReturn(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(1))

	lease, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	lease.Close()

	if _, err := lease.ExecContext(context.Background(), "SELECT 1"); !errors.Is(err, ErrLeaseInvalid) {
		t.Fatalf("expected ErrLeaseInvalid, got %v", err)
	}
}

// When maxIdle=0, every return hard-closes the raw connection.
func TestMaxIdleZeroHardCloses(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(0))

	lease, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	lease.Close()

	if p.Stats().Idle != 0 {
		t.Fatalf("expected idle=0 with maxIdle=0, got %d", p.Stats().Idle)
	}

	if _, err := p.Checkout(context.Background()); err != nil {
		t.Fatalf("second checkout should dial fresh: %v", err)
	}
	if atomic.LoadInt32(&factory.attempts) != 2 {
		t.Fatalf("expected 2 dials (no reuse with maxIdle=0), got %d", factory.attempts)
	}
}

// maxActive=1 serializes two concurrent callers: the second must wait for
// the first's Close, and hadToWaitCount increments exactly once regardless
// of how many timed-wait sweeps it takes.
func TestSaturationWait(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory,
		WithMaxActive(1), WithMaxIdle(1),
		WithMaxCheckoutTime(10*time.Second),
		WithWaitTime(30*time.Millisecond))

	leaseA, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout A: %v", err)
	}

	done := make(chan struct{})
	var leaseBErr error
	go func() {
		defer close(done)
		time.Sleep(60 * time.Millisecond)
		leaseA.Close()
	}()

	start := time.Now()
	leaseB, errB := p.Checkout(context.Background())
	leaseBErr = errB
	elapsed := time.Since(start)
	<-done

	if leaseBErr != nil {
		t.Fatalf("checkout B: %v", leaseBErr)
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("expected B to block until A closed, only waited %v", elapsed)
	}
	if p.Stats().HadToWaitCount != 1 {
		t.Fatalf("expected hadToWaitCount=1, got %d", p.Stats().HadToWaitCount)
	}
	leaseB.Close()
}

// Overdue reclamation triggers iff leaseAge > maxCheckoutTime; at exactly
// the threshold it must not fire.
func TestOverdueReclamation(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(1), WithMaxCheckoutTime(100*time.Millisecond))

	leaseA, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout A: %v", err)
	}
	identityA := leaseA.Identity()

	time.Sleep(150 * time.Millisecond)

	leaseB, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout B: %v", err)
	}
	if leaseB.Identity() != identityA {
		t.Fatalf("expected B to reclaim A's raw connection")
	}
	if p.Stats().ClaimedOverdueCount != 1 {
		t.Fatalf("expected claimedOverdueCount=1, got %d", p.Stats().ClaimedOverdueCount)
	}

	// A's old proxy is now permanently inert.
	if _, err := leaseA.ExecContext(context.Background(), "SELECT 1"); !errors.Is(err, ErrLeaseInvalid) {
		t.Fatalf("expected A's proxy to be invalid, got %v", err)
	}
	// A's close is a silent no-op; it must not disturb B's lease.
	if err := leaseA.Close(); err != nil {
		t.Fatalf("A close should be a no-op, got %v", err)
	}
	if p.Stats().Active != 1 {
		t.Fatalf("expected B's lease to remain active, got active=%d", p.Stats().Active)
	}
	leaseB.Close()
}

// At exactly the maxCheckoutTime threshold, reclamation does not fire.
func TestOverdueBoundaryExact(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(1), WithMaxCheckoutTime(24*time.Hour))

	lease, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	p.state.mu.Lock()
	oldest := p.state.active[0]
	oldest.checkedOutAt = nowMillis() - p.state.cfg.maxCheckoutTime.Milliseconds()
	p.state.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Checkout(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected second caller to block (not reclaim at exact threshold), got %v", err)
	}
	if p.Stats().ClaimedOverdueCount != 0 {
		t.Fatalf("reclamation must not fire exactly at the threshold")
	}
	lease.Close()
}

// Factory produces connections that immediately report isClosed=true;
// the ceiling is maxIdle + maxLocalBadTolerance, strict inequality.
func TestBadConnectionCeiling(t *testing.T) {
	inner := newCountingFactory(t)
	factory := &deadOnArrivalFactory{inner: inner}
	p := testPool(t, factory, WithMaxActive(10), WithMaxIdle(2), WithMaxLocalBadTolerance(3))

	_, err := p.Checkout(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if got := atomic.LoadInt32(&factory.created); got != 6 {
		t.Fatalf("expected exactly 6 factory attempts (2+3+1), got %d", got)
	}
	if p.Stats().BadConnectionCount != 6 {
		t.Fatalf("expected badConnectionCount=6, got %d", p.Stats().BadConnectionCount)
	}
}

// Reconfiguration: ForceCloseAll (triggered by a cap change) hard-closes an
// outstanding lease's raw connection and invalidates its handle, so the
// proxy fails with ErrLeaseInvalid and its eventual Close re-parks nothing.
func TestReconfigurationInvalidatesOutstandingLease(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(1))

	lease, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	p.SetMaxActive(2) // any cap/credential change triggers ForceCloseAll

	if _, err := lease.ExecContext(context.Background(), "SELECT 1"); !errors.Is(err, ErrLeaseInvalid) {
		t.Fatalf("expected ErrLeaseInvalid after reconfiguration, got %v", err)
	}
	if err := lease.Close(); err != nil {
		t.Fatalf("stale close should be a silent no-op, got %v", err)
	}
	if p.Stats().Idle != 0 {
		t.Fatalf("expected idle=0 after reconfiguration, got %d", p.Stats().Idle)
	}
}

// Ping cool-down: a freshly parked lease below pingNotUsedFor is served
// without a probe; once the cool-down elapses, the probe runs.
func TestPingCooldown(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory,
		WithMaxActive(1), WithMaxIdle(1),
		WithPing(true, "SELECT 1", 200*time.Millisecond))

	lease, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	lease.Close()

	time.Sleep(30 * time.Millisecond)
	lease2, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout within cool-down: %v", err)
	}
	if atomic.LoadInt32(&factory.attempts) != 1 {
		t.Fatalf("checkout within cool-down should not have dialed a new connection")
	}
	lease2.Close()

	time.Sleep(250 * time.Millisecond)
	lease3, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout past cool-down: %v", err)
	}
	lease3.Close()
}

// Invariant: at all times len(active) <= maxActive and len(idle) <= maxIdle,
// exercised under concurrent checkout/close churn.
func TestInvariantsUnderConcurrency(t *testing.T) {
	factory := newCountingFactory(t)
	const maxActive, maxIdle = 4, 2
	p := testPool(t, factory,
		WithMaxActive(maxActive), WithMaxIdle(maxIdle),
		WithMaxCheckoutTime(5*time.Second), WithWaitTime(10*time.Millisecond))

	var wg sync.WaitGroup
	var violations int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				lease, err := p.Checkout(ctx)
				cancel()
				if err != nil {
					continue
				}
				st := p.Stats()
				if st.Active > maxActive || st.Idle > maxIdle {
					atomic.AddInt32(&violations, 1)
				}
				lease.Close()
			}
		}()
	}
	wg.Wait()

	if violations != 0 {
		t.Fatalf("observed %d invariant violations", violations)
	}
	if p.Stats().RequestCount == 0 {
		t.Fatalf("expected some successful checkouts to be recorded")
	}
}

func TestForceCloseAllClearsBothLists(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(2), WithMaxIdle(2))

	l1, _ := p.Checkout(context.Background())
	l2, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	l1.Close()

	p.ForceCloseAll()

	st := p.Stats()
	if st.Idle != 0 || st.Active != 0 {
		t.Fatalf("expected empty idle/active after ForceCloseAll, got idle=%d active=%d", st.Idle, st.Active)
	}
	// l2's proxy is now inert; its eventual close must not panic or re-park.
	if err := l2.Close(); err != nil {
		t.Fatalf("stale close after ForceCloseAll: %v", err)
	}
	if p.Stats().Idle != 0 {
		t.Fatalf("stale close must not re-park a connection from a superseded configuration")
	}
}

func TestCheckoutFailsOnClosedPool(t *testing.T) {
	factory := newCountingFactory(t)
	p := New(factory, "sqlite3", "pool_test", WithMaxActive(1), WithMaxIdle(1))
	p.Close()

	if _, err := p.Checkout(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestStatusString(t *testing.T) {
	factory := newCountingFactory(t)
	p := testPool(t, factory, WithMaxActive(1), WithMaxIdle(1))
	lease, _ := p.Checkout(context.Background())
	lease.Close()

	status := p.StatusString()
	if status == "" {
		t.Fatalf("expected non-empty status string")
	}
	fmt.Println(status) // human-readable, not asserted beyond non-emptiness
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
