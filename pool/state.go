package pool

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// config holds the mutable, runtime-reconfigurable pool options (SPEC_FULL §3).
type config struct {
	driver string
	dsn    string

	maxActive            int
	maxIdle              int
	maxCheckoutTime      time.Duration
	waitTime             time.Duration
	maxLocalBadTolerance int

	pingEnabled    bool
	pingQuery      string
	pingNotUsedFor time.Duration
}

func defaultConfig() config {
	return config{
		maxActive:            10,
		maxIdle:              5,
		maxCheckoutTime:      20 * time.Second,
		waitTime:             20 * time.Second,
		maxLocalBadTolerance: 3,
		pingQuery:            "SELECT 1",
		pingNotUsedFor:       0,
	}
}

func typeCodeOf(driver, dsn string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(driver))
	h.Write([]byte{0})
	h.Write([]byte(dsn))
	return h.Sum64()
}

// poolState is the monitor-guarded shared state: idle/active lists, the
// running counters, and the mutable config. The "condition variable" is a
// channel that is closed (broadcasting to every waiter) and replaced on
// every notification, since sync.Cond offers no timeout or context support.
type poolState struct {
	mu     sync.Mutex
	waitCh chan struct{}

	idle   []*LeaseHandle
	active []*LeaseHandle

	expectedTypeCode uint64
	cfg              config
	closed           bool

	requestCount                     uint64
	accumulatedRequestTime           uint64 // millis
	accumulatedCheckoutTime          uint64 // millis
	accumulatedCheckoutTimeOfOverdue uint64 // millis
	accumulatedWaitTime              uint64 // millis
	claimedOverdueCount              uint64
	hadToWaitCount                   uint64
	badConnectionCount               uint64
}

func newPoolState(cfg config) *poolState {
	return &poolState{
		waitCh:           make(chan struct{}),
		cfg:              cfg,
		expectedTypeCode: typeCodeOf(cfg.driver, cfg.dsn),
	}
}

// notifyAll wakes every goroutine currently parked in timedWait. Must be
// called with mu held.
func (s *poolState) notifyAll() {
	close(s.waitCh)
	s.waitCh = make(chan struct{})
}

// timedWait releases the monitor, blocks until notifyAll, waitTime elapses,
// or ctx is cancelled, then re-acquires the monitor. Returns ErrInterrupted
// if ctx ended the wait. Must be called with mu held; returns with mu held.
func (s *poolState) timedWait(ctx context.Context, waitTime time.Duration) error {
	ch := s.waitCh
	s.mu.Unlock()
	defer s.mu.Lock()

	timer := time.NewTimer(waitTime)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ErrInterrupted
	}
}
