package pool

import "time"

// LeaseHandle is the pool-internal record for one raw connection the pool
// has ever held. Exactly one of {parked in idle, parked in active,
// discarded} is true of any handle at a time; once valid is false the
// handle must never be used to reach raw again.
type LeaseHandle struct {
	raw   Conn
	proxy *LeaseProxy

	// typeCode fingerprints the (driver, dsn) pair in effect when this
	// handle was parked. A handle returned with a stale typeCode was
	// leased under a configuration that no longer applies.
	typeCode uint64

	createdAt    int64 // unix millis
	lastUsedAt   int64
	checkedOutAt int64

	valid bool
}

func newLeaseHandle(raw Conn, typeCode uint64) *LeaseHandle {
	now := nowMillis()
	return &LeaseHandle{
		raw:        raw,
		typeCode:   typeCode,
		createdAt:  now,
		lastUsedAt: now,
		valid:      true,
	}
}

// reparkedFrom builds a fresh handle over the same raw connection as prev,
// preserving its createdAt/lastUsedAt. prev is left untouched by this call;
// the caller is responsible for invalidating prev once the new handle has
// taken over, per the invalidate-on-return pattern.
func reparkedFrom(prev *LeaseHandle, typeCode uint64) *LeaseHandle {
	return &LeaseHandle{
		raw:        prev.raw,
		typeCode:   typeCode,
		createdAt:  prev.createdAt,
		lastUsedAt: prev.lastUsedAt,
		valid:      true,
	}
}

func (h *LeaseHandle) invalidate() {
	h.valid = false
}

func (h *LeaseHandle) checkoutAge(now int64) time.Duration {
	return time.Duration(now-h.checkedOutAt) * time.Millisecond
}

func (h *LeaseHandle) idleAge(now int64) time.Duration {
	return time.Duration(now-h.lastUsedAt) * time.Millisecond
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
