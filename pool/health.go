package pool

import "context"

// healthChecker decides whether a parked or freshly reclaimed handle is
// still usable before it is handed to a caller. It is invoked by Pool while
// the monitor is already held, so it never locks anything itself.
type healthChecker struct {
	cfg *config
}

func newHealthChecker(cfg *config) *healthChecker {
	return &healthChecker{cfg: cfg}
}

// isUsable combines the three checks from SPEC_FULL §4.2, in order:
// validity, closed-ness, and (subject to cool-down) an active ping.
func (h *healthChecker) isUsable(ctx context.Context, handle *LeaseHandle) bool {
	if !handle.valid {
		return false
	}
	if handle.raw.IsClosed() {
		return false
	}
	if !h.cfg.pingEnabled {
		return true
	}
	if handle.idleAge(nowMillis()) <= h.cfg.pingNotUsedFor {
		return true
	}
	return h.ping(ctx, handle)
}

func (h *healthChecker) ping(ctx context.Context, handle *LeaseHandle) bool {
	row := handle.raw.QueryRowContext(ctx, h.cfg.pingQuery)
	var discard any
	if err := row.Scan(&discard); err != nil {
		_ = handle.raw.Close()
		return false
	}
	if handle.raw.IsClosed() {
		return false
	}
	if !handle.raw.GetAutoCommit() {
		_ = handle.raw.Rollback()
	}
	return true
}
