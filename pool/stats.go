package pool

// Stats is a point-in-time, read-only snapshot of a Pool's counters and
// sizes (SPEC_FULL §4.6). Unlike soyvural-connpool's Stats, which is an
// interface backed by live atomic counters, this pool takes its entire
// snapshot under the monitor in one step, so the fields here are a plain
// value type rather than a second layer of indirection.
type Stats struct {
	Active int
	Idle   int

	RequestCount                     uint64
	AccumulatedRequestTime           uint64 // millis
	AccumulatedCheckoutTime          uint64 // millis
	AccumulatedCheckoutTimeOfOverdue uint64 // millis
	AccumulatedWaitTime              uint64 // millis
	ClaimedOverdueCount              uint64
	HadToWaitCount                   uint64
	BadConnectionCount               uint64
}

// Stats returns a snapshot of the pool's current counters and sizes.
func (p *Pool) Stats() Stats {
	s := p.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Active:                           len(s.active),
		Idle:                             len(s.idle),
		RequestCount:                     s.requestCount,
		AccumulatedRequestTime:           s.accumulatedRequestTime,
		AccumulatedCheckoutTime:          s.accumulatedCheckoutTime,
		AccumulatedCheckoutTimeOfOverdue: s.accumulatedCheckoutTimeOfOverdue,
		AccumulatedWaitTime:              s.accumulatedWaitTime,
		ClaimedOverdueCount:              s.claimedOverdueCount,
		HadToWaitCount:                   s.hadToWaitCount,
		BadConnectionCount:               s.badConnectionCount,
	}
}
