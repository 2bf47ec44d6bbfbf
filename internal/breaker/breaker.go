// Package breaker implements the per-upstream circuit breaker gating
// outbound processor calls.
//
// The failure counter is reset only by a success. A breaker entering
// HalfOpen therefore still carries a count at or above the threshold, so
// any failure in HalfOpen re-opens it immediately through the ordinary
// threshold rule.
package breaker

import (
	"sync"
	"time"
)

// State of a breaker. The string forms are part of the /metrics contract.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "HalfOpen"
	}
	return "unknown"
}

// Snapshot is a read-only copy of a breaker's state. LastFailureAt is the
// zero time when no failure is outstanding.
type Snapshot struct {
	State         State
	FailureCount  uint32
	LastFailureAt time.Time
}

// Breaker is the Closed/Open/HalfOpen state machine for one upstream. The
// mutex guards only the transition logic; callers must never hold it
// across I/O.
type Breaker struct {
	mu            sync.Mutex
	state         State
	failureCount  uint32
	lastFailureAt time.Time

	threshold uint32
	timeout   time.Duration
	now       func() time.Time
}

func New(threshold uint32, timeout time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

// MayExecute reports whether an outbound call may be attempted. In Open,
// once the timeout has elapsed since the last failure, the breaker moves
// to HalfOpen and grants the probe.
func (b *Breaker) MayExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.lastFailureAt) >= b.timeout {
			b.state = HalfOpen
			return true
		}
		return false
	case HalfOpen:
		return true
	}
	return false
}

// RecordSuccess closes the breaker and clears the failure history.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failureCount = 0
	b.lastFailureAt = time.Time{}
}

// RecordFailure counts a failed call and opens the breaker once the count
// reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailureAt = b.now()
	if b.failureCount >= b.threshold {
		b.state = Open
	}
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:         b.state,
		FailureCount:  b.failureCount,
		LastFailureAt: b.lastFailureAt,
	}
}
