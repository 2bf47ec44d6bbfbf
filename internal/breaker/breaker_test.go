package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance the breaker's view of time directly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold uint32, timeout time.Duration) (*Breaker, *fakeClock) {
	clock := newFakeClock()
	b := New(threshold, timeout)
	b.now = clock.Now
	return b, clock
}

func TestBreakerStartsClosed(t *testing.T) {
	b, _ := newTestBreaker(5, 30*time.Second)

	snap := b.Snapshot()
	assert.Equal(t, Closed, snap.State)
	assert.Zero(t, snap.FailureCount)
	assert.True(t, snap.LastFailureAt.IsZero())
	assert.True(t, b.MayExecute())
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.MayExecute(), "below threshold the breaker stays closed")
	assert.Equal(t, Closed, b.Snapshot().State)

	b.RecordFailure()
	snap := b.Snapshot()
	assert.Equal(t, Open, snap.State)
	assert.Equal(t, uint32(3), snap.FailureCount)
	assert.False(t, b.MayExecute())
}

func TestBreakerStaysOpenUntilTimeout(t *testing.T) {
	b, clock := newTestBreaker(1, 30*time.Second)

	b.RecordFailure()
	require.Equal(t, Open, b.Snapshot().State)

	clock.Advance(29 * time.Second)
	assert.False(t, b.MayExecute())

	clock.Advance(time.Second)
	assert.True(t, b.MayExecute(), "first probe after timeout is allowed")
	assert.Equal(t, HalfOpen, b.Snapshot().State)
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(2, 10*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(10 * time.Second)
	require.True(t, b.MayExecute())
	require.Equal(t, HalfOpen, b.Snapshot().State)

	b.RecordSuccess()
	snap := b.Snapshot()
	assert.Equal(t, Closed, snap.State)
	assert.Zero(t, snap.FailureCount)
	assert.True(t, snap.LastFailureAt.IsZero())
}

// A failure in HalfOpen re-opens immediately: the counter was never reset,
// so it is still at or above the threshold.
func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(2, 10*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(10 * time.Second)
	require.True(t, b.MayExecute())
	require.Equal(t, HalfOpen, b.Snapshot().State)

	b.RecordFailure()
	assert.Equal(t, Open, b.Snapshot().State)
	assert.False(t, b.MayExecute())
}

func TestBreakerSuccessResetsFromClosed(t *testing.T) {
	b, _ := newTestBreaker(5, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	snap := b.Snapshot()
	assert.Equal(t, Closed, snap.State)
	assert.Zero(t, snap.FailureCount)
}

func TestBreakerReopenTimeoutRestarts(t *testing.T) {
	b, clock := newTestBreaker(1, 10*time.Second)

	b.RecordFailure()
	clock.Advance(10 * time.Second)
	require.True(t, b.MayExecute())

	// Failing the probe re-opens with a fresh failure timestamp; the
	// timeout counts from the new failure.
	b.RecordFailure()
	clock.Advance(9 * time.Second)
	assert.False(t, b.MayExecute())
	clock.Advance(time.Second)
	assert.True(t, b.MayExecute())
}

func TestBreakerStateStrings(t *testing.T) {
	assert.Equal(t, "Closed", Closed.String())
	assert.Equal(t, "Open", Open.String())
	assert.Equal(t, "HalfOpen", HalfOpen.String())
}

func TestBreakerConcurrentRecording(t *testing.T) {
	b, _ := newTestBreaker(1000, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.RecordFailure()
				b.MayExecute()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(500), b.Snapshot().FailureCount)
}
