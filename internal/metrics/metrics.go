package metrics

import "sync/atomic"

// Counters tracks the lifecycle totals for the process: payments accepted
// into the queue, payments settled by an upstream, payments that exhausted
// both upstreams. Counts only ever grow; purging the ledger does not
// touch them.
type Counters struct {
	submitted atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) IncSubmitted() { c.submitted.Add(1) }
func (c *Counters) IncProcessed() { c.processed.Add(1) }
func (c *Counters) IncFailed()    { c.failed.Add(1) }

func (c *Counters) Submitted() uint64 { return c.submitted.Load() }
func (c *Counters) Processed() uint64 { return c.processed.Load() }
func (c *Counters) Failed() uint64    { return c.failed.Load() }

// SuccessRate is processed over submitted as a percentage, 0 before the
// first submission. The two loads are not taken atomically together, so
// under load the rate is an approximation.
func (c *Counters) SuccessRate() float64 {
	submitted := c.Submitted()
	if submitted == 0 {
		return 0
	}
	return float64(c.Processed()) / float64(submitted) * 100
}
