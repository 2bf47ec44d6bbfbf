// Package ledger holds the in-memory payment store. The map is sharded so
// full scans never block writers on other shards; everything is lost on
// restart by design.
package ledger

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/lucas-de-lima/rinha-payment-gateway/internal/payment"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	records map[string]payment.Record
}

// Ledger maps payment id to its record. Put is last-writer-wins; scans see
// every record present before the scan began, and may or may not see
// concurrent inserts.
type Ledger struct {
	shards [shardCount]*shard
}

func New() *Ledger {
	l := &Ledger{}
	for i := range l.shards {
		l.shards[i] = &shard{records: make(map[string]payment.Record)}
	}
	return l
}

func (l *Ledger) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return l.shards[h.Sum32()%shardCount]
}

// Put inserts or overwrites unconditionally.
func (l *Ledger) Put(rec payment.Record) {
	s := l.shardFor(rec.ID)
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
}

// Get returns a copy of the record for id.
func (l *Ledger) Get(id string) (payment.Record, bool) {
	s := l.shardFor(id)
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	return rec, ok
}

// Delete removes the record for id if present.
func (l *Ledger) Delete(id string) {
	s := l.shardFor(id)
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
}

func (l *Ledger) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.RLock()
		n += len(s.records)
		s.mu.RUnlock()
	}
	return n
}

// ForEach visits every record, one shard at a time. Only the shard being
// read is locked, so writers to other shards proceed during the scan.
func (l *Ledger) ForEach(fn func(payment.Record)) {
	for _, s := range l.shards {
		s.mu.RLock()
		for _, rec := range s.records {
			fn(rec)
		}
		s.mu.RUnlock()
	}
}

// Purge drops every record. Lifecycle counters live elsewhere and are not
// affected.
func (l *Ledger) Purge() {
	for _, s := range l.shards {
		s.mu.Lock()
		s.records = make(map[string]payment.Record)
		s.mu.Unlock()
	}
}

// Summary aggregates the ledger. Amounts and fees accumulate only for
// settled records; Count includes pending ones.
type Summary struct {
	TotalAmountCents uint64 `json:"total_amount_cents"`
	TotalFeeCents    uint64 `json:"total_fee_cents"`
	Count            uint64 `json:"count"`
	CountProcessed   uint64 `json:"count_processed"`
	CountFailed      uint64 `json:"count_failed"`
}

// Summarize scans the whole ledger. A non-nil from/to restricts the scan
// to records whose ProcessedAt falls inside the window; pending records
// have no ProcessedAt and are excluded from any windowed summary.
func (l *Ledger) Summarize(from, to *time.Time) Summary {
	windowed := from != nil || to != nil
	var sum Summary
	l.ForEach(func(rec payment.Record) {
		if windowed {
			if rec.ProcessedAt == nil {
				return
			}
			if from != nil && rec.ProcessedAt.Before(*from) {
				return
			}
			if to != nil && rec.ProcessedAt.After(*to) {
				return
			}
		}
		sum.Count++
		if rec.ProcessedAt == nil {
			return
		}
		sum.TotalAmountCents += rec.Amount
		sum.TotalFeeCents += rec.Fee
		if rec.Processor == payment.TagFailed {
			sum.CountFailed++
		} else {
			sum.CountProcessed++
		}
	})
	return sum
}

// Totals are the /metrics top-level figures: every record counts, pending
// included.
type Totals struct {
	Payments    uint64
	AmountCents uint64
	FeeCents    uint64
}

func (l *Ledger) Totals() Totals {
	var t Totals
	l.ForEach(func(rec payment.Record) {
		t.Payments++
		t.AmountCents += rec.Amount
		t.FeeCents += rec.Fee
	})
	return t
}
