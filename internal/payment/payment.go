package payment

import "time"

// Processor tags recorded in the ledger. Pending marks a payment that was
// accepted but not yet dispatched; Failed marks one rejected by both
// processors.
const (
	TagPending  = "pending"
	TagDefault  = "default"
	TagFallback = "fallback"
	TagFailed   = "failed"
)

// Request is the intake payload received on POST /payments. Amount is in
// minor units (cents).
type Request struct {
	ID     string `json:"id"`
	Amount uint64 `json:"amount"`
}

// Record is a ledger entry. ProcessedAt is nil while the payment is
// pending and set once a dispatch attempt settles, whether it succeeded
// or failed.
type Record struct {
	ID          string     `json:"id"`
	Amount      uint64     `json:"amount"`
	Processor   string     `json:"processor"`
	Fee         uint64     `json:"fee"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Pending returns true while no dispatch attempt has settled the record.
func (r Record) Pending() bool {
	return r.ProcessedAt == nil
}

// NewPending builds the record inserted at acceptance time, before the
// request reaches the worker.
func NewPending(req Request) Record {
	return Record{
		ID:        req.ID,
		Amount:    req.Amount,
		Processor: TagPending,
	}
}

// Fee is the gateway's flat 5% cut, in minor units. Integer division:
// amounts under 20 cents carry no fee.
func Fee(amount uint64) uint64 {
	return amount / 20
}
