// Package queue provides the bounded intake FIFO between the HTTP layer
// and the dispatch worker.
package queue

import (
	"errors"
	"sync"

	"github.com/lucas-de-lima/rinha-payment-gateway/internal/payment"
)

var (
	// ErrFull is returned by TrySend when the queue is at capacity.
	ErrFull = errors.New("intake queue full")
	// ErrClosed is returned by TrySend after Close.
	ErrClosed = errors.New("intake queue closed")
)

// Intake is a bounded FIFO of payment requests. Producers never block:
// TrySend either accepts immediately or reports ErrFull. Consumers block
// on Recv until an item arrives or the queue is closed and drained.
type Intake struct {
	ch chan payment.Request

	mu     sync.Mutex
	closed bool
}

func New(capacity int) *Intake {
	return &Intake{ch: make(chan payment.Request, capacity)}
}

// TrySend enqueues without blocking. The mutex is shared with Close so a
// send can never race the channel close.
func (q *Intake) TrySend(req payment.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- req:
		return nil
	default:
		return ErrFull
	}
}

// Recv blocks until an item is available. ok is false once the queue is
// closed and fully drained.
func (q *Intake) Recv() (req payment.Request, ok bool) {
	req, ok = <-q.ch
	return req, ok
}

// Close is terminal and idempotent. Items already enqueued remain
// receivable until drained.
func (q *Intake) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *Intake) Len() int { return len(q.ch) }

func (q *Intake) Cap() int { return cap(q.ch) }
