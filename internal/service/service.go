// Package service ties intake, routing, ledger, and counters together:
// Submit feeds the queue from the HTTP layer, Run drains it, and dispatch
// applies the default-then-fallback policy for each payment.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-payment-gateway/internal/breaker"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/ledger"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/metrics"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/payment"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/queue"
)

// Processor abstracts the upstream client for routing and metrics;
// satisfied by upstream.Client.
type Processor interface {
	Process(ctx context.Context, tag string, req payment.Request) (payment.Record, error)
	BreakerSnapshot(tag string) (breaker.Snapshot, bool)
}

// HealthSource serves the cached-or-probed processor health for the
// metrics surface; satisfied by monitor.Monitor.
type HealthSource interface {
	Status(ctx context.Context, tag string) bool
}

type Service struct {
	ledger    *ledger.Ledger
	counters  *metrics.Counters
	intake    *queue.Intake
	processor Processor
	health    HealthSource
	logger    *zap.Logger
	now       func() time.Time
}

func New(l *ledger.Ledger, c *metrics.Counters, q *queue.Intake, p Processor, h HealthSource, logger *zap.Logger) *Service {
	return &Service{
		ledger:    l,
		counters:  c,
		intake:    q,
		processor: p,
		health:    h,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit records the payment as pending and hands it to the queue. The
// pending record goes in before the enqueue so a concurrent summary never
// misses an accepted id. A rejected submission leaves no trace: the
// pending record is rolled back and the counter untouched.
func (s *Service) Submit(req payment.Request) error {
	s.ledger.Put(payment.NewPending(req))
	if err := s.intake.TrySend(req); err != nil {
		s.ledger.Delete(req.ID)
		return err
	}
	s.counters.IncSubmitted()
	s.logger.Info("payment accepted", zap.String("payment_id", req.ID), zap.Uint64("amount", req.Amount))
	return nil
}

// Run is the worker loop. It returns once the queue is closed and
// drained. Multiple instances may run concurrently; the queue is the
// synchronization point.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("dispatch worker started")
	for {
		req, ok := s.intake.Recv()
		if !ok {
			s.logger.Info("dispatch worker stopped")
			return
		}
		s.dispatch(ctx, req)
	}
}

// dispatch tries the default processor, then the fallback, exactly once
// each, and commits the outcome. The ledger write lands before the
// counter increment.
func (s *Service) dispatch(ctx context.Context, req payment.Request) {
	for _, tag := range []string{payment.TagDefault, payment.TagFallback} {
		rec, err := s.processor.Process(ctx, tag, req)
		if err != nil {
			continue
		}
		s.ledger.Put(rec)
		s.counters.IncProcessed()
		s.logger.Info("payment processed",
			zap.String("payment_id", req.ID),
			zap.String("processor", tag))
		return
	}

	processedAt := s.now()
	s.ledger.Put(payment.Record{
		ID:          req.ID,
		Amount:      req.Amount,
		Processor:   payment.TagFailed,
		ProcessedAt: &processedAt,
	})
	s.counters.IncFailed()
	s.logger.Error("payment failed on both processors", zap.String("payment_id", req.ID))
}

// GetPayment returns the ledger record for id.
func (s *Service) GetPayment(id string) (payment.Record, bool) {
	return s.ledger.Get(id)
}

// Summary aggregates the ledger, optionally windowed on ProcessedAt.
func (s *Service) Summary(from, to *time.Time) ledger.Summary {
	return s.ledger.Summarize(from, to)
}

// Purge clears the ledger. Counters are lifetime totals and keep their
// values.
func (s *Service) Purge() {
	s.ledger.Purge()
	s.logger.Info("ledger purged")
}

// ProcessorStatus is one processor's entry in the detailed metrics.
type ProcessorStatus struct {
	Healthy        bool   `json:"healthy"`
	CircuitBreaker string `json:"circuit_breaker"`
}

// DetailedMetrics carries the lifecycle counters and per-processor state.
type DetailedMetrics struct {
	Submitted   uint64                     `json:"submitted"`
	Processed   uint64                     `json:"processed"`
	Failed      uint64                     `json:"failed"`
	SuccessRate float64                    `json:"success_rate"`
	Processors  map[string]ProcessorStatus `json:"processors"`
}

// Metrics is the GET /metrics response body.
type Metrics struct {
	TotalPayments    uint64            `json:"total_payments"`
	TotalAmountCents uint64            `json:"total_amount_cents"`
	TotalFeesCents   uint64            `json:"total_fees_cents"`
	CircuitBreakers  map[string]string `json:"circuit_breakers"`
	Detailed         DetailedMetrics   `json:"detailed_metrics"`
}

// Metrics assembles the operational snapshot: ledger totals over every
// record pending included, breaker states, counters, and processor
// health (cached, probed on demand when stale).
func (s *Service) Metrics(ctx context.Context) Metrics {
	totals := s.ledger.Totals()

	breakers := make(map[string]string, 2)
	processors := make(map[string]ProcessorStatus, 2)
	for _, tag := range []string{payment.TagDefault, payment.TagFallback} {
		state := "unknown"
		if snap, ok := s.processor.BreakerSnapshot(tag); ok {
			state = snap.State.String()
		}
		breakers[tag] = state
		processors[tag] = ProcessorStatus{
			Healthy:        s.health.Status(ctx, tag),
			CircuitBreaker: state,
		}
	}

	return Metrics{
		TotalPayments:    totals.Payments,
		TotalAmountCents: totals.AmountCents,
		TotalFeesCents:   totals.FeeCents,
		CircuitBreakers:  breakers,
		Detailed: DetailedMetrics{
			Submitted:   s.counters.Submitted(),
			Processed:   s.counters.Processed(),
			Failed:      s.counters.Failed(),
			SuccessRate: s.counters.SuccessRate(),
			Processors:  processors,
		},
	}
}
