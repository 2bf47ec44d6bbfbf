// Package monitor runs the periodic upstream health probe and caches the
// latest result per processor.
package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-payment-gateway/internal/payment"
)

// HealthChecker is the probe the monitor drives; satisfied by
// upstream.Client.
type HealthChecker interface {
	Health(ctx context.Context, tag string) bool
}

type probe struct {
	healthy   bool
	checkedAt time.Time
}

// Monitor probes both processors on a fixed interval and serves the
// cached status in between. It holds no shared state beyond the cache and
// never touches the circuit breakers.
type Monitor struct {
	checker  HealthChecker
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	status map[string]probe
}

func New(checker HealthChecker, interval time.Duration, logger *zap.Logger) *Monitor {
	return &Monitor{
		checker:  checker,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		status:   make(map[string]probe),
	}
}

// Run probes immediately and then on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeAll(ctx)
		}
	}
}

func (m *Monitor) probeAll(ctx context.Context) {
	defaultHealthy := m.refresh(ctx, payment.TagDefault)
	fallbackHealthy := m.refresh(ctx, payment.TagFallback)
	m.logger.Info("processor health",
		zap.Bool("default", defaultHealthy),
		zap.Bool("fallback", fallbackHealthy))
}

func (m *Monitor) refresh(ctx context.Context, tag string) bool {
	healthy := m.checker.Health(ctx, tag)
	m.mu.Lock()
	m.status[tag] = probe{healthy: healthy, checkedAt: m.now()}
	m.mu.Unlock()
	return healthy
}

// Status returns the cached health for tag while it is younger than the
// probe interval, probing on demand when stale or missing.
func (m *Monitor) Status(ctx context.Context, tag string) bool {
	m.mu.RLock()
	p, ok := m.status[tag]
	m.mu.RUnlock()
	if ok && m.now().Sub(p.checkedAt) < m.interval {
		return p.healthy
	}
	return m.refresh(ctx, tag)
}
