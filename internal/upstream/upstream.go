// Package upstream talks to the two payment processors over HTTP and
// integrates the per-processor circuit breakers.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-payment-gateway/internal/breaker"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/config"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/payment"
)

// ErrCircuitOpen marks a processor skipped because its breaker denied
// execution; no HTTP call was made.
var ErrCircuitOpen = errors.New("circuit breaker open")

const (
	paymentsTimeout = 5 * time.Second
	healthTimeout   = 10 * time.Second
)

type target struct {
	url     string
	breaker *breaker.Breaker
}

// Client serves both processors, keyed by tag ("default" / "fallback").
// The payments and health clients share one tuned transport but carry the
// contract's different timeouts.
type Client struct {
	payments *http.Client
	health   *http.Client
	token    string
	targets  map[string]*target
	logger   *zap.Logger
	now      func() time.Time
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true,
	}
	return &Client{
		payments: &http.Client{Timeout: paymentsTimeout, Transport: transport},
		health:   &http.Client{Timeout: healthTimeout, Transport: transport},
		token:    cfg.Token,
		targets: map[string]*target{
			payment.TagDefault: {
				url:     cfg.DefaultProcessorURL,
				breaker: breaker.New(cfg.BreakerThreshold, cfg.BreakerTimeout),
			},
			payment.TagFallback: {
				url:     cfg.FallbackProcessorURL,
				breaker: breaker.New(cfg.BreakerThreshold, cfg.BreakerTimeout),
			},
		},
		logger: logger,
		now:    time.Now,
	}
}

// processorRequest is the exact wire body the processors expect.
// RequestedAt is milliseconds since the epoch at call time.
type processorRequest struct {
	CorrelationID string `json:"correlationId"`
	Amount        uint64 `json:"amount"`
	RequestedAt   int64  `json:"requestedAt"`
}

// Process forwards one payment to the tagged processor. The breaker is
// consulted before the call and updated after; its lock is never held
// across the HTTP round trip. On success the settled record is returned
// with the gateway's 5% fee; the processor's response body is not parsed.
func (c *Client) Process(ctx context.Context, tag string, req payment.Request) (payment.Record, error) {
	t, ok := c.targets[tag]
	if !ok {
		return payment.Record{}, fmt.Errorf("unknown processor %q", tag)
	}
	if !t.breaker.MayExecute() {
		c.logger.Warn("circuit breaker denied execution", zap.String("processor", tag))
		return payment.Record{}, ErrCircuitOpen
	}

	body, err := json.Marshal(processorRequest{
		CorrelationID: req.ID,
		Amount:        req.Amount,
		RequestedAt:   c.now().UnixMilli(),
	})
	if err != nil {
		t.breaker.RecordFailure()
		return payment.Record{}, fmt.Errorf("encoding payment %s: %w", req.ID, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url+"/payments", bytes.NewReader(body))
	if err != nil {
		t.breaker.RecordFailure()
		return payment.Record{}, fmt.Errorf("building request for %s: %w", tag, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Rinha-Token", c.token)

	resp, err := c.payments.Do(httpReq)
	if err != nil {
		t.breaker.RecordFailure()
		c.logger.Warn("processor call failed",
			zap.String("processor", tag),
			zap.String("payment_id", req.ID),
			zap.Error(err))
		return payment.Record{}, fmt.Errorf("calling %s processor: %w", tag, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.breaker.RecordFailure()
		c.logger.Warn("processor rejected payment",
			zap.String("processor", tag),
			zap.String("payment_id", req.ID),
			zap.Int("status", resp.StatusCode))
		return payment.Record{}, fmt.Errorf("%s processor returned status %d", tag, resp.StatusCode)
	}

	t.breaker.RecordSuccess()
	processedAt := c.now()
	return payment.Record{
		ID:          req.ID,
		Amount:      req.Amount,
		Processor:   tag,
		Fee:         payment.Fee(req.Amount),
		ProcessedAt: &processedAt,
	}, nil
}

// Health probes the tagged processor. It never touches the breaker.
func (c *Client) Health(ctx context.Context, tag string) bool {
	t, ok := c.targets[tag]
	if !ok {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.health.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// BreakerSnapshot returns a read-only copy of the tagged breaker's state.
func (c *Client) BreakerSnapshot(tag string) (breaker.Snapshot, bool) {
	t, ok := c.targets[tag]
	if !ok {
		return breaker.Snapshot{}, false
	}
	return t.breaker.Snapshot(), true
}
