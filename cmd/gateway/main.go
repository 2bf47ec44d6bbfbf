package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lucas-de-lima/rinha-payment-gateway/internal/api"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/config"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/ledger"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/metrics"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/monitor"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/queue"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/service"
	"github.com/lucas-de-lima/rinha-payment-gateway/internal/upstream"
)

const (
	healthProbeInterval = 30 * time.Second
	shutdownGrace       = 10 * time.Second
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.FromEnv()
	logger.Info("starting payment gateway",
		zap.Int("port", cfg.Port),
		zap.String("default_processor", cfg.DefaultProcessorURL),
		zap.String("fallback_processor", cfg.FallbackProcessorURL),
		zap.Int("queue_buffer", cfg.QueueBufferSize))

	store := ledger.New()
	counters := metrics.NewCounters()
	client := upstream.New(cfg, logger)
	intake := queue.New(cfg.QueueBufferSize)
	health := monitor.New(client, healthProbeInterval, logger)
	svc := service.New(store, counters, intake, client, health, logger)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	go health.Run(monitorCtx)

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		svc.Run(context.Background())
	}()

	server := api.NewServer(fmt.Sprintf(":%d", cfg.Port), api.NewRouter(svc, logger))
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	logger.Info("server listening", zap.String("addr", server.Addr))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}

	// Stop accepting, then let the worker drain what was already queued.
	// In-flight dispatches either complete or are abandoned; nothing here
	// is durable.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}

	intake.Close()
	select {
	case <-workerDone:
	case <-time.After(shutdownGrace):
		logger.Warn("worker did not drain in time")
	}

	stopMonitor()
	logger.Info("gateway stopped")
}
