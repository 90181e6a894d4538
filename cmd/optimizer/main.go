package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/retrieval-coordinator/internal/bootstrap"
	"github.com/kirillkom/retrieval-coordinator/internal/config"
	"github.com/kirillkom/retrieval-coordinator/internal/core/domain"
	"github.com/kirillkom/retrieval-coordinator/internal/observability/logging"
	"github.com/kirillkom/retrieval-coordinator/internal/observability/metrics"
)

const service = "optimizer"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)

	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	go func() {
		ticker := time.NewTicker(app.Config.OptimizeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				report, err := app.Optimizer.RunOnce(ctx)
				flagged := 0
				if report != nil {
					flagged = len(report.Candidates)
				}
				workerMetrics.RecordOptimizePass(service, time.Since(start), flagged, err)
				if err != nil {
					logger.Warn("optimizer pass failed", "error", err)
				}
			}
		}
	}()

	logger.Info("optimizer subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeOutcomes(ctx, func(handlerCtx context.Context, rec domain.OutcomeRecord) error {
		storeCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		storeErr := app.Store.StoreOutcome(storeCtx, rec)
		workerMetrics.RecordOutcome(service, storeErr, time.Since(rec.CreatedAt))
		return storeErr
	})
	if err != nil {
		log.Fatalf("outcome subscribe error: %v", err)
	}
}
