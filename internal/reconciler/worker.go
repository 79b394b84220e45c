// Package reconciler periodically retries payment verification that could
// not complete during the gateway callback.
package reconciler

import (
	"context"
	"time"

	"storefront/internal/infrastructure/logger"
	"storefront/internal/usecase"
)

type Reconciler interface {
	Reconcile(ctx context.Context, minAge time.Duration, limit int) (usecase.ReconcileReport, error)
}

type Config struct {
	Interval time.Duration
	// MinAge skips orders touched more recently, leaving in-flight
	// callbacks alone.
	MinAge    time.Duration
	BatchSize int
}

type Worker struct {
	reconciler Reconciler
	cfg        Config
	logger     *logger.Logger
}

func NewWorker(reconciler Reconciler, cfg Config, logger *logger.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Worker{
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run sweeps once per interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Reconciler started",
		"interval", w.cfg.Interval.String(),
		"min_age", w.cfg.MinAge.String(),
		"batch_size", w.cfg.BatchSize)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if _, err := w.reconciler.Reconcile(ctx, w.cfg.MinAge, w.cfg.BatchSize); err != nil && ctx.Err() == nil {
		w.logger.Error("Reconciliation sweep failed", "error", err)
	}
}
