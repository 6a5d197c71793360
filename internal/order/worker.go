package order

import (
	"context"
	"log/slog"
	"time"
)

// Worker defaults.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultBatchSize    = 20
	DefaultLease        = 5 * time.Minute
)

// WorkerConfig tunes a Worker. Zero values take the defaults.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Lease        time.Duration
}

// Worker processes due confirmation jobs until its context ends.
type Worker struct {
	queue     Queue
	confirmer *Confirmer
	logger    *slog.Logger
	cfg       WorkerConfig
	now       func() time.Time
}

// NewWorker creates a worker.
func NewWorker(queue Queue, confirmer *Confirmer, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Lease <= 0 {
		cfg.Lease = DefaultLease
	}
	return &Worker{queue: queue, confirmer: confirmer, logger: logger, cfg: cfg, now: time.Now}
}

// Run polls immediately and then every PollInterval. It returns ctx.Err()
// once the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "confirmation worker started", slog.Duration("interval", w.cfg.PollInterval))

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.Tick(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "confirmation poll failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			w.logger.InfoContext(context.WithoutCancel(ctx), "confirmation worker stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick leases due jobs and retries each once. It returns how many were confirmed.
func (w *Worker) Tick(ctx context.Context) (int, error) {
	jobs, err := w.queue.Lease(ctx, w.now(), w.cfg.BatchSize, w.cfg.Lease)
	if err != nil {
		return 0, err
	}

	confirmed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return confirmed, ctx.Err()
		}
		ok, err := w.confirmer.RetryJob(ctx, job.RemoteOrderID, job.Attempt)
		if err != nil {
			w.logger.WarnContext(ctx, "confirmation job not rescheduled",
				slog.Int64("printful_order_id", job.RemoteOrderID),
				slog.Any("error", err),
			)
			continue
		}
		if ok {
			confirmed++
		}
	}
	return confirmed, nil
}
