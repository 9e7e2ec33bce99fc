package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/narin-dev/lms-analytics-api/pkg/config"
	"github.com/narin-dev/lms-analytics-api/pkg/jobs"
)

// ReportWarmer periodically recomputes the learning-stats report so the
// dashboard hits a warm cache. Rebuild jobs run through a retrying queue;
// a rebuild that keeps failing is logged and dropped, the stale cached
// report simply ages out on its TTL.
type ReportWarmer struct {
	stats    *LearningStatsService
	queue    *jobs.Queue
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewReportWarmer constructs a warmer. A zero interval disables it.
func NewReportWarmer(stats *LearningStatsService, cfg config.AnalyticsConfig, logger *zap.Logger) *ReportWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	warmer := &ReportWarmer{
		stats:    stats,
		interval: cfg.WarmInterval,
		logger:   logger,
	}
	warmer.queue = jobs.New("report-warm", warmer.handle, jobs.Config{
		Workers:    1,
		MaxRetries: cfg.WarmRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logger,
	})
	return warmer
}

// Start launches the queue and the interval ticker. No-op when disabled.
func (w *ReportWarmer) Start(ctx context.Context) {
	if w == nil || w.interval <= 0 {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job := jobs.Job{ID: uuid.NewString(), Kind: "rebuild"}
				if err := w.queue.Enqueue(job); err != nil {
					w.logger.Warn("failed to enqueue report rebuild", zap.Error(err))
				}
			}
		}
	}()
	w.logger.Info("report warmer started", zap.Duration("interval", w.interval))
}

// Stop halts the ticker and drains the queue workers.
func (w *ReportWarmer) Stop() {
	if w == nil || w.cancel == nil {
		return
	}
	w.cancel()
	w.queue.Stop()
}

func (w *ReportWarmer) handle(ctx context.Context, job jobs.Job) error {
	_, err := w.stats.Refresh(ctx)
	return err
}
