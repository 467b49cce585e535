package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/pkg/jobs"
)

type scheduleReader interface {
	Get(ctx context.Context, rawID string) (*dto.ScheduleResponse, error)
}

// ScheduleCacheWarmer fills the schedule cache in the background after a node is generated.
type ScheduleCacheWarmer struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewScheduleCacheWarmer builds a warmer backed by a keyed job queue.
func NewScheduleCacheWarmer(reader scheduleReader, workers int, logger *zap.Logger) *ScheduleCacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		_, err := reader.Get(ctx, job.Key)
		return err
	}
	queue := jobs.NewQueue("schedule-cache-warm", handler, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	})
	return &ScheduleCacheWarmer{queue: queue, logger: logger}
}

// Start launches the workers. A nil warmer does nothing.
func (w *ScheduleCacheWarmer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	w.queue.Start(ctx)
}

// Stop waits for in-flight work to finish.
func (w *ScheduleCacheWarmer) Stop() {
	if w == nil {
		return
	}
	w.queue.Stop()
}

// Warm queues id for caching. Failures to enqueue are logged only.
func (w *ScheduleCacheWarmer) Warm(id models.ID) {
	if w == nil {
		return
	}
	if _, err := w.queue.Enqueue(id.String()); err != nil {
		w.logger.Warn("schedule cache warm skipped", zap.String("schedule_id", id.String()), zap.Error(err))
	}
}
