package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TrashJanitor periodically purges expired trash entries. The store keeps
// entries until their expiry; this enforces the time-to-live.
type TrashJanitor struct {
	trash    *service.TrashService
	logger   *zap.Logger
	schedule string
	cron     *cron.Cron
}

// NewTrashJanitor constructs the janitor with a cron schedule expression.
func NewTrashJanitor(trash *service.TrashService, logger *zap.Logger, schedule string) *TrashJanitor {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &TrashJanitor{
		trash:    trash,
		logger:   logger,
		schedule: schedule,
	}
}

// Start schedules the purge job and runs it once immediately so a restart
// never leaves expired entries lingering until the next tick.
func (j *TrashJanitor) Start() error {
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, j.runOnce); err != nil {
		return err
	}
	j.cron.Start()
	go j.runOnce()
	j.logger.Info("trash janitor started", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (j *TrashJanitor) Stop() {
	if j.cron == nil {
		return
	}
	ctx := j.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		j.logger.Warn("trash janitor stop timed out")
	}
}

func (j *TrashJanitor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := j.trash.PurgeExpired(ctx); err != nil {
		j.logger.Error("trash purge failed", zap.Error(err))
	}
}
