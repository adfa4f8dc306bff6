package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"
	"github.com/robfig/cron/v3"

	"github.com/kart-io/nilm-chat/internal/nilm/metrics"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
)

// RetentionJob 定期删除长时间未活跃的会话。
type RetentionJob struct {
	sessions  store.SessionStore
	retention time.Duration
	schedule  string
	metrics   *metrics.ChatMetrics
	now       func() time.Time

	cron *cron.Cron
}

// NewRetentionJob 创建会话清理任务。retention 为 0 时任务不启动。
func NewRetentionJob(sessions store.SessionStore, retention time.Duration, schedule string, m *metrics.ChatMetrics) *RetentionJob {
	return &RetentionJob{
		sessions:  sessions,
		retention: retention,
		schedule:  schedule,
		metrics:   m,
		now:       time.Now,
	}
}

// Name 返回任务名称。
func (j *RetentionJob) Name() string {
	return "session-retention"
}

// Start 按 cron 表达式调度清理。
func (j *RetentionJob) Start(_ context.Context) error {
	if j.retention <= 0 {
		logger.Info("Session retention disabled")
		return nil
	}

	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			logger.Errorw("Session retention sweep failed", "error", err.Error())
		}
	}); err != nil {
		return err
	}
	j.cron.Start()

	logger.Infow("Session retention scheduled",
		"schedule", j.schedule,
		"retention", j.retention.String(),
	)
	return nil
}

// Stop 停止调度并等待正在执行的清理结束，或 ctx 超时。
func (j *RetentionJob) Stop(ctx context.Context) error {
	if j.cron == nil {
		return nil
	}
	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 执行一次清理，返回删除的会话数。
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	n, err := j.sessions.DeleteIdle(ctx, j.now().Add(-j.retention))
	if err != nil {
		return 0, err
	}
	j.metrics.RecordSessionsPurged(n)
	if n > 0 {
		logger.Infow("Idle chat sessions removed", "count", n)
	}
	return n, nil
}
