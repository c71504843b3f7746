package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/vendibook/vendibook-backend/pkg/logger"
)

// NotificationRetentionJobName identifies the in-app notification pruning job.
const NotificationRetentionJobName = "notification-retention"

const notificationRetentionDays = 90

type NotificationRetentionJobParams struct {
	Logger     *logger.Logger
	Repository notificationPruner
	Retention  int
}

type notificationPruner interface {
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationRetentionJob builds the job that prunes read in-app
// notifications past the retention window.
func NewNotificationRetentionJob(params NotificationRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	return &notificationRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationRetentionJob struct {
	logg      *logger.Logger
	repo      notificationPruner
	retention int
	now       func() time.Time
}

func (j *notificationRetentionJob) Name() string { return NotificationRetentionJobName }

func (j *notificationRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	deleted, err := j.repo.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notification retention complete")
	return nil
}
