package cronjob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/config"
	"github.com/raids-lab/ptms/pkg/reminder"
)

// DefaultJobConfigs returns the notification jobs every deployment starts with.
func DefaultJobConfigs(conf *config.Config) ([]*model.CronJobConfig, error) {
	daily, err := json.Marshal(reminder.DailyReminderRequest{
		ReminderDays:   conf.Notification.ReminderDays,
		EscalationDays: lo.ToPtr(conf.Notification.EscalationDays),
	})
	if err != nil {
		return nil, err
	}
	return []*model.CronJobConfig{
		{
			Name:        reminder.DAILY_REMINDER_JOB,
			Description: "BLI-04 due/overdue reminders and coordinator escalations",
			Type:        model.CronJobTypeNotifyFunc,
			Spec:        conf.Notification.DailyJobSpec,
			Suspend:     lo.ToPtr(false),
			Config:      datatypes.JSON(daily),
		},
		{
			Name:        reminder.NOTIFICATION_BATCH_SEND_JOB,
			Description: "flush queued coordinator notifications as digests",
			Type:        model.CronJobTypeNotifyFunc,
			Spec:        conf.Notification.BatchSendSpec,
			Suspend:     lo.ToPtr(false),
			Config:      datatypes.JSON(`{}`),
		},
	}, nil
}

// SeedDefaultJobs inserts the default jobs that are missing. Existing rows are
// left alone so admin edits survive restarts.
func (cm *CronJobManager) SeedDefaultJobs(ctx context.Context, conf *config.Config) error {
	defaults, err := DefaultJobConfigs(conf)
	if err != nil {
		return err
	}
	res := cm.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(defaults)
	if res.Error != nil {
		return fmt.Errorf("CronJobManager.SeedDefaultJobs: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		klog.Infof("CronJobManager.SeedDefaultJobs: created %d cron job configs", res.RowsAffected)
	}
	return nil
}
