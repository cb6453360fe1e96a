// Package reminder holds the scheduled notification jobs run by the cron manager.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/metrics"
	"github.com/raids-lab/ptms/pkg/notify"
)

const (
	DAILY_REMINDER_JOB          = "daily-reminder"
	NOTIFICATION_BATCH_SEND_JOB = "notification-batch-send"
)

// Clients is everything a job needs to run.
type Clients struct {
	DB       *gorm.DB
	Notifier *notify.Notifier
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c *Clients) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ReminderFunc is one scheduled job body. The result is stored with the run record.
type ReminderFunc func(ctx context.Context) (any, error)

// GetReminderFunc returns the job body registered under jobName.
func GetReminderFunc(jobName string, clients *Clients, jobConfig datatypes.JSON) (ReminderFunc, error) {
	switch jobName {
	case DAILY_REMINDER_JOB:
		req := &DailyReminderRequest{}
		if len(jobConfig) > 0 {
			if err := json.Unmarshal(jobConfig, req); err != nil {
				return nil, err
			}
		}
		return func(ctx context.Context) (any, error) {
			return RunDailyReminders(ctx, clients, req)
		}, nil

	case NOTIFICATION_BATCH_SEND_JOB:
		return func(ctx context.Context) (any, error) {
			return clients.Notifier.SendQueued(ctx)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported reminder job name: %s", jobName)
	}
}

// GetWrapReminderFunc combines GetReminderFunc and WrapReminderFunc.
func GetWrapReminderFunc(jobName string, clients *Clients, jobConfig datatypes.JSON) (func(), error) {
	f, err := GetReminderFunc(jobName, clients, jobConfig)
	if err != nil {
		return nil, err
	}
	return WrapReminderFunc(jobName, clients, f), nil
}

// WrapReminderFunc runs the job and records the outcome in cron_job_records.
func WrapReminderFunc(jobName string, clients *Clients, f ReminderFunc) func() {
	return func() {
		ctx := context.Background()
		start := clients.now()
		jobResult, err := f(ctx)
		rec := model.NewCronJobRecord(jobName, start, clients.now(), err)
		if err != nil {
			klog.Errorf("ReminderFunc %s failed: %v", jobName, err)
		}
		metrics.CronRuns.WithLabelValues(jobName, string(rec.Status)).Inc()

		if jobResult != nil {
			if data, err := json.Marshal(jobResult); err != nil {
				klog.Errorf("WrapReminderFunc failed to marshal job result: %v", err)
			} else {
				rec.JobData = datatypes.JSON(data)
			}
		}

		if err := clients.DB.Create(rec).Error; err != nil {
			klog.Errorf("WrapReminderFunc failed to create record: %v", err)
		}
	}
}
