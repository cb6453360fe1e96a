package cronjob

import (
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/pkg/notify"
	"github.com/raids-lab/ptms/pkg/reminder"
)

type CronJobManager struct {
	db             *gorm.DB
	reminderClient *reminder.Clients
	cron           *cron.Cron
	cronMutex      sync.RWMutex
}

func NewCronJobManager(db *gorm.DB, notifier *notify.Notifier) *CronJobManager {
	return &CronJobManager{
		db: db,
		reminderClient: &reminder.Clients{
			DB:       db,
			Notifier: notifier,
		},
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cronLogger()),
			cron.WithChain(cron.Recover(cronLogger())),
		),
	}
}

func cronLogger() logr.Logger {
	return klog.NewKlogr().WithName("cron")
}
