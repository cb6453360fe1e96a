package operations

import (
	"github.com/gin-gonic/gin"

	"github.com/raids-lab/ptms/internal/handler"
	"github.com/raids-lab/ptms/pkg/cronjob"
	"github.com/raids-lab/ptms/pkg/reminder"
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	handler.Registers = append(handler.Registers, NewOperationsMgr)
}

type OperationsMgr struct {
	name           string
	cronJobManager *cronjob.CronJobManager
	reminderClient *reminder.Clients
}

func NewOperationsMgr(conf *handler.RegisterConfig) handler.Manager {
	return &OperationsMgr{
		name:           "operations",
		cronJobManager: conf.CronJobManager,
		reminderClient: &reminder.Clients{
			DB:       conf.DB,
			Notifier: conf.Notifier,
		},
	}
}

func (mgr *OperationsMgr) GetName() string { return mgr.name }

func (mgr *OperationsMgr) RegisterPublic(_ *gin.RouterGroup) {
}

func (mgr *OperationsMgr) RegisterProtected(_ *gin.RouterGroup) {
}

func (mgr *OperationsMgr) RegisterAdmin(g *gin.RouterGroup) {
	g.GET("/cronjob", mgr.GetCronjobConfigs)
	g.PUT("/cronjob", mgr.UpdateCronjobConfig)
	g.POST("/cronjob/:name/run", mgr.RunCronjob)
	g.GET("/cronjob/names", mgr.GetCronjobNames)
	g.GET("/cronjob/record/timerange", mgr.GetCronjobRecordTimeRange)
	g.POST("/cronjob/record", mgr.GetCronjobRecords)
	g.DELETE("/cronjob/record", mgr.DeleteCronjobRecords)
	g.POST("/reminders/daily", mgr.RunDailyReminders)
}
