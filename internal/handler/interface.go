package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/internal/util"
	"github.com/raids-lab/ptms/pkg/config"
	"github.com/raids-lab/ptms/pkg/cronjob"
	"github.com/raids-lab/ptms/pkg/notify"
	"github.com/raids-lab/ptms/pkg/supervisor"
	"github.com/raids-lab/ptms/pkg/workflow"
)

type Manager interface {
	GetName() string
	RegisterPublic(group *gin.RouterGroup)
	RegisterProtected(group *gin.RouterGroup)
	RegisterAdmin(group *gin.RouterGroup)
}

// RegisterConfig carries the services every manager may depend on.
type RegisterConfig struct {
	Config         *config.Config
	DB             *gorm.DB
	TokenMgr       *util.TokenManager
	Engine         *workflow.Engine
	Supervisor     *supervisor.Service
	Notifier       *notify.Notifier
	CronJobManager *cronjob.CronJobManager
}

// Registers is filled by the init functions of the handler packages.
var Registers = []func(*RegisterConfig) Manager{}
