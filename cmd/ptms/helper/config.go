package helper

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/query"
	"github.com/raids-lab/ptms/internal/handler"
	"github.com/raids-lab/ptms/internal/util"
	"github.com/raids-lab/ptms/pkg/config"
	"github.com/raids-lab/ptms/pkg/cronjob"
	"github.com/raids-lab/ptms/pkg/mailer"
	"github.com/raids-lab/ptms/pkg/notify"
	"github.com/raids-lab/ptms/pkg/pdfgen"
	"github.com/raids-lab/ptms/pkg/storage"
	"github.com/raids-lab/ptms/pkg/supervisor"
	"github.com/raids-lab/ptms/pkg/workflow"
)

// ConfigInitializer 封装配置初始化逻辑
type ConfigInitializer struct {
	backendConfig *config.Config
}

// NewConfigInitializer 创建新的ConfigInitializer实例
func NewConfigInitializer() *ConfigInitializer {
	return &ConfigInitializer{
		backendConfig: config.GetConfig(),
	}
}

// GetBackendConfig 获取后端配置
func (ci *ConfigInitializer) GetBackendConfig() *config.Config {
	return ci.backendConfig
}

// LoadDebugEnvironment 加载调试环境变量
func (ci *ConfigInitializer) LoadDebugEnvironment() error {
	if gin.Mode() != gin.DebugMode {
		return nil
	}

	err := godotenv.Load(".debug.env")
	if err != nil {
		return err
	}

	if be := os.Getenv("PTMS_BE_PORT"); be != "" {
		ci.backendConfig.ServerAddr = ":" + be
	}
	if secret := os.Getenv("PTMS_TOKEN_SECRET"); secret != "" {
		ci.backendConfig.Auth.AccessTokenSecret = secret
	}
	return nil
}

// InitializeRegisterConfig 初始化数据库、存储、邮件与各业务服务
func (ci *ConfigInitializer) InitializeRegisterConfig(ctx context.Context) (*handler.RegisterConfig, error) {
	conf := ci.backendConfig
	if conf.Auth.AccessTokenSecret == "" {
		return nil, fmt.Errorf("auth.accessTokenSecret is not set")
	}

	db := query.GetDB()
	if err := query.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	store, err := storage.New(conf)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	transport := mailer.New(conf)
	notifier := notify.NewNotifier(db, transport, conf.Notification.DefaultLocale)

	cronJobManager := cronjob.NewCronJobManager(db, notifier)
	if err := cronJobManager.SeedDefaultJobs(ctx, conf); err != nil {
		return nil, err
	}

	registerConfig := &handler.RegisterConfig{
		Config:   conf,
		DB:       db,
		TokenMgr: util.GetTokenMgr(),
		Engine:   workflow.NewEngine(db, store, pdfgen.NewRegistry(), notifier),
		Supervisor: supervisor.NewService(db, transport, notifier, supervisor.Options{
			BaseURL:    conf.Host,
			LinkFormat: conf.Notification.SupervisorLink,
			Locale:     conf.Notification.DefaultLocale,
		}),
		Notifier:       notifier,
		CronJobManager: cronJobManager,
	}
	klog.Infof("storage provider: %s, email delivery disabled: %v", conf.Storage.Provider, conf.Notification.DisableDelivery)
	return registerConfig, nil
}
