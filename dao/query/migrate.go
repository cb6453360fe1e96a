package query

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
)

// Migrate brings the schema up to date. Migration IDs are append-only.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202609010001-init",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&model.User{},
					&model.Session{},
					&model.Company{},
					&model.Application{},
					&model.FormResponse{},
					&model.Document{},
					&model.Review{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("reviews", "documents", "form_responses",
					"applications", "companies", "sessions", "users")
			},
		},
		{
			ID: "202609150001-supervisor-tokens",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.SupervisorToken{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("supervisor_tokens")
			},
		},
		{
			ID: "202609200001-notifications",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.Notification{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("notifications")
			},
		},
		{
			ID: "202610010001-cronjobs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.CronJobConfig{}, &model.CronJobRecord{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("cron_job_configs", "cron_job_records")
			},
		},
	})
	return m.Migrate()
}
