package query

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/raids-lab/ptms/pkg/config"
	"github.com/raids-lab/ptms/pkg/logutils"
)

const (
	maxIdleConns    = 5
	maxOpenConns    = 10
	connMaxLifetime = time.Hour
)

var (
	once     sync.Once
	instance *gorm.DB
)

// GetDB returns the process-wide connection, opened from config on first use.
func GetDB() *gorm.DB {
	once.Do(func() {
		db, err := Open(config.GetConfig())
		if err != nil {
			panic(err)
		}
		instance = db
	})
	return instance
}

// DSN builds the postgres connection string. TimeZone falls back to the
// server's local zone so reminder day counting agrees with the database.
func DSN(conf *config.Config) string {
	pg := conf.Postgres
	tz := pg.TimeZone
	if tz == "" {
		tz = time.Local.String()
	}
	sslMode := pg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		pg.Host, pg.User, pg.Password, pg.DBName, pg.Port, sslMode, tz)
}

// Open connects to postgres and sizes the pool.
func Open(conf *config.Config) (*gorm.DB, error) {
	gormConf := &gorm.Config{}
	if !config.IsDebugMode() {
		gormConf.Logger = logger.Default.LogMode(logger.Warn)
	}
	db, err := gorm.Open(postgres.Open(DSN(conf)), gormConf)
	if err != nil {
		return nil, fmt.Errorf("open postgres %s:%s/%s: %w", conf.Postgres.Host, conf.Postgres.Port, conf.Postgres.DBName, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	logutils.Component("db").WithFields(logutils.Fields{
		"host": conf.Postgres.Host, "dbname": conf.Postgres.DBName,
	}).Info("postgres connected")
	return db, nil
}
