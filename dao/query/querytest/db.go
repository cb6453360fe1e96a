// Package querytest opens migrated in-memory databases for package tests.
package querytest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/dao/query"
)

// NewDB returns a fresh SQLite database with the full schema applied. A single
// connection is kept open so every statement sees the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, query.Migrate(db))
	return db
}

// CreateUser inserts an active user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		Name:     name,
		Nickname: name,
		Email:    name + "@example.edu",
		Role:     role,
		Status:   model.StatusActive,
		Locale:   "en",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
