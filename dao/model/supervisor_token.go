package model

import (
	"time"

	"gorm.io/gorm"
)

// SupervisorTokenTTL is how long a supervisor signature link stays valid.
const SupervisorTokenTTL = 14 * 24 * time.Hour

// SupervisorToken grants an unauthenticated supervisor one signature on one form
type SupervisorToken struct {
	gorm.Model
	Token           string     `gorm:"type:varchar(64);not null;uniqueIndex;comment:令牌"`
	ApplicationID   uint       `gorm:"not null;index:idx_supervisor_token_scope;comment:申请ID"`
	FormType        FormType   `gorm:"type:varchar(16);not null;index:idx_supervisor_token_scope;comment:表单类型"`
	SupervisorEmail string     `gorm:"type:varchar(256);not null;comment:导师邮箱快照"`
	SupervisorName  string     `gorm:"type:varchar(128);not null;comment:导师姓名快照"`
	ExpiresAt       time.Time  `gorm:"not null;comment:过期时间"`
	UsedAt          *time.Time `gorm:"comment:使用时间"`
	IsRevoked       bool       `gorm:"not null;default:false;comment:是否已撤销"`
}
