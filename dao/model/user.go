package model

import (
	"gorm.io/gorm"
)

// User is the basic entity of the system
type User struct {
	gorm.Model
	Name     string  `gorm:"uniqueIndex;type:varchar(64);not null;comment:登录名"`
	Nickname string  `gorm:"type:varchar(128);comment:显示名称"`
	Email    string  `gorm:"type:varchar(256);index;comment:邮箱"`
	Password *string `gorm:"type:varchar(128);comment:密码"`
	Role     Role    `gorm:"type:varchar(32);not null;default:student;comment:平台角色 (student, coordinator, admin)"`
	Status   Status  `gorm:"type:varchar(32);not null;default:active;comment:用户状态 (active, inactive)"`
	Locale   string  `gorm:"type:varchar(8);not null;default:id;comment:通知语言 (en, id)"`
}

// DisplayName prefers the nickname and falls back to the login name.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

type UserInfo struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}
