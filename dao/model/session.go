package model

import (
	"time"

	"gorm.io/gorm"
)

// Session is one practicum round (academic year + semester) owned by a coordinator
type Session struct {
	gorm.Model
	Name          string    `gorm:"type:varchar(128);not null;comment:学期名称"`
	Year          int       `gorm:"not null;index;comment:学年"`
	Semester      int       `gorm:"not null;comment:学期 (1, 2)"`
	CoordinatorID uint      `gorm:"not null;index;comment:协调员ID"`
	Coordinator   User      `gorm:"foreignKey:CoordinatorID"`
	StartDate     time.Time `gorm:"comment:开始日期"`
	EndDate       time.Time `gorm:"comment:结束日期"`
	Active        bool      `gorm:"not null;default:false;index;comment:是否为当前学期"`
}
