package model

import (
	"time"

	"gorm.io/gorm"
)

// Application is a student's practicum enrolment in one Session.
// At most one non-terminal Application exists per (UserID, SessionID).
type Application struct {
	gorm.Model
	UserID    uint              `gorm:"not null;index:idx_application_owner;comment:学生ID"`
	User      User              `gorm:"foreignKey:UserID"`
	SessionID uint              `gorm:"not null;index:idx_application_owner;comment:学期ID"`
	Session   Session           `gorm:"foreignKey:SessionID"`
	Status    ApplicationStatus `gorm:"type:varchar(32);not null;default:DRAFT;index;comment:申请状态"`
	StartDate *time.Time        `gorm:"comment:实习开始日期"`
	EndDate   *time.Time        `gorm:"comment:实习结束日期"`

	CompanyID           *uint   `gorm:"index;comment:公司ID"`
	Company             Company `gorm:"foreignKey:CompanyID"`
	OrganizationName    string  `gorm:"type:varchar(256);comment:实习单位名称"`
	OrganizationAddress string  `gorm:"type:varchar(512);comment:实习单位地址"`
	ContactName         string  `gorm:"type:varchar(128);comment:单位联系人"`
	ContactEmail        string  `gorm:"type:varchar(256);comment:单位联系人邮箱"`
	ContactPhone        string  `gorm:"type:varchar(64);comment:单位联系人电话"`
	SupervisorName      string  `gorm:"type:varchar(128);comment:现场导师"`
	SupervisorEmail     string  `gorm:"type:varchar(256);comment:现场导师邮箱"`

	StudentSignature     SignatureSlot `gorm:"embedded;embeddedPrefix:student_"`
	SupervisorSignature  SignatureSlot `gorm:"embedded;embeddedPrefix:supervisor_"`
	CoordinatorSignature SignatureSlot `gorm:"embedded;embeddedPrefix:coordinator_"`

	SupersededAt   *time.Time `gorm:"comment:被替代时间"`
	SupersededByID *uint      `gorm:"comment:替代该申请的新申请ID"`

	FormResponses []FormResponse `gorm:"foreignKey:ApplicationID"`
	Documents     []Document     `gorm:"foreignKey:ApplicationID"`
}
