package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationSubmissionReceived    NotificationType = "SUBMISSION_RECEIVED"
	NotificationNewSubmission         NotificationType = "NEW_SUBMISSION"
	NotificationDocumentApproved      NotificationType = "DOCUMENT_APPROVED"
	NotificationChangesRequested      NotificationType = "CHANGES_REQUESTED"
	NotificationDocumentRejected      NotificationType = "DOCUMENT_REJECTED"
	NotificationBLI04DueReminder      NotificationType = "BLI04_DUE_REMINDER"
	NotificationBLI04Overdue          NotificationType = "BLI04_OVERDUE"
	NotificationCoordinatorEscalation NotificationType = "COORDINATOR_ESCALATION"
	NotificationSupervisorSigned      NotificationType = "SUPERVISOR_SIGNED"
)

// IsBatched reports whether notifications of this type wait for the digest flush.
func (t NotificationType) IsBatched() bool {
	return t == NotificationNewSubmission || t == NotificationCoordinatorEscalation
}

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
	NotificationStatusRead    NotificationStatus = "READ"
)

type NotificationChannel string

const (
	NotificationChannelEmail NotificationChannel = "EMAIL"
)

// Notification is one event addressed to one user
type Notification struct {
	gorm.Model
	UserID      uint                `gorm:"not null;index;comment:接收人ID"`
	User        User                `gorm:"foreignKey:UserID"`
	Type        NotificationType    `gorm:"type:varchar(64);not null;index;comment:通知类型"`
	Payload     datatypes.JSONMap   `gorm:"comment:模板变量"`
	Channel     NotificationChannel `gorm:"type:varchar(16);not null;default:EMAIL;comment:通知渠道"`
	Status      NotificationStatus  `gorm:"type:varchar(16);not null;default:PENDING;index;comment:发送状态"`
	EmailQueued bool                `gorm:"not null;default:false;index;comment:是否等待批量发送"`
	BatchID     *string             `gorm:"type:varchar(64);index;comment:批次ID"`
	SentAt      *time.Time          `gorm:"comment:发送时间"`
	ReadAt      *time.Time          `gorm:"comment:阅读时间"`
	Error       string              `gorm:"type:text;comment:发送失败原因"`
}

// PayloadStrings flattens the payload into template variables.
func (n *Notification) PayloadStrings() map[string]string {
	out := make(map[string]string, len(n.Payload))
	for k, v := range n.Payload {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		if v != nil {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
