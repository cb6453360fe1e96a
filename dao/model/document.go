package model

import (
	"time"

	"gorm.io/gorm"
)

// Document is the per-artifact review and caching unit of an Application
type Document struct {
	gorm.Model
	ApplicationID uint           `gorm:"not null;uniqueIndex:idx_document_type;comment:申请ID"`
	Type          DocumentType   `gorm:"type:varchar(16);not null;uniqueIndex:idx_document_type;comment:文档类型"`
	FileURL       string         `gorm:"type:varchar(1024);not null;default:ONLINE_SUBMISSION;comment:存储路径"`
	Status        DocumentStatus `gorm:"type:varchar(32);not null;default:DRAFT;index;comment:文档状态"`
	Version       int            `gorm:"not null;default:1;comment:版本号"`
	SignedBy      *string        `gorm:"type:varchar(256);comment:签署人"`
	SignedAt      *time.Time     `gorm:"comment:签署时间"`
}

// HasStoredFile reports whether FileURL points to blob storage.
func (d *Document) HasStoredFile() bool {
	return d.FileURL != "" && d.FileURL != OnlineSubmission
}
