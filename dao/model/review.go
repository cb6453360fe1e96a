package model

import "gorm.io/gorm"

// Review is an append-only record of a coordinator decision
type Review struct {
	gorm.Model
	ApplicationID uint           `gorm:"not null;index;comment:申请ID"`
	DocumentType  DocumentType   `gorm:"type:varchar(16);not null;comment:文档类型"`
	ReviewerID    uint           `gorm:"not null;comment:审核人ID"`
	Reviewer      User           `gorm:"foreignKey:ReviewerID"`
	Decision      ReviewDecision `gorm:"type:varchar(32);not null;index;comment:审核决定"`
	Comments      string         `gorm:"type:text;comment:审核意见"`
}
