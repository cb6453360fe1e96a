package model

import "gorm.io/gorm"

// Company is deduplicated by the exact (Name, Address) pair
type Company struct {
	gorm.Model
	Name         string `gorm:"type:varchar(256);not null;index:idx_company_identity;comment:公司名称"`
	Address      string `gorm:"type:varchar(512);not null;index:idx_company_identity;comment:公司地址"`
	ContactName  string `gorm:"type:varchar(128);comment:联系人"`
	ContactEmail string `gorm:"type:varchar(256);comment:联系人邮箱"`
	ContactPhone string `gorm:"type:varchar(64);comment:联系人电话"`
}
