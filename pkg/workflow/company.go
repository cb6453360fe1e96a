package workflow

import (
	"strings"

	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
)

// Organization is the host organization as typed by the student.
type Organization struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
}

// upsertCompany finds a company by exact (name, address) or creates it. Contact
// fields of an existing company are overwritten with the latest submission.
func upsertCompany(tx *gorm.DB, org Organization) (*model.Company, error) {
	name := strings.TrimSpace(org.Name)
	address := strings.TrimSpace(org.Address)

	var company model.Company
	found, err := findOne(tx, &company, "name = ? AND address = ?", name, address)
	if err != nil {
		return nil, err
	}
	if !found {
		company = model.Company{
			Name:         name,
			Address:      address,
			ContactName:  org.ContactName,
			ContactEmail: org.ContactEmail,
			ContactPhone: org.ContactPhone,
		}
		return &company, tx.Create(&company).Error
	}
	err = tx.Model(&company).Updates(map[string]any{
		"contact_name":  org.ContactName,
		"contact_email": org.ContactEmail,
		"contact_phone": org.ContactPhone,
	}).Error
	return &company, err
}
