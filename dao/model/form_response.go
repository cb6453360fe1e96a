package model

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormResponse stores the payload and signatures of one structured form.
// CoordinatorSignature.SignedAt (BLI-03) and VerifiedBy (BLI-04) are the approval flags.
type FormResponse struct {
	gorm.Model
	ApplicationID uint              `gorm:"not null;uniqueIndex:idx_form_response_type;comment:申请ID"`
	FormType      FormType          `gorm:"type:varchar(16);not null;uniqueIndex:idx_form_response_type;comment:表单类型"`
	Payload       datatypes.JSONMap `gorm:"comment:表单内容"`

	StudentSignature     SignatureSlot `gorm:"embedded;embeddedPrefix:student_"`
	SupervisorSignature  SignatureSlot `gorm:"embedded;embeddedPrefix:supervisor_"`
	CoordinatorSignature SignatureSlot `gorm:"embedded;embeddedPrefix:coordinator_"`
	VerifiedBy           *uint         `gorm:"comment:核验协调员ID"`
}

// PayloadString returns a payload value rendered as a string, or "" when absent.
func (f *FormResponse) PayloadString(key string) string {
	if f == nil || f.Payload == nil {
		return ""
	}
	v, ok := f.Payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ClearCoordinatorApproval drops the coordinator countersignature and verification.
func (f *FormResponse) ClearCoordinatorApproval() {
	f.CoordinatorSignature = SignatureSlot{}
	f.VerifiedBy = nil
}
