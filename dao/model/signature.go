package model

import "time"

// SignatureSlot holds one signer's signature. Embedded with a column prefix per signer.
type SignatureSlot struct {
	Signature *string        `gorm:"type:text" json:"signature,omitempty"` // base64 payload or typed name
	Type      *SignatureType `gorm:"type:varchar(16)" json:"type,omitempty"`
	SignedAt  *time.Time     `json:"signedAt,omitempty"`
}

// IsSigned reports whether the slot carries a signature.
func (s SignatureSlot) IsSigned() bool {
	return s.Signature != nil && *s.Signature != "" && s.SignedAt != nil
}

// NewSignatureSlot builds a signed slot stamped at the given time.
func NewSignatureSlot(signature string, sigType SignatureType, at time.Time) SignatureSlot {
	return SignatureSlot{
		Signature: &signature,
		Type:      &sigType,
		SignedAt:  &at,
	}
}
