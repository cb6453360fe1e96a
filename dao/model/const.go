// Constants mirroring enum-like table columns.
// Gin treats zero values as missing under `binding:"required"`, so string enums are
// used for everything that travels through request bodies.
package model

import "strings"

// Role of a user on the platform
type Role string

const (
	RoleStudent     Role = "student"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

// Status of a user account
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ApplicationStatus is the lifecycle state of an Application
type ApplicationStatus string

const (
	ApplicationStatusDraft       ApplicationStatus = "DRAFT"
	ApplicationStatusSubmitted   ApplicationStatus = "SUBMITTED"
	ApplicationStatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	ApplicationStatusApproved    ApplicationStatus = "APPROVED"
	ApplicationStatusRejected    ApplicationStatus = "REJECTED"
	ApplicationStatusCancelled   ApplicationStatus = "CANCELLED"
)

// IsTerminal reports whether the application no longer counts as the active one
// for its (user, session) pair.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusCancelled || s == ApplicationStatusRejected
}

// NonTerminalApplicationStatuses lists the statuses an active application may be in.
func NonTerminalApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		ApplicationStatusDraft,
		ApplicationStatusSubmitted,
		ApplicationStatusUnderReview,
		ApplicationStatusApproved,
	}
}

// FormType identifies a structured form with a FormResponse row
type FormType string

const (
	FormTypeBLI01 FormType = "BLI_01"
	FormTypeBLI03 FormType = "BLI_03"
	FormTypeBLI04 FormType = "BLI_04"
)

// DocumentType identifies a per-application artifact
type DocumentType string

const (
	DocumentTypeBLI01 DocumentType = "BLI_01"
	DocumentTypeBLI02 DocumentType = "BLI_02"
	DocumentTypeBLI03 DocumentType = "BLI_03"
	DocumentTypeBLI04 DocumentType = "BLI_04"
	DocumentTypeSLI03 DocumentType = "SLI_03"
	DocumentTypeSLI04 DocumentType = "SLI_04"
	DocumentTypeDLI01 DocumentType = "DLI_01"
)

// AllDocumentTypes returns every document type in workflow order.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeBLI01,
		DocumentTypeBLI02,
		DocumentTypeBLI03,
		DocumentTypeSLI03,
		DocumentTypeDLI01,
		DocumentTypeBLI04,
		DocumentTypeSLI04,
	}
}

// DocumentStatus is the review state of a Document
type DocumentStatus string

const (
	DocumentStatusDraft            DocumentStatus = "DRAFT"
	DocumentStatusPendingSignature DocumentStatus = "PENDING_SIGNATURE"
	DocumentStatusSigned           DocumentStatus = "SIGNED"
	DocumentStatusRejected         DocumentStatus = "REJECTED"
)

// OnlineSubmission marks a Document whose content lives in a FormResponse and has not
// been materialized as a stored file yet.
const OnlineSubmission = "ONLINE_SUBMISSION"

// SignatureType tags how a signature payload was produced
type SignatureType string

const (
	SignatureTypeTyped SignatureType = "typed"
	SignatureTypeDrawn SignatureType = "drawn"
	SignatureTypeImage SignatureType = "image"
)

// Normalize maps an empty type to typed and reports whether t is a known type.
func (t SignatureType) Normalize() (SignatureType, bool) {
	switch t {
	case "":
		return SignatureTypeTyped, true
	case SignatureTypeTyped, SignatureTypeDrawn, SignatureTypeImage:
		return t, true
	default:
		return t, false
	}
}

// ReviewDecision is a coordinator decision
type ReviewDecision string

const (
	ReviewDecisionApprove        ReviewDecision = "APPROVE"
	ReviewDecisionRequestChanges ReviewDecision = "REQUEST_CHANGES"
	ReviewDecisionReject         ReviewDecision = "REJECT"
)

func (d ReviewDecision) Valid() bool {
	switch d {
	case ReviewDecisionApprove, ReviewDecisionRequestChanges, ReviewDecisionReject:
		return true
	default:
		return false
	}
}

// Label renders the type the way it is printed on forms, e.g. BLI-01.
func (t DocumentType) Label() string {
	return strings.ReplaceAll(string(t), "_", "-")
}

func (t FormType) Label() string {
	return strings.ReplaceAll(string(t), "_", "-")
}

// DocumentType returns the Document type backed by this form.
func (t FormType) DocumentType() DocumentType {
	return DocumentType(t)
}
