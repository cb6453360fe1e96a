package workflow

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
	"github.com/raids-lab/ptms/pkg/storage"
)

type Signature struct {
	Value string              `json:"value"`
	Type  model.SignatureType `json:"type"`
}

func (s Signature) slot(at time.Time) (model.SignatureSlot, error) {
	if strings.TrimSpace(s.Value) == "" {
		return model.SignatureSlot{}, bizerr.BadRequest("signature is required")
	}
	t, ok := s.Type.Normalize()
	if !ok {
		return model.SignatureSlot{}, bizerr.BadRequest("unknown signature type %q", s.Type)
	}
	return model.NewSignatureSlot(s.Value, t, at), nil
}

// Submission is the student input shared by BLI-01, BLI-03 and BLI-04.
type Submission struct {
	Organization    Organization   `json:"organization"`
	SupervisorName  string         `json:"supervisorName"`
	SupervisorEmail string         `json:"supervisorEmail"`
	StartDate       *time.Time     `json:"startDate"`
	EndDate         *time.Time     `json:"endDate"`
	Payload         map[string]any `json:"payload"`
	Signature       Signature      `json:"signature"`
}

func (s *Submission) validate(requireOrganization bool) error {
	if requireOrganization && strings.TrimSpace(s.Organization.Name) == "" {
		return bizerr.BadRequest("organization name is required")
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return bizerr.BadRequest("end date must not be before start date")
	}
	return nil
}

// applyTo copies the denormalized organization and placement fields. Empty
// fields keep the values of earlier submissions.
func (s *Submission) applyTo(app *model.Application) {
	if s.Organization.Name != "" {
		app.OrganizationName = strings.TrimSpace(s.Organization.Name)
		app.OrganizationAddress = strings.TrimSpace(s.Organization.Address)
		app.ContactName = s.Organization.ContactName
		app.ContactEmail = s.Organization.ContactEmail
		app.ContactPhone = s.Organization.ContactPhone
	}
	if s.SupervisorName != "" {
		app.SupervisorName = s.SupervisorName
	}
	if s.SupervisorEmail != "" {
		app.SupervisorEmail = s.SupervisorEmail
	}
	if s.StartDate != nil {
		app.StartDate = s.StartDate
	}
	if s.EndDate != nil {
		app.EndDate = s.EndDate
	}
}

func (e *Engine) activeSession(ctx context.Context) (*model.Session, error) {
	var session model.Session
	found, err := findOne(e.db.WithContext(ctx).Order("start_date DESC"), &session, "active = ?", true)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, bizerr.NotFound("no active practicum session")
	}
	return &session, nil
}

// SubmitBLI01 starts a new application in the active session. An earlier
// non-terminal application of the student in that session is superseded: it is
// cancelled and keeps its children for audit.
func (e *Engine) SubmitBLI01(ctx context.Context, studentID uint, req *Submission) (*model.Application, error) {
	if err := req.validate(true); err != nil {
		return nil, err
	}
	now := e.now()
	sig, err := req.Signature.slot(now)
	if err != nil {
		return nil, err
	}
	session, err := e.activeSession(ctx)
	if err != nil {
		return nil, err
	}

	app := &model.Application{
		UserID:           studentID,
		SessionID:        session.ID,
		Status:           model.ApplicationStatusDraft,
		StudentSignature: sig,
	}
	req.applyTo(app)

	var left bool
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := upsertCompany(tx, req.Organization)
		if err != nil {
			return err
		}
		app.CompanyID = &company.ID
		if err := tx.Create(app).Error; err != nil {
			return err
		}

		var previous []uint
		if err := tx.Model(&model.Application{}).
			Where("user_id = ? AND session_id = ? AND status IN ? AND id <> ?",
				studentID, session.ID, model.NonTerminalApplicationStatuses(), app.ID).
			Pluck("id", &previous).Error; err != nil {
			return err
		}
		if len(previous) > 0 {
			if err := tx.Model(&model.Application{}).Where("id IN ?", previous).Updates(map[string]any{
				"status":           model.ApplicationStatusCancelled,
				"superseded_at":    now,
				"superseded_by_id": app.ID,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.SupervisorToken{}).
				Where("application_id IN ? AND is_revoked = ?", previous, false).
				Update("is_revoked", true).Error; err != nil {
				return err
			}
		}

		form := &model.FormResponse{
			ApplicationID:    app.ID,
			FormType:         model.FormTypeBLI01,
			Payload:          datatypes.JSONMap(req.Payload),
			StudentSignature: sig,
		}
		if err := tx.Create(form).Error; err != nil {
			return err
		}
		doc := &model.Document{
			ApplicationID: app.ID,
			Type:          model.DocumentTypeBLI01,
			FileURL:       model.OnlineSubmission,
			Status:        model.DocumentStatusPendingSignature,
			Version:       1,
		}
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		left, err = markSubmitted(tx, app)
		return err
	})
	if err != nil {
		return nil, err
	}

	app.Session = *session
	if left {
		e.notifySubmitted(ctx, app, model.DocumentTypeBLI01)
	}
	klog.Infof("student %d submitted BLI-01 as application %d", studentID, app.ID)
	return app, nil
}

// SubmitBLI03 accepts the work plan once the application is approved.
func (e *Engine) SubmitBLI03(ctx context.Context, studentID, appID uint, req *Submission) (*model.Application, error) {
	return e.submitForm(ctx, studentID, appID, model.FormTypeBLI03, req, func(u UnlockStatus) error {
		if !u.BLI03 {
			return bizerr.BadRequest("BLI-03 is locked until the application is approved")
		}
		return nil
	})
}

// SubmitBLI04 accepts the completion report once SLI-03 has been issued.
func (e *Engine) SubmitBLI04(ctx context.Context, studentID, appID uint, req *Submission) (*model.Application, error) {
	return e.submitForm(ctx, studentID, appID, model.FormTypeBLI04, req, func(u UnlockStatus) error {
		if !u.SLI03 {
			return bizerr.BadRequest("BLI-04 is locked until BLI-03 is approved by the coordinator")
		}
		return nil
	})
}

func (e *Engine) submitForm(
	ctx context.Context,
	studentID, appID uint,
	formType model.FormType,
	req *Submission,
	unlocked func(UnlockStatus) error,
) (*model.Application, error) {
	if err := req.validate(false); err != nil {
		return nil, err
	}
	now := e.now()
	sig, err := req.Signature.slot(now)
	if err != nil {
		return nil, err
	}
	app, err := e.loadOwned(ctx, appID, studentID)
	if err != nil {
		return nil, err
	}
	if app.Status.IsTerminal() {
		return nil, bizerr.BadRequest("application %d is %s", app.ID, app.Status)
	}
	status, err := e.unlockOf(ctx, app)
	if err != nil {
		return nil, err
	}
	if err := unlocked(status); err != nil {
		return nil, err
	}

	var left bool
	var previous string
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChangeRequests(tx, app.ID); err != nil {
			return err
		}

		if req.Organization.Name != "" {
			company, err := upsertCompany(tx, req.Organization)
			if err != nil {
				return err
			}
			app.CompanyID = &company.ID
			app.Company = *company
		}
		req.applyTo(app)
		if err := tx.Model(app).Select(
			"company_id", "organization_name", "organization_address", "contact_name", "contact_email",
			"contact_phone", "supervisor_name", "supervisor_email", "start_date", "end_date",
		).Updates(app).Error; err != nil {
			return err
		}

		var form model.FormResponse
		found, err := findOne(tx, &form, "application_id = ? AND form_type = ?", app.ID, formType)
		if err != nil {
			return err
		}
		form.ApplicationID = app.ID
		form.FormType = formType
		form.Payload = datatypes.JSONMap(req.Payload)
		form.StudentSignature = sig
		form.ClearCoordinatorApproval()
		if found {
			err = tx.Save(&form).Error
		} else {
			err = tx.Create(&form).Error
		}
		if err != nil {
			return err
		}

		if previous, err = resubmitDocument(tx, app.ID, formType.DocumentType()); err != nil {
			return err
		}
		left, err = markSubmitted(tx, app)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.discard(ctx, previous)

	if left {
		e.notifySubmitted(ctx, app, formType.DocumentType())
	}
	klog.Infof("student %d submitted %s for application %d", studentID, formType, app.ID)
	return app, nil
}

// deleteChangeRequests drops the outstanding REQUEST_CHANGES reviews of an
// application once the student submits again.
func deleteChangeRequests(tx *gorm.DB, appID uint) error {
	return tx.Where("application_id = ? AND decision = ?", appID, model.ReviewDecisionRequestChanges).
		Delete(&model.Review{}).Error
}

// resubmitDocument bumps the version of the form's document and drops any cached
// PDF, or creates the document at version 1. It returns the dropped object path.
func resubmitDocument(tx *gorm.DB, appID uint, docType model.DocumentType) (string, error) {
	var doc model.Document
	found, err := findOne(tx, &doc, "application_id = ? AND type = ?", appID, docType)
	if err != nil {
		return "", err
	}
	if !found {
		return "", tx.Create(&model.Document{
			ApplicationID: appID,
			Type:          docType,
			FileURL:       model.OnlineSubmission,
			Status:        model.DocumentStatusPendingSignature,
			Version:       1,
		}).Error
	}
	var previous string
	if doc.HasStoredFile() {
		previous = doc.FileURL
	}
	doc.Version++
	doc.Status = model.DocumentStatusPendingSignature
	doc.FileURL = model.OnlineSubmission
	doc.SignedBy = nil
	doc.SignedAt = nil
	return previous, tx.Save(&doc).Error
}

// markSubmitted moves a DRAFT application to SUBMITTED and reports whether it did.
func markSubmitted(tx *gorm.DB, app *model.Application) (bool, error) {
	if app.Status != model.ApplicationStatusDraft {
		return false, nil
	}
	if err := tx.Model(app).Update("status", model.ApplicationStatusSubmitted).Error; err != nil {
		return false, err
	}
	app.Status = model.ApplicationStatusSubmitted
	return true, nil
}

func (e *Engine) notifySubmitted(ctx context.Context, app *model.Application, docType model.DocumentType) {
	e.notify(ctx, app.UserID, model.NotificationSubmissionReceived, map[string]any{
		"applicationId": app.ID,
		"formType":      docType.Label(),
		"organization":  app.OrganizationName,
	})

	studentName := app.User.DisplayName()
	if app.User.ID == 0 {
		var student model.User
		if err := e.db.WithContext(ctx).First(&student, app.UserID).Error; err == nil {
			studentName = student.DisplayName()
		}
	}
	e.notify(ctx, app.Session.CoordinatorID, model.NotificationNewSubmission, map[string]any{
		"applicationId": app.ID,
		"studentName":   studentName,
		"formType":      docType.Label(),
		"organization":  app.OrganizationName,
		"sessionName":   app.Session.Name,
	})
}

// Upload is a file sent by a student.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadDocument stores a student upload, typically the signed BLI-02 acceptance
// letter, and puts the document back into review.
func (e *Engine) UploadDocument(
	ctx context.Context,
	studentID, appID uint,
	docType model.DocumentType,
	file *Upload,
) (*model.Document, error) {
	if !isDocumentType(docType) {
		return nil, bizerr.BadRequest("unknown document type %q", docType)
	}
	if file == nil || len(file.Data) == 0 {
		return nil, bizerr.BadRequest("file is empty")
	}
	app, err := e.loadOwned(ctx, appID, studentID)
	if err != nil {
		return nil, err
	}
	if app.Status.IsTerminal() {
		return nil, bizerr.BadRequest("application %d is %s", app.ID, app.Status)
	}

	ext := strings.ToLower(path.Ext(file.Filename))
	if ext == "" {
		ext = ".pdf"
	}
	stored, err := e.store.Upload(ctx, file.Data, storage.UploadOptions{
		Directory:   fmt.Sprintf("applications/%d/uploads", app.ID),
		Filename:    fmt.Sprintf("%s-%s%s", strings.ToLower(string(docType)), uuid.NewString(), ext),
		ContentType: file.ContentType,
		Metadata: map[string]string{
			"application":   fmt.Sprint(app.ID),
			"document-type": string(docType),
			"original-name": path.Base(file.Filename),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	var doc model.Document
	var left bool
	var previous string
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteChangeRequests(tx, app.ID); err != nil {
			return err
		}
		found, err := findOne(tx, &doc, "application_id = ? AND type = ?", app.ID, docType)
		if err != nil {
			return err
		}
		if found {
			doc.Version++
			if doc.HasStoredFile() {
				previous = doc.FileURL
			}
		} else {
			doc = model.Document{ApplicationID: app.ID, Type: docType, Version: 1}
		}
		doc.FileURL = stored.Path
		doc.Status = model.DocumentStatusPendingSignature
		doc.SignedBy = nil
		doc.SignedAt = nil
		if err := tx.Save(&doc).Error; err != nil {
			return err
		}
		left, err = markSubmitted(tx, app)
		return err
	})
	if err != nil {
		e.discard(ctx, stored.Path)
		return nil, err
	}
	e.discard(ctx, previous)

	if left {
		e.notifySubmitted(ctx, app, docType)
	}
	return &doc, nil
}

// UploadSupervisorSignature keeps a supervisor signature image on the application.
// It is used when the supervisor signs by image without sending one.
func (e *Engine) UploadSupervisorSignature(ctx context.Context, studentID, appID uint, image string) error {
	if strings.TrimSpace(image) == "" {
		return bizerr.BadRequest("signature image is required")
	}
	app, err := e.loadOwned(ctx, appID, studentID)
	if err != nil {
		return err
	}
	slot := model.NewSignatureSlot(image, model.SignatureTypeImage, e.now())
	return e.db.WithContext(ctx).Model(app).Select("supervisor_signature", "supervisor_type", "supervisor_signed_at").
		Updates(&model.Application{SupervisorSignature: slot}).Error
}

func isDocumentType(t model.DocumentType) bool {
	return lo.Contains(model.AllDocumentTypes(), t)
}
