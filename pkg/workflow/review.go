package workflow

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
)

// Decision is a coordinator verdict on one document.
type Decision struct {
	Decision model.ReviewDecision `json:"decision"`
	Comments string               `json:"comments"`
	// Signature is optional; the coordinator's name is used as a typed signature otherwise.
	Signature *Signature `json:"signature,omitempty"`
}

// reviewTarget is what a decision is applied to. Form is nil for plain uploads.
type reviewTarget struct {
	app  *model.Application
	doc  *model.Document
	form *model.FormResponse
}

// ReviewDocument applies a decision to a document. BLI-01 and BLI-02 approval
// approves the application.
func (e *Engine) ReviewDocument(ctx context.Context, coordinatorID, docID uint, d *Decision) (*model.Document, error) {
	var doc model.Document
	if err := e.db.WithContext(ctx).First(&doc, docID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.NotFound("document %d not found", docID)
		}
		return nil, err
	}
	t, err := e.prepareReview(ctx, coordinatorID, doc.ApplicationID, doc.Type, d)
	if err != nil {
		return nil, err
	}
	return e.applyDecision(ctx, coordinatorID, t, d)
}

// ApproveBLI03 countersigns, or sends back, the student's work plan.
func (e *Engine) ApproveBLI03(ctx context.Context, coordinatorID, appID uint, d *Decision) (*model.Document, error) {
	t, err := e.prepareReview(ctx, coordinatorID, appID, model.DocumentTypeBLI03, d)
	if err != nil {
		return nil, err
	}
	return e.applyDecision(ctx, coordinatorID, t, d)
}

// VerifyBLI04 marks the completion report as verified by the coordinator.
func (e *Engine) VerifyBLI04(ctx context.Context, coordinatorID, appID uint, d *Decision) (*model.Document, error) {
	t, err := e.prepareReview(ctx, coordinatorID, appID, model.DocumentTypeBLI04, d)
	if err != nil {
		return nil, err
	}
	return e.applyDecision(ctx, coordinatorID, t, d)
}

func formTypeOf(docType model.DocumentType) (model.FormType, bool) {
	switch docType {
	case model.DocumentTypeBLI01:
		return model.FormTypeBLI01, true
	case model.DocumentTypeBLI03:
		return model.FormTypeBLI03, true
	case model.DocumentTypeBLI04:
		return model.FormTypeBLI04, true
	default:
		return "", false
	}
}

func (e *Engine) prepareReview(
	ctx context.Context,
	coordinatorID, appID uint,
	docType model.DocumentType,
	d *Decision,
) (*reviewTarget, error) {
	if d == nil || !d.Decision.Valid() {
		return nil, bizerr.BadRequest("decision must be one of APPROVE, REQUEST_CHANGES, REJECT")
	}
	app, err := e.loadForCoordinator(ctx, appID, coordinatorID)
	if err != nil {
		return nil, err
	}
	if app.Status.IsTerminal() {
		return nil, bizerr.BadRequest("application %d is %s and can no longer be reviewed", app.ID, app.Status)
	}
	t := &reviewTarget{app: app}

	if formType, ok := formTypeOf(docType); ok {
		var form model.FormResponse
		found, err := findOne(e.db.WithContext(ctx), &form, "application_id = ? AND form_type = ?", app.ID, formType)
		if err != nil {
			return nil, err
		}
		if !found || !form.StudentSignature.IsSigned() {
			return nil, bizerr.BadRequest("%s has not been submitted and signed by the student", formType.Label())
		}
		t.form = &form
	}

	var doc model.Document
	found, err := findOne(e.db.WithContext(ctx), &doc, "application_id = ? AND type = ?", app.ID, docType)
	if err != nil {
		return nil, err
	}
	if !found {
		if t.form == nil {
			return nil, bizerr.NotFound("%s has not been uploaded", docType.Label())
		}
		doc = model.Document{
			ApplicationID: app.ID,
			Type:          docType,
			FileURL:       model.OnlineSubmission,
			Status:        model.DocumentStatusPendingSignature,
			Version:       1,
		}
	}
	t.doc = &doc
	return t, nil
}

func (e *Engine) applyDecision(ctx context.Context, coordinatorID uint, t *reviewTarget, d *Decision) (*model.Document, error) {
	now := e.now()
	coordinator := t.app.Session.Coordinator
	docType := t.doc.Type
	var dropped string

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch d.Decision {
		case model.ReviewDecisionApprove:
			if t.form != nil {
				sig := Signature{Value: coordinator.DisplayName(), Type: model.SignatureTypeTyped}
				if d.Signature != nil && d.Signature.Value != "" {
					sig = *d.Signature
				}
				slot, err := sig.slot(now)
				if err != nil {
					return err
				}
				t.form.CoordinatorSignature = slot
				if t.form.FormType == model.FormTypeBLI04 {
					t.form.VerifiedBy = &coordinatorID
				}
			}
			t.doc.Status = model.DocumentStatusSigned
			signedBy := coordinator.DisplayName()
			t.doc.SignedBy = &signedBy
			t.doc.SignedAt = &now
			switch docType {
			case model.DocumentTypeBLI01, model.DocumentTypeBLI02, model.DocumentTypeBLI03:
				if err := setApplicationStatus(tx, t.app, model.ApplicationStatusApproved); err != nil {
					return err
				}
			}

		case model.ReviewDecisionRequestChanges:
			if t.form != nil {
				t.form.ClearCoordinatorApproval()
				// BLI-01 and BLI-03 have to be signed again by the student.
				if t.form.FormType == model.FormTypeBLI01 || t.form.FormType == model.FormTypeBLI03 {
					t.form.StudentSignature = model.SignatureSlot{}
				}
				if t.doc.HasStoredFile() {
					dropped = t.doc.FileURL
				}
				t.doc.FileURL = model.OnlineSubmission
			}
			t.doc.Status = model.DocumentStatusDraft
			t.doc.SignedBy = nil
			t.doc.SignedAt = nil
			switch docType {
			case model.DocumentTypeBLI01, model.DocumentTypeBLI02:
				if err := setApplicationStatus(tx, t.app, model.ApplicationStatusUnderReview); err != nil {
					return err
				}
			}

		case model.ReviewDecisionReject:
			t.doc.Status = model.DocumentStatusRejected
		}

		if t.form != nil {
			if err := tx.Save(t.form).Error; err != nil {
				return err
			}
		}
		if err := tx.Save(t.doc).Error; err != nil {
			return err
		}
		return tx.Create(&model.Review{
			ApplicationID: t.app.ID,
			DocumentType:  docType,
			ReviewerID:    coordinatorID,
			Decision:      d.Decision,
			Comments:      d.Comments,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	e.discard(ctx, dropped)
	klog.Infof("coordinator %d decided %s on %s of application %d", coordinatorID, d.Decision, docType, t.app.ID)

	data := map[string]any{
		"applicationId": t.app.ID,
		"formType":      docType.Label(),
		"comments":      d.Comments,
	}
	switch d.Decision {
	case model.ReviewDecisionApprove:
		e.afterApproval(ctx, t.app, docType)
		e.notify(ctx, t.app.UserID, model.NotificationDocumentApproved, data)
	case model.ReviewDecisionRequestChanges:
		e.notify(ctx, t.app.UserID, model.NotificationChangesRequested, data)
	case model.ReviewDecisionReject:
		e.notify(ctx, t.app.UserID, model.NotificationDocumentRejected, data)
	}
	return t.doc, nil
}

func setApplicationStatus(tx *gorm.DB, app *model.Application, status model.ApplicationStatus) error {
	if app.Status == status {
		return nil
	}
	if err := tx.Model(app).Update("status", status).Error; err != nil {
		return err
	}
	app.Status = status
	return nil
}

// afterApproval regenerates the approved form and opens placeholders for newly
// unlocked documents. Failures are logged only.
func (e *Engine) afterApproval(ctx context.Context, app *model.Application, docType model.DocumentType) {
	if _, ok := e.generators[docType]; ok {
		if _, err := e.renderAndStore(ctx, app, docType); err != nil {
			klog.Warningf("regenerate %s for application %d: %v", docType, app.ID, err)
		}
	}

	status, err := e.unlockOf(ctx, app)
	if err != nil {
		klog.Warningf("unlock status of application %d: %v", app.ID, err)
		return
	}
	var placeholders []model.DocumentType
	if status.SLI03 {
		placeholders = append(placeholders, model.DocumentTypeSLI03)
	}
	if status.DLI01 {
		placeholders = append(placeholders, model.DocumentTypeDLI01)
	}
	for _, dt := range placeholders {
		doc := model.Document{
			ApplicationID: app.ID,
			Type:          dt,
			FileURL:       model.OnlineSubmission,
			Status:        model.DocumentStatusDraft,
			Version:       1,
		}
		err := e.db.WithContext(ctx).
			Where(model.Document{ApplicationID: app.ID, Type: dt}).
			FirstOrCreate(&doc).Error
		if err != nil {
			klog.Warningf("create %s placeholder for application %d: %v", dt, app.ID, err)
		}
	}
}

// StartReview tells the student that the coordinator picked the application up.
func (e *Engine) StartReview(ctx context.Context, coordinatorID, appID uint) (*model.Application, error) {
	app, err := e.loadForCoordinator(ctx, appID, coordinatorID)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationStatusSubmitted {
		return nil, bizerr.BadRequest("only submitted applications can be taken into review, application is %s", app.Status)
	}
	if err := setApplicationStatus(e.db.WithContext(ctx), app, model.ApplicationStatusUnderReview); err != nil {
		return nil, err
	}
	return app, nil
}
