package workflow

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
	"github.com/raids-lab/ptms/pkg/metrics"
	"github.com/raids-lab/ptms/pkg/pdfgen"
	"github.com/raids-lab/ptms/pkg/storage"
)

// PDF is a rendered or cached document.
type PDF struct {
	Filename string
	Data     []byte
	Cached   bool
}

// GeneratePDF serves the stored PDF of a document, rendering and storing it first
// when it has never been generated or the stored object is gone. Concurrent
// first requests may both render; the last write wins.
func (e *Engine) GeneratePDF(ctx context.Context, appID, callerID uint, docType model.DocumentType) (*PDF, error) {
	if _, ok := e.generators[docType]; !ok {
		return nil, bizerr.BadRequest("%s has no printable form", docType.Label())
	}
	app, err := e.loadVisible(ctx, appID, callerID)
	if err != nil {
		return nil, err
	}

	var doc model.Document
	found, err := findOne(e.db.WithContext(ctx), &doc, "application_id = ? AND type = ?", app.ID, docType)
	if err != nil {
		return nil, err
	}
	if found && doc.HasStoredFile() {
		if data, ok := e.readCached(ctx, &doc); ok {
			metrics.PDFCacheHits.WithLabelValues(string(docType)).Inc()
			return &PDF{Filename: pdfFilename(app, docType), Data: data, Cached: true}, nil
		}
		// The stored object is gone, forget it and render again.
		if err := e.db.WithContext(ctx).Model(&doc).Update("file_url", model.OnlineSubmission).Error; err != nil {
			return nil, err
		}
	}

	data, err := e.renderAndStore(ctx, app, docType)
	if err != nil {
		return nil, err
	}
	return &PDF{Filename: pdfFilename(app, docType), Data: data}, nil
}

func (e *Engine) readCached(ctx context.Context, doc *model.Document) ([]byte, bool) {
	exists, err := e.store.Exists(ctx, doc.FileURL)
	if err != nil || !exists {
		klog.Warningf("cached %s of application %d missing at %s: %v", doc.Type, doc.ApplicationID, doc.FileURL, err)
		return nil, false
	}
	data, err := e.store.Download(ctx, doc.FileURL)
	if err != nil {
		klog.Warningf("read cached %s of application %d: %v", doc.Type, doc.ApplicationID, err)
		return nil, false
	}
	return data, true
}

func pdfFilename(app *model.Application, docType model.DocumentType) string {
	return fmt.Sprintf("%s_%d.pdf", docType.Label(), app.ID)
}

// render assembles the projection and runs the generator without storing anything.
func (e *Engine) render(ctx context.Context, app *model.Application, docType model.DocumentType) ([]byte, error) {
	gen, ok := e.generators[docType]
	if !ok {
		return nil, bizerr.BadRequest("%s has no printable form", docType.Label())
	}
	data, err := e.projection(ctx, app, docType)
	if err != nil {
		return nil, err
	}
	if err := gen.Validate(data); err != nil {
		return nil, bizerr.BadRequest("%s is incomplete: %v", docType.Label(), err)
	}
	out, err := gen.Generate(data)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", docType, err)
	}
	metrics.PDFGenerated.WithLabelValues(string(docType)).Inc()
	return out, nil
}

// renderAndStore renders, uploads and points the document row at the new object.
// Documents waiting for review keep their status, everything else becomes SIGNED.
func (e *Engine) renderAndStore(ctx context.Context, app *model.Application, docType model.DocumentType) ([]byte, error) {
	out, err := e.render(ctx, app, docType)
	if err != nil {
		return nil, err
	}
	stored, err := e.store.Upload(ctx, out, storage.UploadOptions{
		Directory:   fmt.Sprintf("applications/%d/pdf", app.ID),
		Filename:    fmt.Sprintf("%s-%d.pdf", strings.ToLower(string(docType)), e.now().UnixNano()),
		ContentType: "application/pdf",
		Metadata:    map[string]string{"application": fmt.Sprint(app.ID), "document-type": string(docType)},
	})
	if err != nil {
		klog.Warningf("store %s of application %d: %v", docType, app.ID, err)
		return out, nil
	}

	var previous string
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc model.Document
		found, err := findOne(tx, &doc, "application_id = ? AND type = ?", app.ID, docType)
		if err != nil {
			return err
		}
		if !found {
			doc = model.Document{ApplicationID: app.ID, Type: docType, Version: 1}
		}
		if doc.HasStoredFile() && doc.FileURL != stored.Path {
			previous = doc.FileURL
		}
		doc.FileURL = stored.Path
		if doc.Status != model.DocumentStatusPendingSignature && doc.Status != model.DocumentStatusRejected {
			doc.Status = model.DocumentStatusSigned
		}
		return tx.Save(&doc).Error
	})
	if err != nil {
		klog.Warningf("record %s of application %d: %v", docType, app.ID, err)
		e.discard(ctx, stored.Path)
		return out, nil
	}
	e.discard(ctx, previous)
	return out, nil
}

func (e *Engine) formOf(ctx context.Context, appID uint, formType model.FormType) (*model.FormResponse, error) {
	var form model.FormResponse
	found, err := findOne(e.db.WithContext(ctx), &form, "application_id = ? AND form_type = ?", appID, formType)
	if err != nil || !found {
		return nil, err
	}
	return &form, nil
}

// projection checks the preconditions of a form and collects what it prints.
func (e *Engine) projection(ctx context.Context, app *model.Application, docType model.DocumentType) (*pdfgen.Data, error) {
	data := baseProjection(app)
	data.GeneratedAt = e.now()
	coordinator := app.Session.Coordinator.DisplayName()
	student := data.StudentName

	switch docType {
	case model.DocumentTypeBLI01:
		form, err := e.formOf(ctx, app.ID, model.FormTypeBLI01)
		if err != nil {
			return nil, err
		}
		if form == nil || !form.StudentSignature.IsSigned() {
			return nil, bizerr.BadRequest("BLI-01 must be submitted and signed before generating its PDF")
		}
		data.Payload = payloadStrings(form)
		data.Signers = []pdfgen.Signer{
			{Role: "Student", Name: student, Slot: form.StudentSignature},
			{Role: "Coordinator", Name: coordinator, Slot: form.CoordinatorSignature},
		}

	case model.DocumentTypeBLI03, model.DocumentTypeSLI03, model.DocumentTypeDLI01:
		form, err := e.formOf(ctx, app.ID, model.FormTypeBLI03)
		if err != nil {
			return nil, err
		}
		if form == nil || form.CoordinatorSignature.SignedAt == nil || app.Status != model.ApplicationStatusApproved {
			if docType == model.DocumentTypeBLI03 {
				return nil, bizerr.BadRequest("BLI-03 must be approved by the coordinator before generating its PDF")
			}
			return nil, bizerr.BadRequest("BLI-03 must be fully approved before generating %s", docType.Label())
		}
		data.Payload = payloadStrings(form)
		switch docType {
		case model.DocumentTypeBLI03:
			data.Signers = []pdfgen.Signer{
				{Role: "Student", Name: student, Slot: form.StudentSignature},
				{Role: "Supervisor", Name: data.SupervisorName, Slot: form.SupervisorSignature},
				{Role: "Coordinator", Name: coordinator, Slot: form.CoordinatorSignature},
			}
		case model.DocumentTypeSLI03:
			data.Signers = []pdfgen.Signer{{Role: "Coordinator", Name: coordinator, Slot: form.CoordinatorSignature}}
		default:
			data.Signers = []pdfgen.Signer{
				{Role: "Student", Name: student},
				{Role: "Supervisor", Name: data.SupervisorName},
			}
		}

	case model.DocumentTypeBLI04, model.DocumentTypeSLI04:
		form, err := e.formOf(ctx, app.ID, model.FormTypeBLI04)
		if err != nil {
			return nil, err
		}
		supervisorSigned := form != nil && form.SupervisorSignature.IsSigned()
		if docType == model.DocumentTypeBLI04 && (form == nil || (form.VerifiedBy == nil && !supervisorSigned)) {
			return nil, bizerr.BadRequest("BLI-04 must be signed by the supervisor or verified by the coordinator before generating its PDF")
		}
		if docType == model.DocumentTypeSLI04 && !supervisorSigned {
			return nil, bizerr.BadRequest("BLI-04 must be signed by the supervisor before generating SLI-04")
		}
		data.Payload = payloadStrings(form)
		supervisor := form.PayloadString("supervisorName")
		if supervisor == "" {
			supervisor = data.SupervisorName
		}
		if docType == model.DocumentTypeBLI04 {
			data.Signers = []pdfgen.Signer{
				{Role: "Student", Name: student, Slot: form.StudentSignature},
				{Role: "Supervisor", Name: supervisor, Slot: form.SupervisorSignature},
				{Role: "Coordinator", Name: coordinator, Slot: form.CoordinatorSignature},
			}
		} else {
			data.Signers = []pdfgen.Signer{
				{Role: "Supervisor", Name: supervisor, Slot: form.SupervisorSignature},
				{Role: "Coordinator", Name: coordinator, Slot: form.CoordinatorSignature},
			}
		}

	default:
		return nil, bizerr.BadRequest("%s has no printable form", docType.Label())
	}
	return data, nil
}

func baseProjection(app *model.Application) *pdfgen.Data {
	orgName, orgAddress := app.OrganizationName, app.OrganizationAddress
	if orgName == "" {
		orgName, orgAddress = app.Company.Name, app.Company.Address
	}
	return &pdfgen.Data{
		StudentName:         app.User.DisplayName(),
		StudentNumber:       app.User.Name,
		StudentEmail:        app.User.Email,
		SessionName:         app.Session.Name,
		Year:                app.Session.Year,
		Semester:            app.Session.Semester,
		OrganizationName:    orgName,
		OrganizationAddress: orgAddress,
		ContactName:         app.ContactName,
		ContactEmail:        app.ContactEmail,
		ContactPhone:        app.ContactPhone,
		SupervisorName:      app.SupervisorName,
		SupervisorEmail:     app.SupervisorEmail,
		StartDate:           app.StartDate,
		EndDate:             app.EndDate,
	}
}

func payloadStrings(form *model.FormResponse) map[string]string {
	out := make(map[string]string, len(form.Payload))
	for k := range form.Payload {
		out[k] = form.PayloadString(k)
	}
	return out
}
