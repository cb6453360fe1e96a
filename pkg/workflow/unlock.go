package workflow

import (
	"context"

	"github.com/raids-lab/ptms/dao/model"
)

// UnlockStatus tells which forms a student may work on next. It is derived on
// every request and never stored.
type UnlockStatus struct {
	BLI01 bool `json:"bli01"`
	BLI02 bool `json:"bli02"`
	BLI03 bool `json:"bli03"`
	SLI03 bool `json:"sli03"`
	DLI01 bool `json:"dli01"`
	BLI04 bool `json:"bli04"`
}

// ComputeUnlockStatus derives the unlock flags from the application status, its
// form responses and its documents.
func ComputeUnlockStatus(app *model.Application, forms []model.FormResponse, docs []model.Document) UnlockStatus {
	status := UnlockStatus{BLI01: true}
	if app == nil {
		return status
	}
	status.BLI03 = app.Status == model.ApplicationStatusApproved

	for i := range docs {
		if docs[i].Status != model.DocumentStatusSigned {
			continue
		}
		switch docs[i].Type {
		case model.DocumentTypeBLI02:
			status.BLI02 = true
		case model.DocumentTypeBLI04:
			status.BLI04 = true
		}
	}

	for i := range forms {
		switch forms[i].FormType {
		case model.FormTypeBLI03:
			if forms[i].CoordinatorSignature.SignedAt != nil {
				status.SLI03 = true
				status.DLI01 = true
			}
		case model.FormTypeBLI04:
			if forms[i].VerifiedBy != nil {
				status.BLI04 = true
			}
		}
	}
	return status
}

// GetUnlockStatus computes the unlock flags of an application visible to callerID.
func (e *Engine) GetUnlockStatus(ctx context.Context, appID, callerID uint) (UnlockStatus, error) {
	app, err := e.loadVisible(ctx, appID, callerID)
	if err != nil {
		return UnlockStatus{}, err
	}
	return e.unlockOf(ctx, app)
}

func (e *Engine) unlockOf(ctx context.Context, app *model.Application) (UnlockStatus, error) {
	var forms []model.FormResponse
	if err := e.db.WithContext(ctx).Where("application_id = ?", app.ID).Find(&forms).Error; err != nil {
		return UnlockStatus{}, err
	}
	var docs []model.Document
	if err := e.db.WithContext(ctx).Where("application_id = ?", app.ID).Find(&docs).Error; err != nil {
		return UnlockStatus{}, err
	}
	return ComputeUnlockStatus(app, forms, docs), nil
}
