package workflow

import (
	"context"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
)

// Detail is an application with everything the student or coordinator screens show.
type Detail struct {
	Application *model.Application   `json:"application"`
	Forms       []model.FormResponse `json:"forms"`
	Documents   []model.Document     `json:"documents"`
	Reviews     []model.Review       `json:"reviews"`
	Unlock      UnlockStatus         `json:"unlock"`
}

// GetApplication returns an application visible to callerID with its children.
func (e *Engine) GetApplication(ctx context.Context, appID, callerID uint) (*Detail, error) {
	app, err := e.loadVisible(ctx, appID, callerID)
	if err != nil {
		return nil, err
	}
	d := &Detail{Application: app}
	db := e.db.WithContext(ctx)
	if err := db.Where("application_id = ?", app.ID).Order("id").Find(&d.Forms).Error; err != nil {
		return nil, err
	}
	if err := db.Where("application_id = ?", app.ID).Order("id").Find(&d.Documents).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Reviewer").Where("application_id = ?", app.ID).Order("created_at DESC").Find(&d.Reviews).Error; err != nil {
		return nil, err
	}
	d.Unlock = ComputeUnlockStatus(app, d.Forms, d.Documents)
	return d, nil
}

// ListStudentApplications returns the student's applications, newest first.
func (e *Engine) ListStudentApplications(ctx context.Context, studentID uint) ([]*model.Application, error) {
	var apps []*model.Application
	err := e.db.WithContext(ctx).Preload("Session").Preload("Company").
		Where("user_id = ?", studentID).
		Order("created_at DESC, id DESC").Find(&apps).Error
	return apps, err
}

// ListCoordinatorQueue returns applications of the coordinator's sessions, oldest
// update first. Without statuses it returns everything that is not cancelled.
func (e *Engine) ListCoordinatorQueue(
	ctx context.Context,
	coordinatorID uint,
	statuses []model.ApplicationStatus,
) ([]*model.Application, error) {
	var sessionIDs []uint
	if err := e.db.WithContext(ctx).Model(&model.Session{}).
		Where("coordinator_id = ?", coordinatorID).Pluck("id", &sessionIDs).Error; err != nil {
		return nil, err
	}
	if len(sessionIDs) == 0 {
		return nil, bizerr.Forbidden("you do not coordinate any session")
	}

	q := e.db.WithContext(ctx).Preload("User").Preload("Session").Preload("Company").
		Where("session_id IN ?", sessionIDs)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	} else {
		q = q.Where("status <> ?", model.ApplicationStatusCancelled)
	}
	var apps []*model.Application
	err := q.Order("updated_at, id").Find(&apps).Error
	return apps, err
}
