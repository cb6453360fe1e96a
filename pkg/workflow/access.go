package workflow

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
)

func (e *Engine) loadApplication(ctx context.Context, appID uint) (*model.Application, error) {
	var app model.Application
	err := e.db.WithContext(ctx).
		Preload("User").Preload("Session").Preload("Session.Coordinator").Preload("Company").
		First(&app, appID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, bizerr.NotFound("application %d not found", appID)
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// loadOwned returns the application if studentID owns it.
func (e *Engine) loadOwned(ctx context.Context, appID, studentID uint) (*model.Application, error) {
	app, err := e.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.UserID != studentID {
		return nil, bizerr.Forbidden("application %d does not belong to you", appID)
	}
	return app, nil
}

// loadForCoordinator returns the application if coordinatorID runs its session.
func (e *Engine) loadForCoordinator(ctx context.Context, appID, coordinatorID uint) (*model.Application, error) {
	app, err := e.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.Session.CoordinatorID != coordinatorID {
		return nil, bizerr.Forbidden("you are not the coordinator of session %s", app.Session.Name)
	}
	return app, nil
}

// loadVisible lets the owner and the session coordinator read the application.
// Anyone else gets NotFound.
func (e *Engine) loadVisible(ctx context.Context, appID, callerID uint) (*model.Application, error) {
	app, err := e.loadApplication(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.UserID != callerID && app.Session.CoordinatorID != callerID {
		return nil, bizerr.NotFound("application %d not found", appID)
	}
	return app, nil
}
