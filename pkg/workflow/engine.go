// Package workflow implements the practicum application workflow: form submission,
// coordinator review, document unlocking, PDF caching and document export.
package workflow

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/pdfgen"
	"github.com/raids-lab/ptms/pkg/storage"
)

// Notifier is the part of notify.Notifier the workflow needs.
type Notifier interface {
	Notify(ctx context.Context, userID uint, t model.NotificationType, data map[string]any) (*model.Notification, error)
}

type Engine struct {
	db         *gorm.DB
	store      storage.Interface
	generators map[model.DocumentType]pdfgen.Generator
	notifier   Notifier
	now        func() time.Time
}

func NewEngine(
	db *gorm.DB,
	store storage.Interface,
	generators map[model.DocumentType]pdfgen.Generator,
	notifier Notifier,
) *Engine {
	return &Engine{
		db:         db,
		store:      store,
		generators: generators,
		notifier:   notifier,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// notify never fails the caller; delivery problems are only logged.
func (e *Engine) notify(ctx context.Context, userID uint, t model.NotificationType, data map[string]any) {
	if e.notifier == nil || userID == 0 {
		return
	}
	if _, err := e.notifier.Notify(ctx, userID, t, data); err != nil {
		klog.Warningf("notify user %d with %s: %v", userID, t, err)
	}
}

// findOne loads the first row matching the condition into dest and reports
// whether one was found.
func findOne(tx *gorm.DB, dest any, query string, args ...any) (bool, error) {
	err := tx.Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// discard deletes blob objects a document no longer points at. Failures only
// leave an orphan behind and are logged.
func (e *Engine) discard(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" || p == model.OnlineSubmission {
			continue
		}
		if err := e.store.Delete(ctx, p); err != nil {
			klog.Warningf("delete stale object %s: %v", p, err)
		}
	}
}
