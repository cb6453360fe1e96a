package reminder

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
)

const (
	// BLI04GracePeriod is how long after the practicum ends BLI-04 is due.
	BLI04GracePeriod = 14 * 24 * time.Hour
	dateLayout       = "2006-01-02"
)

var (
	defaultReminderDays   = []int{14, 7, 3, 1}
	defaultEscalationDays = 7
)

type DailyReminderRequest struct {
	ReminderDays   []int `json:"reminderDays"`
	EscalationDays *int  `json:"escalationDays"`
}

// DailyResult lists the applications each notification kind was sent for.
type DailyResult struct {
	Reminded  []uint `json:"reminded"`
	Overdue   []uint `json:"overdue"`
	Escalated []uint `json:"escalated"`
}

// RunDailyReminders sends BLI-04 due and overdue reminders to students and
// escalates applications that waited too long for review. Escalations repeat on
// every run until the application is reviewed.
func RunDailyReminders(ctx context.Context, clients *Clients, req *DailyReminderRequest) (*DailyResult, error) {
	offsets := defaultReminderDays
	escalationDays := defaultEscalationDays
	if req != nil && len(req.ReminderDays) > 0 {
		offsets = req.ReminderDays
	}
	if req != nil && req.EscalationDays != nil && *req.EscalationDays > 0 {
		escalationDays = *req.EscalationDays
	}

	now := clients.now()
	result := &DailyResult{Reminded: []uint{}, Overdue: []uint{}, Escalated: []uint{}}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reminded, overdue, err := scanDeadlines(groupCtx, clients, now, offsets)
		result.Reminded, result.Overdue = reminded, overdue
		return err
	})
	g.Go(func() error {
		escalated, err := scanEscalations(groupCtx, clients, now, escalationDays)
		result.Escalated = escalated
		return err
	})
	if err := g.Wait(); err != nil {
		return result, err
	}
	klog.Infof("daily reminders: %d due, %d overdue, %d escalated",
		len(result.Reminded), len(result.Overdue), len(result.Escalated))
	return result, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	b = b.In(a.Location())
	from := startOfDay(a)
	to := startOfDay(b)
	return int(to.Sub(from).Round(24*time.Hour) / (24 * time.Hour))
}

func scanDeadlines(ctx context.Context, clients *Clients, now time.Time, offsets []int) (reminded, overdue []uint, err error) {
	var apps []*model.Application
	err = clients.DB.WithContext(ctx).
		Where("status = ? AND end_date IS NOT NULL", model.ApplicationStatusApproved).
		Where("NOT EXISTS (SELECT 1 FROM documents WHERE documents.application_id = applications.id AND documents.type = ? AND documents.deleted_at IS NULL)",
			model.DocumentTypeBLI04).
		Find(&apps).Error
	if err != nil {
		return nil, nil, err
	}

	reminded, overdue = []uint{}, []uint{}
	for _, app := range apps {
		due := app.EndDate.In(now.Location()).Add(BLI04GracePeriod)
		left := daysBetween(now, due)
		data := map[string]any{
			"applicationId": app.ID,
			"organization":  app.OrganizationName,
			"dueDate":       due.Format(dateLayout),
		}

		if slices.Contains(offsets, left) {
			data["daysLeft"] = left
			if _, err := clients.Notifier.Notify(ctx, app.UserID, model.NotificationBLI04DueReminder, data); err != nil {
				klog.Warningf("BLI-04 reminder for application %d: %v", app.ID, err)
			}
			reminded = append(reminded, app.ID)
		}
		if left < 0 {
			overdueData := map[string]any{
				"applicationId": app.ID,
				"organization":  app.OrganizationName,
				"dueDate":       due.Format(dateLayout),
				"daysOverdue":   -left,
			}
			if _, err := clients.Notifier.Notify(ctx, app.UserID, model.NotificationBLI04Overdue, overdueData); err != nil {
				klog.Warningf("BLI-04 overdue notice for application %d: %v", app.ID, err)
			}
			overdue = append(overdue, app.ID)
		}
	}
	return reminded, overdue, nil
}

func scanEscalations(ctx context.Context, clients *Clients, now time.Time, threshold int) ([]uint, error) {
	var apps []*model.Application
	err := clients.DB.WithContext(ctx).Preload("User").Preload("Session").
		Where("status IN ?", []model.ApplicationStatus{model.ApplicationStatusSubmitted, model.ApplicationStatusUnderReview}).
		Find(&apps).Error
	if err != nil {
		return nil, err
	}

	escalated := []uint{}
	for _, app := range apps {
		waiting := int(now.Sub(app.UpdatedAt) / (24 * time.Hour))
		if waiting < threshold {
			continue
		}
		_, err := clients.Notifier.Notify(ctx, app.Session.CoordinatorID, model.NotificationCoordinatorEscalation, map[string]any{
			"applicationId": app.ID,
			"studentName":   app.User.DisplayName(),
			"organization":  app.OrganizationName,
			"status":        string(app.Status),
			"daysWaiting":   waiting,
		})
		if err != nil {
			klog.Warningf("escalate application %d: %v", app.ID, err)
			continue
		}
		escalated = append(escalated, app.ID)
	}
	return escalated, nil
}
