package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/dao/query/querytest"
	"github.com/raids-lab/ptms/pkg/mailer"
	"github.com/raids-lab/ptms/pkg/notify"
)

type env struct {
	db          *gorm.DB
	transport   *mailer.RecordingTransport
	clients     *Clients
	student     *model.User
	coordinator *model.User
	session     *model.Session
	now         time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := querytest.NewDB(t)
	transport := &mailer.RecordingTransport{}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)

	e := &env{
		db:          db,
		transport:   transport,
		student:     querytest.CreateUser(t, db, "student", model.RoleStudent),
		coordinator: querytest.CreateUser(t, db, "coordinator", model.RoleCoordinator),
		now:         now,
	}
	e.session = &model.Session{Name: "2026 S1", Year: 2026, Semester: 1, CoordinatorID: e.coordinator.ID, Active: true}
	require.NoError(t, db.Create(e.session).Error)

	notifier := notify.NewNotifier(db, transport, notify.LocaleEN).WithClock(func() time.Time { return now })
	e.clients = &Clients{DB: db, Notifier: notifier, Now: func() time.Time { return now }}
	return e
}

func (e *env) application(t *testing.T, status model.ApplicationStatus, endDate *time.Time) *model.Application {
	t.Helper()
	app := &model.Application{
		UserID:           e.student.ID,
		SessionID:        e.session.ID,
		Status:           status,
		EndDate:          endDate,
		OrganizationName: "Acme",
	}
	require.NoError(t, e.db.Create(app).Error)
	return app
}

func (e *env) notifications(t *testing.T, nt model.NotificationType) []*model.Notification {
	t.Helper()
	var out []*model.Notification
	require.NoError(t, e.db.Where("type = ?", nt).Find(&out).Error)
	return out
}

func TestDueReminderOnConfiguredOffset(t *testing.T) {
	e := newEnv(t)
	// due = end + 14 days = now + 7 days
	end := e.now.AddDate(0, 0, -7)
	app := e.application(t, model.ApplicationStatusApproved, &end)

	res, err := RunDailyReminders(context.Background(), e.clients, &DailyReminderRequest{ReminderDays: []int{7, 1}})
	require.NoError(t, err)
	assert.Equal(t, []uint{app.ID}, res.Reminded)
	assert.Empty(t, res.Overdue)

	sent := e.notifications(t, model.NotificationBLI04DueReminder)
	require.Len(t, sent, 1)
	assert.Equal(t, e.student.ID, sent[0].UserID)
	assert.Equal(t, model.NotificationStatusSent, sent[0].Status)
	assert.Len(t, e.transport.Messages(), 1)
}

func TestNoReminderOffOffset(t *testing.T) {
	e := newEnv(t)
	end := e.now.AddDate(0, 0, -5)
	e.application(t, model.ApplicationStatusApproved, &end)

	res, err := RunDailyReminders(context.Background(), e.clients, &DailyReminderRequest{ReminderDays: []int{7, 1}})
	require.NoError(t, err)
	assert.Empty(t, res.Reminded)
	assert.Empty(t, e.notifications(t, model.NotificationBLI04DueReminder))
}

func TestReminderSkippedWhenBLI04Exists(t *testing.T) {
	e := newEnv(t)
	end := e.now.AddDate(0, 0, -7)
	app := e.application(t, model.ApplicationStatusApproved, &end)
	require.NoError(t, e.db.Create(&model.Document{
		ApplicationID: app.ID,
		Type:          model.DocumentTypeBLI04,
		Status:        model.DocumentStatusDraft,
	}).Error)

	res, err := RunDailyReminders(context.Background(), e.clients, &DailyReminderRequest{ReminderDays: []int{7}})
	require.NoError(t, err)
	assert.Empty(t, res.Reminded)
}

func TestOverdueNotice(t *testing.T) {
	e := newEnv(t)
	end := e.now.AddDate(0, 0, -20)
	app := e.application(t, model.ApplicationStatusApproved, &end)

	res, err := RunDailyReminders(context.Background(), e.clients, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint{app.ID}, res.Overdue)

	sent := e.notifications(t, model.NotificationBLI04Overdue)
	require.Len(t, sent, 1)
	assert.Equal(t, "6", sent[0].PayloadStrings()["daysOverdue"])
}

func TestEscalationQueuedForCoordinator(t *testing.T) {
	e := newEnv(t)
	stale := e.application(t, model.ApplicationStatusSubmitted, nil)
	fresh := e.application(t, model.ApplicationStatusUnderReview, nil)
	require.NoError(t, e.db.Model(stale).UpdateColumn("updated_at", e.now.AddDate(0, 0, -8)).Error)
	require.NoError(t, e.db.Model(fresh).UpdateColumn("updated_at", e.now.AddDate(0, 0, -2)).Error)

	res, err := RunDailyReminders(context.Background(), e.clients, &DailyReminderRequest{EscalationDays: lo.ToPtr(7)})
	require.NoError(t, err)
	assert.Equal(t, []uint{stale.ID}, res.Escalated)

	queued := e.notifications(t, model.NotificationCoordinatorEscalation)
	require.Len(t, queued, 1)
	assert.Equal(t, e.coordinator.ID, queued[0].UserID)
	assert.Equal(t, model.NotificationStatusPending, queued[0].Status)
	assert.Empty(t, e.transport.Messages())

	// repeats on the next run while still unreviewed
	_, err = RunDailyReminders(context.Background(), e.clients, &DailyReminderRequest{EscalationDays: lo.ToPtr(7)})
	require.NoError(t, err)
	assert.Len(t, e.notifications(t, model.NotificationCoordinatorEscalation), 2)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, daysBetween(a, time.Date(2026, 3, 11, 0, 10, 0, 0, time.UTC)))
	assert.Equal(t, 0, daysBetween(a, a.Add(10*time.Minute)))
	assert.Equal(t, -3, daysBetween(a, a.AddDate(0, 0, -3)))
}

func TestGetReminderFunc(t *testing.T) {
	e := newEnv(t)

	_, err := GetReminderFunc("unknown", e.clients, nil)
	assert.Error(t, err)

	_, err = GetReminderFunc(DAILY_REMINDER_JOB, e.clients, datatypes.JSON(`{"reminderDays":`))
	assert.Error(t, err)

	f, err := GetReminderFunc(NOTIFICATION_BATCH_SEND_JOB, e.clients, nil)
	require.NoError(t, err)
	res, err := f(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.(notify.SendResult).Emails)
}

func TestWrapReminderFuncRecordsRuns(t *testing.T) {
	e := newEnv(t)

	WrapReminderFunc("ok-job", e.clients, func(context.Context) (any, error) {
		return map[string]int{"sent": 2}, nil
	})()
	WrapReminderFunc("bad-job", e.clients, func(context.Context) (any, error) {
		return nil, errors.New("smtp down")
	})()

	var records []*model.CronJobRecord
	require.NoError(t, e.db.Order("id").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, model.CronJobRecordStatusSuccess, records[0].Status)
	assert.JSONEq(t, `{"sent":2}`, string(records[0].JobData))
	assert.Equal(t, model.CronJobRecordStatusFailed, records[1].Status)
	assert.Equal(t, "smtp down", records[1].Message)
	assert.True(t, records[1].ExecuteTime.Equal(e.now))
}
