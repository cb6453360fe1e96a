package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/dao/query/querytest"
	"github.com/raids-lab/ptms/pkg/mailer"
)

func TestNotifyImmediateSendsAndMarksSent(t *testing.T) {
	db := querytest.NewDB(t)
	student := querytest.CreateUser(t, db, "siti", model.RoleStudent)
	transport := &mailer.RecordingTransport{}
	n := NewNotifier(db, transport, LocaleID)

	got, err := n.Notify(context.Background(), student.ID, model.NotificationSubmissionReceived,
		map[string]any{"formType": "BLI-01", "organization": "PT <Contoh>"})
	require.NoError(t, err)
	assert.False(t, got.EmailQueued)

	msgs := transport.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "siti@example.edu", msgs[0].To)
	assert.Equal(t, "We received your BLI-01 submission", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "PT &lt;Contoh&gt;")

	var stored model.Notification
	require.NoError(t, db.First(&stored, got.ID).Error)
	assert.Equal(t, model.NotificationStatusSent, stored.Status)
	assert.NotNil(t, stored.SentAt)
}

func TestNotifyRecordsTransportFailure(t *testing.T) {
	db := querytest.NewDB(t)
	student := querytest.CreateUser(t, db, "siti", model.RoleStudent)
	transport := &mailer.RecordingTransport{Fail: map[string]error{"siti@example.edu": errors.New("550 rejected")}}
	n := NewNotifier(db, transport, LocaleEN)

	got, err := n.Notify(context.Background(), student.ID, model.NotificationDocumentApproved, map[string]any{"formType": "BLI-03"})
	require.Error(t, err)

	var stored model.Notification
	require.NoError(t, db.First(&stored, got.ID).Error)
	assert.Equal(t, model.NotificationStatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "550")
}

func TestNotifyQueuesBatchedTypes(t *testing.T) {
	db := querytest.NewDB(t)
	coordinator := querytest.CreateUser(t, db, "andi", model.RoleCoordinator)
	transport := &mailer.RecordingTransport{}
	n := NewNotifier(db, transport, LocaleEN)

	got, err := n.Notify(context.Background(), coordinator.ID, model.NotificationNewSubmission, map[string]any{"studentName": "Siti"})
	require.NoError(t, err)
	assert.True(t, got.EmailQueued)
	assert.Equal(t, model.NotificationStatusPending, got.Status)
	assert.Empty(t, transport.Messages())
}

func TestSendQueuedDigestsSubmissions(t *testing.T) {
	db := querytest.NewDB(t)
	coordinator := querytest.CreateUser(t, db, "andi", model.RoleCoordinator)
	transport := &mailer.RecordingTransport{}
	n := NewNotifier(db, transport, LocaleEN)
	ctx := context.Background()

	for _, name := range []string{"Siti", "Budi", "Rina"} {
		_, err := n.Notify(ctx, coordinator.ID, model.NotificationNewSubmission,
			map[string]any{"studentName": name, "formType": "BLI-01", "organization": "PT Contoh"})
		require.NoError(t, err)
	}

	result, err := n.SendQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, SendResult{Emails: 1, Notifications: 3}, result)

	msgs := transport.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "3 new submissions awaiting review", msgs[0].Subject)
	for _, name := range []string{"Siti", "Budi", "Rina"} {
		assert.Contains(t, msgs[0].Body, name)
	}

	var rows []model.Notification
	require.NoError(t, db.Where("user_id = ?", coordinator.ID).Find(&rows).Error)
	require.Len(t, rows, 3)
	require.NotNil(t, rows[0].BatchID)
	for _, row := range rows {
		assert.Equal(t, model.NotificationStatusSent, row.Status)
		require.NotNil(t, row.BatchID)
		assert.Equal(t, *rows[0].BatchID, *row.BatchID)
	}

	// nothing left to flush
	result, err = n.SendQueued(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Emails)
	assert.Len(t, transport.Messages(), 1)
}

func TestSendQueuedSingleItemHasNoBatch(t *testing.T) {
	db := querytest.NewDB(t)
	coordinator := querytest.CreateUser(t, db, "andi", model.RoleCoordinator)
	transport := &mailer.RecordingTransport{}
	n := NewNotifier(db, transport, LocaleEN)
	ctx := context.Background()

	_, err := n.Notify(ctx, coordinator.ID, model.NotificationNewSubmission, map[string]any{"studentName": "Siti", "formType": "BLI-01"})
	require.NoError(t, err)
	_, err = n.Notify(ctx, coordinator.ID, model.NotificationCoordinatorEscalation, map[string]any{"studentName": "Budi", "daysWaiting": 9})
	require.NoError(t, err)

	result, err := n.SendQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Emails)

	msgs := transport.Messages()
	require.Len(t, msgs, 2)
	subjects := []string{msgs[0].Subject, msgs[1].Subject}
	assert.Contains(t, subjects, "New BLI-01 submission from Siti")
	assert.Contains(t, subjects, "Submission from Budi waiting 9 days")

	var rows []model.Notification
	require.NoError(t, db.Find(&rows).Error)
	for _, row := range rows {
		assert.Nil(t, row.BatchID)
		assert.Equal(t, model.NotificationStatusSent, row.Status)
	}
}

func TestSendQueuedMarksFailedDigest(t *testing.T) {
	db := querytest.NewDB(t)
	coordinator := querytest.CreateUser(t, db, "andi", model.RoleCoordinator)
	transport := &mailer.RecordingTransport{Fail: map[string]error{"andi@example.edu": errors.New("timeout")}}
	n := NewNotifier(db, transport, LocaleEN)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := n.Notify(ctx, coordinator.ID, model.NotificationNewSubmission, map[string]any{"studentName": "Siti"})
		require.NoError(t, err)
	}
	result, err := n.SendQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Failed)

	var rows []model.Notification
	require.NoError(t, db.Find(&rows).Error)
	for _, row := range rows {
		assert.Equal(t, model.NotificationStatusFailed, row.Status)
		assert.NotNil(t, row.BatchID)
	}
}

func TestInbox(t *testing.T) {
	db := querytest.NewDB(t)
	student := querytest.CreateUser(t, db, "siti", model.RoleStudent)
	other := querytest.CreateUser(t, db, "budi", model.RoleStudent)
	n := NewNotifier(db, &mailer.RecordingTransport{}, LocaleEN)
	ctx := context.Background()

	first, err := n.Notify(ctx, student.ID, model.NotificationDocumentApproved, map[string]any{"formType": "BLI-01"})
	require.NoError(t, err)
	_, err = n.Notify(ctx, student.ID, model.NotificationDocumentApproved, map[string]any{"formType": "BLI-03"})
	require.NoError(t, err)

	assert.Error(t, n.MarkRead(ctx, other.ID, first.ID))
	require.NoError(t, n.MarkRead(ctx, student.ID, first.ID))

	unread, err := n.List(ctx, student.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.NotEqual(t, first.ID, unread[0].ID)

	changed, err := n.MarkAllRead(ctx, student.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)
}
