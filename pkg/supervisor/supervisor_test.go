package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/dao/query/querytest"
	"github.com/raids-lab/ptms/pkg/bizerr"
	"github.com/raids-lab/ptms/pkg/mailer"
	"github.com/raids-lab/ptms/pkg/notify"
)

type env struct {
	ctx       context.Context
	db        *gorm.DB
	svc       *Service
	transport *mailer.RecordingTransport
	student   *model.User
	app       *model.Application
	now       time.Time
}

func newEnv(t *testing.T, payload map[string]any) *env {
	t.Helper()
	db := querytest.NewDB(t)
	e := &env{
		ctx:       context.Background(),
		db:        db,
		transport: &mailer.RecordingTransport{},
		student:   querytest.CreateUser(t, db, "siti", model.RoleStudent),
		now:       time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	}
	coordinator := querytest.CreateUser(t, db, "andi", model.RoleCoordinator)
	session := &model.Session{Name: "2026/1", Year: 2026, Semester: 1, CoordinatorID: coordinator.ID, Active: true}
	require.NoError(t, db.Create(session).Error)
	e.app = &model.Application{
		UserID:           e.student.ID,
		SessionID:        session.ID,
		Status:           model.ApplicationStatusApproved,
		OrganizationName: "PT Contoh Jaya",
	}
	require.NoError(t, db.Create(e.app).Error)
	if payload != nil {
		require.NoError(t, db.Create(&model.FormResponse{
			ApplicationID:    e.app.ID,
			FormType:         model.FormTypeBLI04,
			Payload:          payload,
			StudentSignature: model.NewSignatureSlot("Siti", model.SignatureTypeTyped, e.now),
		}).Error)
	}

	notifier := notify.NewNotifier(db, e.transport, notify.LocaleEN)
	e.svc = NewService(db, e.transport, notifier, Options{BaseURL: "https://ptms.example.edu/", Locale: notify.LocaleEN}).
		WithClock(func() time.Time { return e.now })
	return e
}

var completePayload = map[string]any{
	"supervisorName":  "Budi Santoso",
	"supervisorEmail": "budi@contoh.co.id",
	"summary":         "Built the billing service",
}

func TestGenerateLink(t *testing.T) {
	e := newEnv(t, completePayload)

	link, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)
	assert.Len(t, link.Token, 64)
	assert.Equal(t, "https://ptms.example.edu/supervisor/sign/"+link.Token, link.URL)
	assert.Equal(t, e.now.Add(14*24*time.Hour), link.ExpiresAt)

	msgs := e.transport.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "budi@contoh.co.id", msgs[0].To)
	assert.Contains(t, msgs[0].Body, link.URL)
}

func TestGenerateLinkLeavesOneLiveToken(t *testing.T) {
	e := newEnv(t, completePayload)

	first, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)
	second, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	var live int64
	require.NoError(t, e.db.Model(&model.SupervisorToken{}).
		Where("application_id = ? AND form_type = ? AND is_revoked = ?", e.app.ID, model.FormTypeBLI04, false).
		Count(&live).Error)
	assert.EqualValues(t, 1, live)

	_, err = e.svc.Verify(e.ctx, first.Token)
	require.Error(t, err)
	assert.Equal(t, "this signature link has been revoked", bizerr.Message(err))
}

func TestGenerateLinkPreconditions(t *testing.T) {
	e := newEnv(t, map[string]any{"supervisorName": "Budi"})
	_, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	assert.True(t, bizerr.IsBadRequest(err))

	other := querytest.CreateUser(t, e.db, "eve", model.RoleStudent)
	_, err = e.svc.GenerateLink(e.ctx, e.app.ID, other.ID)
	assert.True(t, bizerr.IsForbidden(err))

	_, err = e.svc.GenerateLink(e.ctx, 999, e.student.ID)
	assert.True(t, bizerr.IsNotFound(err))

	bare := newEnv(t, nil)
	_, err = bare.svc.GenerateLink(bare.ctx, bare.app.ID, bare.student.ID)
	assert.True(t, bizerr.IsBadRequest(err))
}

func TestVerify(t *testing.T) {
	e := newEnv(t, completePayload)
	link, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)

	view, err := e.svc.Verify(e.ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", view.SupervisorName)
	assert.Equal(t, "budi@contoh.co.id", view.SupervisorEmail)
	assert.Equal(t, "siti", view.StudentName)
	assert.Equal(t, "Built the billing service", view.Payload["summary"])

	_, err = e.svc.Verify(e.ctx, "deadbeef")
	assert.Equal(t, "invalid signature link", bizerr.Message(err))
}

func TestSubmitSignatureIsSingleUse(t *testing.T) {
	e := newEnv(t, completePayload)
	link, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)

	err = e.svc.SubmitSignature(e.ctx, link.Token, &Signature{})
	assert.True(t, bizerr.IsBadRequest(err), "empty signature")

	require.NoError(t, e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Value: "Budi Santoso", Type: model.SignatureTypeTyped}))

	var form model.FormResponse
	require.NoError(t, e.db.Where("application_id = ? AND form_type = ?", e.app.ID, model.FormTypeBLI04).First(&form).Error)
	require.True(t, form.SupervisorSignature.IsSigned())
	assert.Equal(t, "Budi Santoso", *form.SupervisorSignature.Signature)

	var doc model.Document
	require.NoError(t, e.db.Where("application_id = ? AND type = ?", e.app.ID, model.DocumentTypeBLI04).First(&doc).Error)
	assert.Equal(t, model.DocumentStatusSigned, doc.Status)
	require.NotNil(t, doc.SignedBy)
	assert.Equal(t, "Budi Santoso", *doc.SignedBy)

	err = e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Value: "again"})
	require.Error(t, err)
	assert.Equal(t, "this signature link has already been used", bizerr.Message(err))

	var signed []model.Notification
	require.NoError(t, e.db.Where("type = ?", model.NotificationSupervisorSigned).Find(&signed).Error)
	require.Len(t, signed, 1)
	assert.Equal(t, e.student.ID, signed[0].UserID)
}

func TestSubmitSignatureExpired(t *testing.T) {
	e := newEnv(t, completePayload)
	link, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)

	e.now = link.ExpiresAt.Add(time.Millisecond)
	err = e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Value: "Budi"})
	require.Error(t, err)
	assert.Contains(t, bizerr.Message(err), "expired")

	e.now = link.ExpiresAt
	_, err = e.svc.Verify(e.ctx, link.Token)
	assert.NoError(t, err, "a link is valid up to and including its expiry instant")
}

func TestSubmitSignatureFallsBackToUploadedImage(t *testing.T) {
	e := newEnv(t, completePayload)
	link, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)

	err = e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Type: model.SignatureTypeImage})
	assert.True(t, bizerr.IsBadRequest(err), "no uploaded image yet")

	require.NoError(t, e.db.Model(e.app).Select("supervisor_signature", "supervisor_type", "supervisor_signed_at").
		Updates(&model.Application{SupervisorSignature: model.NewSignatureSlot("iVBORw0KGgo=", model.SignatureTypeImage, e.now)}).Error)

	require.NoError(t, e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Type: model.SignatureTypeImage}))
	var form model.FormResponse
	require.NoError(t, e.db.Where("application_id = ?", e.app.ID).First(&form).Error)
	assert.Equal(t, "iVBORw0KGgo=", *form.SupervisorSignature.Signature)
	assert.Equal(t, model.SignatureTypeImage, *form.SupervisorSignature.Type)
}

func TestTokenChecksRunInOrder(t *testing.T) {
	e := newEnv(t, completePayload)
	link, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)
	require.NoError(t, e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Value: "Budi Santoso"}))

	// used wins over expired
	e.now = link.ExpiresAt.Add(24 * time.Hour)
	_, err = e.svc.Verify(e.ctx, link.Token)
	require.Error(t, err)
	assert.Equal(t, "this signature link has already been used", bizerr.Message(err))
	err = e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Value: "Budi Santoso"})
	assert.Equal(t, "this signature link has already been used", bizerr.Message(err))

	// revoked wins over used and expired
	_, err = e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)
	_, err = e.svc.Verify(e.ctx, link.Token)
	require.Error(t, err)
	assert.Equal(t, "this signature link has been revoked", bizerr.Message(err))
}

func TestGenerateLinkRejectsCancelledApplication(t *testing.T) {
	e := newEnv(t, completePayload)
	require.NoError(t, e.db.Model(e.app).Update("status", model.ApplicationStatusCancelled).Error)

	_, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	assert.True(t, bizerr.IsBadRequest(err))

	var tokens int64
	require.NoError(t, e.db.Model(&model.SupervisorToken{}).Where("application_id = ?", e.app.ID).Count(&tokens).Error)
	assert.Zero(t, tokens)
	assert.Empty(t, e.transport.Messages())
}

func TestSubmitSignatureRejectsUnknownType(t *testing.T) {
	e := newEnv(t, completePayload)
	link, err := e.svc.GenerateLink(e.ctx, e.app.ID, e.student.ID)
	require.NoError(t, err)

	err = e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Value: "Budi", Type: "bogus"})
	assert.True(t, bizerr.IsBadRequest(err))

	var token model.SupervisorToken
	require.NoError(t, e.db.Where("token = ?", link.Token).First(&token).Error)
	assert.Nil(t, token.UsedAt)

	require.NoError(t, e.svc.SubmitSignature(e.ctx, link.Token, &Signature{Value: "Budi", Type: model.SignatureTypeDrawn}))
}
