package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/dao/query/querytest"
	"github.com/raids-lab/ptms/pkg/bizerr"
)

func TestSubmitBLI01LeavesDraftAndNotifies(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()

	assert.Equal(t, model.ApplicationStatusSubmitted, f.reload(app.ID).Status)
	doc := f.document(app.ID, model.DocumentTypeBLI01)
	assert.Equal(t, model.OnlineSubmission, doc.FileURL)
	assert.Equal(t, model.DocumentStatusPendingSignature, doc.Status)
	assert.Equal(t, 1, doc.Version)
	assert.True(t, f.form(app.ID, model.FormTypeBLI01).StudentSignature.IsSigned())

	received := f.notifier.of(model.NotificationSubmissionReceived)
	require.Len(t, received, 1)
	assert.Equal(t, f.student.ID, received[0].UserID)
	queued := f.notifier.of(model.NotificationNewSubmission)
	require.Len(t, queued, 1)
	assert.Equal(t, f.coordinator.ID, queued[0].UserID)
	assert.Equal(t, "siti", queued[0].Data["studentName"])
}

func TestSubmitBLI01SupersedesPreviousApplication(t *testing.T) {
	f := newFixture(t)
	first := f.submitBLI01()
	second := f.submitBLI01()

	var active int64
	require.NoError(t, f.db.Model(&model.Application{}).
		Where("user_id = ? AND session_id = ? AND status IN ?", f.student.ID, f.session.ID, model.NonTerminalApplicationStatuses()).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)

	old := f.reload(first.ID)
	assert.Equal(t, model.ApplicationStatusCancelled, old.Status)
	require.NotNil(t, old.SupersededByID)
	assert.Equal(t, second.ID, *old.SupersededByID)
	assert.NotNil(t, old.SupersededAt)
	// children of the superseded application are kept
	f.document(first.ID, model.DocumentTypeBLI01)
}

func TestSubmitBLI01DeduplicatesCompany(t *testing.T) {
	f := newFixture(t)
	f.submitBLI01()
	other := querytest.CreateUser(t, f.db, "budi", model.RoleStudent)
	req := f.submission("Budi")
	req.Organization.ContactPhone = "+62 22 1234"
	_, err := f.engine.SubmitBLI01(f.ctx, other.ID, req)
	require.NoError(t, err)

	var companies []model.Company
	require.NoError(t, f.db.Find(&companies).Error)
	require.Len(t, companies, 1)
	assert.Equal(t, "+62 22 1234", companies[0].ContactPhone)
}

func TestSubmitBLI01Validation(t *testing.T) {
	f := newFixture(t)
	req := f.submission("")
	_, err := f.engine.SubmitBLI01(f.ctx, f.student.ID, req)
	assert.True(t, bizerr.IsBadRequest(err))

	req = f.submission("Siti")
	req.Organization.Name = ""
	_, err = f.engine.SubmitBLI01(f.ctx, f.student.ID, req)
	assert.True(t, bizerr.IsBadRequest(err))

	require.NoError(t, f.db.Model(f.session).Update("active", false).Error)
	_, err = f.engine.SubmitBLI01(f.ctx, f.student.ID, f.submission("Siti"))
	assert.True(t, bizerr.IsNotFound(err))
}

func TestSubmitBLI03RequiresOwnershipAndUnlock(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()

	_, err := f.engine.SubmitBLI03(f.ctx, f.student.ID, app.ID, f.submission("Siti"))
	assert.True(t, bizerr.IsBadRequest(err), "BLI-03 must be locked before approval")

	stranger := querytest.CreateUser(t, f.db, "eve", model.RoleStudent)
	_, err = f.engine.SubmitBLI03(f.ctx, stranger.ID, app.ID, f.submission("Eve"))
	assert.True(t, bizerr.IsForbidden(err))

	_, err = f.engine.SubmitBLI03(f.ctx, f.student.ID, 9999, f.submission("Siti"))
	assert.True(t, bizerr.IsNotFound(err))

	_, err = f.engine.SubmitBLI04(f.ctx, f.student.ID, app.ID, f.submission("Siti"))
	assert.True(t, bizerr.IsBadRequest(err))
}

func TestResubmissionInvalidatesCoordinatorApproval(t *testing.T) {
	f := newFixture(t)
	app := f.submittedBLI03()
	_, err := f.engine.ApproveBLI03(f.ctx, f.coordinator.ID, app.ID, &Decision{Decision: model.ReviewDecisionApprove})
	require.NoError(t, err)
	require.NotNil(t, f.form(app.ID, model.FormTypeBLI03).CoordinatorSignature.SignedAt)

	// an outstanding change request is cleared by the resubmission
	require.NoError(t, f.db.Create(&model.Review{
		ApplicationID: app.ID, DocumentType: model.DocumentTypeBLI03,
		ReviewerID: f.coordinator.ID, Decision: model.ReviewDecisionRequestChanges,
	}).Error)

	_, err = f.engine.SubmitBLI03(f.ctx, f.student.ID, app.ID, f.submission("Siti again"))
	require.NoError(t, err)

	form := f.form(app.ID, model.FormTypeBLI03)
	assert.Nil(t, form.CoordinatorSignature.SignedAt)
	assert.Nil(t, form.CoordinatorSignature.Signature)
	assert.Equal(t, "Siti again", *form.StudentSignature.Signature)

	doc := f.document(app.ID, model.DocumentTypeBLI03)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, model.DocumentStatusPendingSignature, doc.Status)
	assert.Equal(t, model.OnlineSubmission, doc.FileURL)

	var outstanding int64
	require.NoError(t, f.db.Model(&model.Review{}).
		Where("application_id = ? AND decision = ?", app.ID, model.ReviewDecisionRequestChanges).
		Count(&outstanding).Error)
	assert.Zero(t, outstanding)

	status, err := f.engine.GetUnlockStatus(f.ctx, app.ID, f.student.ID)
	require.NoError(t, err)
	assert.False(t, status.SLI03)
	assert.False(t, status.DLI01)
}

func TestUploadDocumentAndApproveBLI02(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()

	_, err := f.engine.UploadDocument(f.ctx, f.student.ID, app.ID, model.DocumentTypeBLI02, &Upload{})
	assert.True(t, bizerr.IsBadRequest(err))
	_, err = f.engine.UploadDocument(f.ctx, f.student.ID, app.ID, model.DocumentType("BLI_99"),
		&Upload{Filename: "x.pdf", Data: []byte("%PDF")})
	assert.True(t, bizerr.IsBadRequest(err))

	doc, err := f.engine.UploadDocument(f.ctx, f.student.ID, app.ID, model.DocumentTypeBLI02,
		&Upload{Filename: "acceptance.PDF", ContentType: "application/pdf", Data: []byte("%PDF letter")})
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusPendingSignature, doc.Status)
	assert.Contains(t, doc.FileURL, ".pdf")
	stored, err := f.store.Download(f.ctx, doc.FileURL)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF letter"), stored)

	_, err = f.engine.ReviewDocument(f.ctx, f.coordinator.ID, doc.ID, &Decision{Decision: model.ReviewDecisionApprove})
	require.NoError(t, err)

	status, err := f.engine.GetUnlockStatus(f.ctx, app.ID, f.coordinator.ID)
	require.NoError(t, err)
	assert.True(t, status.BLI02)
	assert.True(t, status.BLI03)

	again, err := f.engine.UploadDocument(f.ctx, f.student.ID, app.ID, model.DocumentTypeBLI02,
		&Upload{Filename: "acceptance-v2.pdf", Data: []byte("%PDF letter 2")})
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version)
	assert.Equal(t, model.DocumentStatusPendingSignature, again.Status)

	// the replaced upload is removed from storage
	assert.NotEqual(t, doc.FileURL, again.FileURL)
	exists, err := f.store.Exists(f.ctx, doc.FileURL)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = f.store.Exists(f.ctx, again.FileURL)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUploadClearsAllChangeRequests(t *testing.T) {
	f := newFixture(t)
	app := f.submittedBLI03()
	_, err := f.engine.ApproveBLI03(f.ctx, f.coordinator.ID, app.ID, &Decision{
		Decision: model.ReviewDecisionRequestChanges,
		Comments: "Add the weekly plan",
	})
	require.NoError(t, err)

	countChangeRequests := func() int64 {
		var n int64
		require.NoError(t, f.db.Model(&model.Review{}).
			Where("application_id = ? AND decision = ?", app.ID, model.ReviewDecisionRequestChanges).
			Count(&n).Error)
		return n
	}
	require.EqualValues(t, 1, countChangeRequests())

	_, err = f.engine.UploadDocument(f.ctx, f.student.ID, app.ID, model.DocumentTypeBLI02,
		&Upload{Filename: "acceptance.pdf", Data: []byte("%PDF letter")})
	require.NoError(t, err)
	assert.Zero(t, countChangeRequests())
}

func TestReplacedPDFsAreDeleted(t *testing.T) {
	f := newFixture(t)
	app := f.submittedBLI03()
	_, err := f.engine.ApproveBLI03(f.ctx, f.coordinator.ID, app.ID, &Decision{Decision: model.ReviewDecisionApprove})
	require.NoError(t, err)
	approved := f.document(app.ID, model.DocumentTypeBLI01)
	require.True(t, approved.HasStoredFile())

	// approving again regenerates and drops the earlier render
	f.now = f.now.Add(time.Minute)
	_, err = f.engine.ReviewDocument(f.ctx, f.coordinator.ID, approved.ID, &Decision{Decision: model.ReviewDecisionApprove})
	require.NoError(t, err)
	regenerated := f.document(app.ID, model.DocumentTypeBLI01)
	require.True(t, regenerated.HasStoredFile())
	require.NotEqual(t, approved.FileURL, regenerated.FileURL)
	exists, err := f.store.Exists(f.ctx, approved.FileURL)
	require.NoError(t, err)
	assert.False(t, exists)

	// resubmitting BLI-03 drops its cached PDF
	bli03 := f.document(app.ID, model.DocumentTypeBLI03)
	require.True(t, bli03.HasStoredFile())
	_, err = f.engine.SubmitBLI03(f.ctx, f.student.ID, app.ID, f.submission("Siti"))
	require.NoError(t, err)
	assert.Equal(t, model.OnlineSubmission, f.document(app.ID, model.DocumentTypeBLI03).FileURL)
	exists, err = f.store.Exists(f.ctx, bli03.FileURL)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUploadSupervisorSignature(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()
	assert.True(t, bizerr.IsBadRequest(f.engine.UploadSupervisorSignature(f.ctx, f.student.ID, app.ID, " ")))
	require.NoError(t, f.engine.UploadSupervisorSignature(f.ctx, f.student.ID, app.ID, "iVBORw0KGgo="))

	stored := f.reload(app.ID)
	require.True(t, stored.SupervisorSignature.IsSigned())
	assert.Equal(t, model.SignatureTypeImage, *stored.SupervisorSignature.Type)
}
