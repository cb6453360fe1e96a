package workflow

import (
	"archive/zip"
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/dao/query/querytest"
	"github.com/raids-lab/ptms/pkg/bizerr"
)

func TestGeneratePDFIsCached(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()
	gen := f.generators[model.DocumentTypeBLI01]

	first, err := f.engine.GeneratePDF(f.ctx, app.ID, f.student.ID, model.DocumentTypeBLI01)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, gen.Calls())

	second, err := f.engine.GeneratePDF(f.ctx, app.ID, f.coordinator.ID, model.DocumentTypeBLI01)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, 1, gen.Calls())

	// still waiting for the coordinator
	doc := f.document(app.ID, model.DocumentTypeBLI01)
	assert.Equal(t, model.DocumentStatusPendingSignature, doc.Status)
	assert.True(t, doc.HasStoredFile())
}

func TestGeneratePDFRegeneratesWhenObjectIsGone(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()
	_, err := f.engine.GeneratePDF(f.ctx, app.ID, f.student.ID, model.DocumentTypeBLI01)
	require.NoError(t, err)

	doc := f.document(app.ID, model.DocumentTypeBLI01)
	require.NoError(t, f.store.Delete(f.ctx, doc.FileURL))

	got, err := f.engine.GeneratePDF(f.ctx, app.ID, f.student.ID, model.DocumentTypeBLI01)
	require.NoError(t, err)
	assert.False(t, got.Cached)
	assert.Equal(t, 2, f.generators[model.DocumentTypeBLI01].Calls())

	healed := f.document(app.ID, model.DocumentTypeBLI01)
	assert.NotEqual(t, doc.FileURL, healed.FileURL)
	exists, err := f.store.Exists(f.ctx, healed.FileURL)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGeneratePDFPreconditions(t *testing.T) {
	f := newFixture(t)
	app := f.approvedBLI01()

	_, err := f.engine.GeneratePDF(f.ctx, app.ID, f.student.ID, model.DocumentTypeSLI03)
	require.Error(t, err)
	assert.True(t, bizerr.IsBadRequest(err))
	assert.Contains(t, err.Error(), "BLI-03 must be fully approved before generating SLI-03")

	_, err = f.engine.GeneratePDF(f.ctx, app.ID, f.student.ID, model.DocumentTypeSLI04)
	assert.True(t, bizerr.IsBadRequest(err))

	_, err = f.engine.GeneratePDF(f.ctx, app.ID, f.student.ID, model.DocumentTypeBLI02)
	assert.True(t, bizerr.IsBadRequest(err))

	stranger := querytest.CreateUser(t, f.db, "eve", model.RoleStudent)
	_, err = f.engine.GeneratePDF(f.ctx, app.ID, stranger.ID, model.DocumentTypeBLI01)
	assert.True(t, bizerr.IsNotFound(err))
}

func TestGenerateSLI03AfterApproval(t *testing.T) {
	f := newFixture(t)
	app := f.submittedBLI03()
	_, err := f.engine.ApproveBLI03(f.ctx, f.coordinator.ID, app.ID, &Decision{Decision: model.ReviewDecisionApprove})
	require.NoError(t, err)

	got, err := f.engine.GeneratePDF(f.ctx, app.ID, f.student.ID, model.DocumentTypeSLI03)
	require.NoError(t, err)
	assert.Equal(t, "SLI-03_"+itoa(app.ID)+".pdf", got.Filename)
	// the DRAFT placeholder becomes the signed letter
	assert.Equal(t, model.DocumentStatusSigned, f.document(app.ID, model.DocumentTypeSLI03).Status)
}

func TestExportStudentDocuments(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()
	_, err := f.engine.UploadDocument(f.ctx, f.student.ID, app.ID, model.DocumentTypeBLI02,
		&Upload{Filename: "letter.jpg", Data: []byte("jpeg bytes")})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := f.engine.ExportStudentDocuments(f.ctx, &buf, f.student.ID, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	var names []string
	for _, file := range zr.File {
		names = append(names, file.Name)
	}
	assert.ElementsMatch(t, []string{
		"2026_Semester1/PT_Contoh_Jaya/BLI_01.pdf",
		"2026_Semester1/PT_Contoh_Jaya/BLI_02.jpg",
	}, names)

	// the coordinator of the session may export as well
	buf.Reset()
	_, err = f.engine.ExportStudentDocuments(f.ctx, &buf, f.student.ID, f.coordinator.ID)
	require.NoError(t, err)

	stranger := querytest.CreateUser(t, f.db, "eve", model.RoleCoordinator)
	_, err = f.engine.ExportStudentDocuments(f.ctx, &buf, f.student.ID, stranger.ID)
	assert.True(t, bizerr.IsNotFound(err))
}

func TestExportSkipsMissingObjects(t *testing.T) {
	f := newFixture(t)
	app := f.submitBLI01()
	doc, err := f.engine.UploadDocument(f.ctx, f.student.ID, app.ID, model.DocumentTypeBLI02,
		&Upload{Filename: "letter.pdf", Data: []byte("pdf")})
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(f.ctx, doc.FileURL))
	// BLI-01 is no longer exportable either
	require.NoError(t, f.db.Model(&model.Document{}).
		Where("application_id = ? AND type = ?", app.ID, model.DocumentTypeBLI01).
		Update("status", model.DocumentStatusDraft).Error)

	var buf bytes.Buffer
	_, err = f.engine.ExportStudentDocuments(f.ctx, &buf, f.student.ID, f.student.ID)
	assert.True(t, bizerr.IsNotFound(err))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "PT_Contoh_Jaya", sanitizeName("PT Contoh Jaya"))
	assert.Equal(t, "CV_Maju_Bersama_Tbk", sanitizeName("  CV Maju/Bersama (Tbk) "))
	assert.Equal(t, "Unknown_Company", sanitizeName("../"))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
