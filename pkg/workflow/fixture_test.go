package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/dao/query/querytest"
	"github.com/raids-lab/ptms/pkg/pdfgen"
	"github.com/raids-lab/ptms/pkg/storage"
)

type countingGenerator struct {
	docType model.DocumentType
	mu      sync.Mutex
	calls   int
}

func (g *countingGenerator) DocumentType() model.DocumentType { return g.docType }

func (g *countingGenerator) Validate(_ *pdfgen.Data) error { return nil }

func (g *countingGenerator) Generate(_ *pdfgen.Data) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return []byte("%PDF-1.3 " + string(g.docType)), nil
}

func (g *countingGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type sentNotification struct {
	UserID uint
	Type   model.NotificationType
	Data   map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, userID uint, t model.NotificationType, data map[string]any) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{UserID: userID, Type: t, Data: data})
	return &model.Notification{UserID: userID, Type: t}, nil
}

func (f *fakeNotifier) of(t model.NotificationType) []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotification
	for _, s := range f.sent {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	t           *testing.T
	ctx         context.Context
	db          *gorm.DB
	engine      *Engine
	store       storage.Interface
	generators  map[model.DocumentType]*countingGenerator
	notifier    *fakeNotifier
	student     *model.User
	coordinator *model.User
	session     *model.Session
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := querytest.NewDB(t)
	f := &fixture{
		t:           t,
		ctx:         context.Background(),
		db:          db,
		store:       storage.NewMemoryStorage(),
		generators:  map[model.DocumentType]*countingGenerator{},
		notifier:    &fakeNotifier{},
		student:     querytest.CreateUser(t, db, "siti", model.RoleStudent),
		coordinator: querytest.CreateUser(t, db, "andi", model.RoleCoordinator),
		now:         time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	f.session = &model.Session{
		Name:          "Practicum 2026/1",
		Year:          2026,
		Semester:      1,
		CoordinatorID: f.coordinator.ID,
		StartDate:     f.now.AddDate(0, -1, 0),
		EndDate:       f.now.AddDate(0, 5, 0),
		Active:        true,
	}
	require.NoError(t, db.Create(f.session).Error)

	gens := map[model.DocumentType]pdfgen.Generator{}
	for _, dt := range []model.DocumentType{
		model.DocumentTypeBLI01, model.DocumentTypeBLI03, model.DocumentTypeBLI04,
		model.DocumentTypeSLI03, model.DocumentTypeSLI04, model.DocumentTypeDLI01,
	} {
		g := &countingGenerator{docType: dt}
		f.generators[dt] = g
		gens[dt] = g
	}
	f.engine = NewEngine(db, f.store, gens, f.notifier).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) submission(signer string) *Submission {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	return &Submission{
		Organization: Organization{
			Name:         "PT Contoh Jaya",
			Address:      "Jl. Merdeka 1, Bandung",
			ContactName:  "Rudi",
			ContactEmail: "hr@contoh.co.id",
		},
		SupervisorName:  "Budi Santoso",
		SupervisorEmail: "budi@contoh.co.id",
		StartDate:       &start,
		EndDate:         &end,
		Payload: map[string]any{
			"studentNumber": "2201001",
			"program":       "Informatics",
			"position":      "Backend intern",
			"workPlan":      "Build internal tools",
		},
		Signature: Signature{Value: signer, Type: model.SignatureTypeTyped},
	}
}

func (f *fixture) submitBLI01() *model.Application {
	f.t.Helper()
	app, err := f.engine.SubmitBLI01(f.ctx, f.student.ID, f.submission("Siti"))
	require.NoError(f.t, err)
	return app
}

func (f *fixture) document(appID uint, dt model.DocumentType) *model.Document {
	f.t.Helper()
	var doc model.Document
	require.NoError(f.t, f.db.Where("application_id = ? AND type = ?", appID, dt).First(&doc).Error)
	return &doc
}

func (f *fixture) form(appID uint, ft model.FormType) *model.FormResponse {
	f.t.Helper()
	var form model.FormResponse
	require.NoError(f.t, f.db.Where("application_id = ? AND form_type = ?", appID, ft).First(&form).Error)
	return &form
}

func (f *fixture) reload(appID uint) *model.Application {
	f.t.Helper()
	var app model.Application
	require.NoError(f.t, f.db.First(&app, appID).Error)
	return &app
}

// approvedBLI01 returns an application whose BLI-01 has been approved.
func (f *fixture) approvedBLI01() *model.Application {
	f.t.Helper()
	app := f.submitBLI01()
	doc := f.document(app.ID, model.DocumentTypeBLI01)
	_, err := f.engine.ReviewDocument(f.ctx, f.coordinator.ID, doc.ID, &Decision{Decision: model.ReviewDecisionApprove})
	require.NoError(f.t, err)
	return f.reload(app.ID)
}

// submittedBLI03 returns an approved application with a signed BLI-03 waiting for review.
func (f *fixture) submittedBLI03() *model.Application {
	f.t.Helper()
	app := f.approvedBLI01()
	_, err := f.engine.SubmitBLI03(f.ctx, f.student.ID, app.ID, f.submission("Siti"))
	require.NoError(f.t, err)
	return f.reload(app.ID)
}
