package workflow

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeName turns a company name into a single safe path segment.
func sanitizeName(name string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(name), "_"), "._")
	if s == "" {
		return "Unknown_Company"
	}
	return s
}

// ExportStudentDocuments writes a zip with every signed or pending document of
// the student's applications. The student and coordinators of the student's
// sessions may export; a coordinator only sees applications of their sessions.
// Documents whose stored file is missing are skipped.
func (e *Engine) ExportStudentDocuments(ctx context.Context, w io.Writer, studentID, callerID uint) (int, error) {
	var apps []*model.Application
	if err := e.db.WithContext(ctx).
		Preload("User").Preload("Session").Preload("Session.Coordinator").Preload("Company").
		Where("user_id = ? AND status <> ?", studentID, model.ApplicationStatusCancelled).
		Order("id").Find(&apps).Error; err != nil {
		return 0, err
	}
	if callerID != studentID {
		visible := apps[:0]
		for _, app := range apps {
			if app.Session.CoordinatorID == callerID {
				visible = append(visible, app)
			}
		}
		apps = visible
	}
	if len(apps) == 0 {
		return 0, bizerr.NotFound("no applications found for student %d", studentID)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := map[string]bool{}
	added := 0

	for _, app := range apps {
		var docs []model.Document
		if err := e.db.WithContext(ctx).
			Where("application_id = ? AND status IN ?", app.ID,
				[]model.DocumentStatus{model.DocumentStatusSigned, model.DocumentStatusPendingSignature}).
			Order("id").Find(&docs).Error; err != nil {
			return 0, err
		}

		company := app.Company.Name
		if company == "" {
			company = app.OrganizationName
		}
		dir := fmt.Sprintf("%d_Semester%d/%s", app.Session.Year, app.Session.Semester, sanitizeName(company))

		for i := range docs {
			doc := &docs[i]
			data, ext, ok := e.exportContent(ctx, app, doc)
			if !ok {
				continue
			}
			name := path.Join(dir, string(doc.Type)+ext)
			if seen[name] {
				name = path.Join(dir, fmt.Sprintf("%s_%d%s", doc.Type, app.ID, ext))
			}
			seen[name] = true

			f, err := zw.Create(name)
			if err != nil {
				return 0, err
			}
			if _, err := f.Write(data); err != nil {
				return 0, err
			}
			added++
		}
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	if added == 0 {
		return 0, bizerr.NotFound("no documents available for export")
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return added, nil
}

func (e *Engine) exportContent(ctx context.Context, app *model.Application, doc *model.Document) (data []byte, ext string, ok bool) {
	if doc.HasStoredFile() {
		data, ok = e.readCached(ctx, doc)
		if !ok {
			return nil, "", false
		}
		ext = path.Ext(doc.FileURL)
		if ext == "" {
			ext = ".pdf"
		}
		return data, ext, true
	}
	if _, printable := e.generators[doc.Type]; !printable {
		return nil, "", false
	}
	data, err := e.render(ctx, app, doc.Type)
	if err != nil {
		klog.Warningf("export: render %s of application %d: %v", doc.Type, app.ID, err)
		return nil, "", false
	}
	return data, ".pdf", true
}
