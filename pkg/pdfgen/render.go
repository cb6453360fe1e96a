package pdfgen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/raids-lab/ptms/dao/model"
)

const (
	dateLayout = "02 January 2006"
	labelWidth = 55.0
	lineHeight = 7.0
)

func render(spec *formSpec, data *Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetCreationDate(data.GeneratedAt)
	pdf.SetTitle(spec.title, true)
	pdf.SetAuthor("PTMS", true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 9, tr(spec.title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, tr(spec.subtitle), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section(pdf, tr, "Student")
	row(pdf, tr, "Name", data.StudentName)
	row(pdf, tr, "Student ID", data.StudentNumber)
	row(pdf, tr, "Email", data.StudentEmail)
	row(pdf, tr, "Session", fmt.Sprintf("%s (%d, semester %d)", data.SessionName, data.Year, data.Semester))

	section(pdf, tr, "Host organization")
	row(pdf, tr, "Organization", data.OrganizationName)
	row(pdf, tr, "Address", data.OrganizationAddress)
	row(pdf, tr, "Contact", joinNonEmpty(" / ", data.ContactName, data.ContactEmail, data.ContactPhone))
	if spec.withSupervisor {
		row(pdf, tr, "Workplace supervisor", joinNonEmpty(" / ", data.SupervisorName, data.SupervisorEmail))
	}
	if spec.withPeriod {
		row(pdf, tr, "Practicum period", fmt.Sprintf("%s - %s", formatDate(data.StartDate), formatDate(data.EndDate)))
	}

	section(pdf, tr, "Details")
	for _, f := range spec.fields {
		row(pdf, tr, f.label, data.Payload[f.key])
	}

	if len(data.Signers) > 0 {
		pdf.Ln(6)
		signatures(pdf, tr, data.Signers)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render %s: %w", spec.docType, err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", spec.docType, err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, lineHeight, tr(title), "", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func row(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		value = "-"
	}
	x, y := pdf.GetXY()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(labelWidth, lineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(x+labelWidth, y)
	pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
}

func signatures(pdf *fpdf.Fpdf, tr func(string) string, signers []Signer) {
	left, _, right, _ := pdf.GetMargins()
	pageWidth, _ := pdf.GetPageSize()
	width := (pageWidth - left - right) / float64(len(signers))
	top := pdf.GetY()

	for i, s := range signers {
		x := left + float64(i)*width
		pdf.SetXY(x, top)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(width, lineHeight, tr(s.Role), "", 2, "C", false, 0, "")

		if img, ok := signatureImage(s.Slot); ok {
			name := fmt.Sprintf("signature-%d", i)
			opts := fpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
			pdf.ImageOptions(name, x+width/4, top+lineHeight, width/2, 18, false, opts, 0, "")
		} else if s.Slot.IsSigned() {
			pdf.SetFont("Helvetica", "I", 14)
			pdf.SetXY(x, top+lineHeight+5)
			pdf.CellFormat(width, 10, tr(*s.Slot.Signature), "", 0, "C", false, 0, "")
		}

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetXY(x, top+lineHeight+22)
		pdf.CellFormat(width, 5, tr(s.Name), "T", 2, "C", false, 0, "")
		if s.Slot.SignedAt != nil {
			pdf.CellFormat(width, 5, s.Slot.SignedAt.Format(dateLayout), "", 0, "C", false, 0, "")
		}
	}
	pdf.SetXY(left, top+lineHeight+35)
}

// signatureImage decodes drawn or image signatures. Data URLs are accepted.
func signatureImage(slot model.SignatureSlot) ([]byte, bool) {
	if !slot.IsSigned() || slot.Type == nil || *slot.Type == model.SignatureTypeTyped {
		return nil, false
	}
	raw := *slot.Signature
	if i := strings.Index(raw, "base64,"); i >= 0 {
		raw = raw[i+len("base64,"):]
	}
	img, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || !bytes.HasPrefix(img, []byte("\x89PNG")) {
		return nil, false
	}
	return img, true
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
