package pdfgen

import (
	"time"

	"github.com/raids-lab/ptms/dao/model"
)

// Generator renders one form type. Generate must only be called with data that
// passed Validate.
type Generator interface {
	DocumentType() model.DocumentType
	Validate(data *Data) error
	Generate(data *Data) ([]byte, error)
}

// Signer is one signature block printed at the bottom of a form.
type Signer struct {
	Role string
	Name string
	Slot model.SignatureSlot
}

// Data is the projection of Application, FormResponse, Session and Company a
// generator renders from.
type Data struct {
	StudentName   string
	StudentNumber string
	StudentEmail  string

	SessionName string
	Year        int
	Semester    int

	OrganizationName    string
	OrganizationAddress string
	ContactName         string
	ContactEmail        string
	ContactPhone        string
	SupervisorName      string
	SupervisorEmail     string

	StartDate *time.Time
	EndDate   *time.Time

	// Payload holds the form specific answers keyed like the FormResponse payload.
	Payload map[string]string
	Signers []Signer

	// GeneratedAt is stamped into the document metadata so equal inputs render equal bytes.
	GeneratedAt time.Time
}
