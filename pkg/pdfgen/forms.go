package pdfgen

import (
	"fmt"

	"github.com/raids-lab/ptms/dao/model"
)

type field struct {
	key      string
	label    string
	required bool
}

type formSpec struct {
	docType  model.DocumentType
	title    string
	subtitle string
	fields   []field
	// withPeriod prints the practicum period and requires both dates.
	withPeriod bool
	// withSupervisor prints the workplace supervisor block and requires the name.
	withSupervisor bool
}

var formSpecs = []formSpec{
	{
		docType:  model.DocumentTypeBLI01,
		title:    "BLI-01 Practicum Registration Form",
		subtitle: "Submitted by the student to register a practicum placement",
		fields: []field{
			{key: "studentNumber", label: "Student number", required: true},
			{key: "program", label: "Study program", required: true},
			{key: "phone", label: "Student phone"},
			{key: "plannedPosition", label: "Planned position"},
			{key: "motivation", label: "Motivation"},
		},
	},
	{
		docType:  model.DocumentTypeBLI03,
		title:    "BLI-03 Practicum Work Plan",
		subtitle: "Work plan agreed between the student and the host organization",
		fields: []field{
			{key: "position", label: "Position", required: true},
			{key: "division", label: "Division"},
			{key: "workPlan", label: "Work plan", required: true},
			{key: "workingHours", label: "Working hours"},
		},
		withPeriod:     true,
		withSupervisor: true,
	},
	{
		docType:  model.DocumentTypeSLI03,
		title:    "SLI-03 Practicum Introduction Letter",
		subtitle: "Issued by the coordinator after the work plan has been approved",
		fields: []field{
			{key: "position", label: "Position", required: true},
			{key: "division", label: "Division"},
		},
		withPeriod:     true,
		withSupervisor: true,
	},
	{
		docType:  model.DocumentTypeDLI01,
		title:    "DLI-01 Practicum Attendance Sheet",
		subtitle: "Daily attendance to be countersigned by the workplace supervisor",
		fields: []field{
			{key: "position", label: "Position"},
			{key: "workingHours", label: "Working hours"},
		},
		withPeriod:     true,
		withSupervisor: true,
	},
	{
		docType:  model.DocumentTypeBLI04,
		title:    "BLI-04 Practicum Completion Report",
		subtitle: "Completion report and evaluation by the workplace supervisor",
		fields: []field{
			{key: "supervisorName", label: "Supervisor", required: true},
			{key: "supervisorEmail", label: "Supervisor email", required: true},
			{key: "summary", label: "Summary of activities", required: true},
			{key: "evaluationScore", label: "Evaluation score"},
			{key: "evaluationNotes", label: "Evaluation notes"},
		},
		withPeriod: true,
	},
	{
		docType:  model.DocumentTypeSLI04,
		title:    "SLI-04 Practicum Completion Certificate",
		subtitle: "Confirms that the student completed the practicum",
		fields: []field{
			{key: "supervisorName", label: "Supervisor", required: true},
			{key: "evaluationScore", label: "Evaluation score"},
		},
		withPeriod: true,
	},
}

// NewRegistry returns one generator per PDF producing document type.
func NewRegistry() map[model.DocumentType]Generator {
	reg := make(map[model.DocumentType]Generator, len(formSpecs))
	for i := range formSpecs {
		reg[formSpecs[i].docType] = &formGenerator{spec: formSpecs[i]}
	}
	return reg
}

type formGenerator struct {
	spec formSpec
}

func (g *formGenerator) DocumentType() model.DocumentType { return g.spec.docType }

func (g *formGenerator) Validate(data *Data) error {
	if data == nil {
		return fmt.Errorf("%s: no data", g.spec.docType)
	}
	if data.StudentName == "" {
		return fmt.Errorf("%s: missing required field %q", g.spec.docType, "studentName")
	}
	if data.OrganizationName == "" {
		return fmt.Errorf("%s: missing required field %q", g.spec.docType, "organizationName")
	}
	if g.spec.withPeriod && (data.StartDate == nil || data.EndDate == nil) {
		return fmt.Errorf("%s: missing practicum period", g.spec.docType)
	}
	if g.spec.withSupervisor && data.SupervisorName == "" {
		return fmt.Errorf("%s: missing required field %q", g.spec.docType, "supervisorName")
	}
	for _, f := range g.spec.fields {
		if f.required && data.Payload[f.key] == "" {
			return fmt.Errorf("%s: missing required field %q", g.spec.docType, f.key)
		}
	}
	return nil
}

func (g *formGenerator) Generate(data *Data) ([]byte, error) {
	if err := g.Validate(data); err != nil {
		return nil, err
	}
	return render(&g.spec, data)
}
