package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/raids-lab/ptms/dao/model"
)

func TestComputeUnlockStatus(t *testing.T) {
	now := time.Now()
	coordinator := uint(7)

	cases := []struct {
		name  string
		app   *model.Application
		forms []model.FormResponse
		docs  []model.Document
		want  UnlockStatus
	}{
		{
			name: "new application",
			app:  &model.Application{Status: model.ApplicationStatusSubmitted},
			want: UnlockStatus{BLI01: true},
		},
		{
			name: "approved application unlocks BLI-03",
			app:  &model.Application{Status: model.ApplicationStatusApproved},
			docs: []model.Document{{Type: model.DocumentTypeBLI02, Status: model.DocumentStatusPendingSignature}},
			want: UnlockStatus{BLI01: true, BLI03: true},
		},
		{
			name: "signed BLI-02 unlocks BLI-02",
			app:  &model.Application{Status: model.ApplicationStatusUnderReview},
			docs: []model.Document{{Type: model.DocumentTypeBLI02, Status: model.DocumentStatusSigned}},
			want: UnlockStatus{BLI01: true, BLI02: true},
		},
		{
			name: "countersigned BLI-03 unlocks SLI-03 and DLI-01 together",
			app:  &model.Application{Status: model.ApplicationStatusApproved},
			forms: []model.FormResponse{{
				FormType:             model.FormTypeBLI03,
				CoordinatorSignature: model.SignatureSlot{SignedAt: &now},
			}},
			want: UnlockStatus{BLI01: true, BLI03: true, SLI03: true, DLI01: true},
		},
		{
			name:  "student signed BLI-03 alone unlocks nothing",
			app:   &model.Application{Status: model.ApplicationStatusApproved},
			forms: []model.FormResponse{{FormType: model.FormTypeBLI03, StudentSignature: model.NewSignatureSlot("s", model.SignatureTypeTyped, now)}},
			want:  UnlockStatus{BLI01: true, BLI03: true},
		},
		{
			name:  "verified BLI-04",
			app:   &model.Application{Status: model.ApplicationStatusApproved},
			forms: []model.FormResponse{{FormType: model.FormTypeBLI04, VerifiedBy: &coordinator}},
			want:  UnlockStatus{BLI01: true, BLI03: true, BLI04: true},
		},
		{
			name: "signed BLI-04 document",
			app:  &model.Application{Status: model.ApplicationStatusApproved},
			docs: []model.Document{{Type: model.DocumentTypeBLI04, Status: model.DocumentStatusSigned}},
			want: UnlockStatus{BLI01: true, BLI03: true, BLI04: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeUnlockStatus(tc.app, tc.forms, tc.docs))
		})
	}
}
