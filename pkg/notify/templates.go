package notify

import (
	"html"
	"sort"
	"strings"

	"github.com/raids-lab/ptms/dao/model"
)

const (
	LocaleEN = "en"
	LocaleID = "id"
)

// TemplateSupervisorRequest is rendered for the signature link email. It has no
// Notification row because the supervisor is not a user.
const TemplateSupervisorRequest model.NotificationType = "SUPERVISOR_SIGNATURE_REQUEST"

type template struct {
	Subject string
	Body    string
	// Item is the one-line summary used inside digests.
	Item string
}

var templates = map[model.NotificationType]map[string]template{
	model.NotificationSubmissionReceived: {
		LocaleEN: {
			Subject: "We received your {formType} submission",
			Body:    "<p>Hello {name},</p><p>Your {formType} for {organization} has been submitted and is waiting for coordinator review.</p>",
			Item:    "{formType} submitted for {organization}",
		},
		LocaleID: {
			Subject: "Pengajuan {formType} Anda telah diterima",
			Body:    "<p>Halo {name},</p><p>{formType} Anda untuk {organization} telah dikirim dan menunggu pemeriksaan koordinator.</p>",
			Item:    "{formType} dikirim untuk {organization}",
		},
	},
	model.NotificationNewSubmission: {
		LocaleEN: {
			Subject: "New {formType} submission from {studentName}",
			Body:    "<p>Hello {name},</p><p>{studentName} submitted {formType} for {organization} in {sessionName}.</p>",
			Item:    "{studentName}: {formType} ({organization})",
		},
		LocaleID: {
			Subject: "Pengajuan {formType} baru dari {studentName}",
			Body:    "<p>Halo {name},</p><p>{studentName} mengirim {formType} untuk {organization} pada {sessionName}.</p>",
			Item:    "{studentName}: {formType} ({organization})",
		},
	},
	model.NotificationDocumentApproved: {
		LocaleEN: {
			Subject: "{formType} approved",
			Body:    "<p>Hello {name},</p><p>Your {formType} has been approved by the coordinator.</p>",
			Item:    "{formType} approved",
		},
		LocaleID: {
			Subject: "{formType} disetujui",
			Body:    "<p>Halo {name},</p><p>{formType} Anda telah disetujui oleh koordinator.</p>",
			Item:    "{formType} disetujui",
		},
	},
	model.NotificationChangesRequested: {
		LocaleEN: {
			Subject: "Changes requested on {formType}",
			Body:    "<p>Hello {name},</p><p>The coordinator requested changes on your {formType}:</p><blockquote>{comments}</blockquote>",
			Item:    "Changes requested on {formType}",
		},
		LocaleID: {
			Subject: "Perbaikan diminta untuk {formType}",
			Body:    "<p>Halo {name},</p><p>Koordinator meminta perbaikan pada {formType} Anda:</p><blockquote>{comments}</blockquote>",
			Item:    "Perbaikan diminta untuk {formType}",
		},
	},
	model.NotificationDocumentRejected: {
		LocaleEN: {
			Subject: "{formType} rejected",
			Body:    "<p>Hello {name},</p><p>Your {formType} has been rejected.</p><blockquote>{comments}</blockquote>",
			Item:    "{formType} rejected",
		},
		LocaleID: {
			Subject: "{formType} ditolak",
			Body:    "<p>Halo {name},</p><p>{formType} Anda ditolak.</p><blockquote>{comments}</blockquote>",
			Item:    "{formType} ditolak",
		},
	},
	model.NotificationBLI04DueReminder: {
		LocaleEN: {
			Subject: "BLI-04 due in {daysLeft} day(s)",
			Body:    "<p>Hello {name},</p><p>Your BLI-04 completion report for {organization} is due on {dueDate}, {daysLeft} day(s) from now.</p>",
			Item:    "BLI-04 due {dueDate}",
		},
		LocaleID: {
			Subject: "BLI-04 jatuh tempo dalam {daysLeft} hari",
			Body:    "<p>Halo {name},</p><p>Laporan BLI-04 Anda untuk {organization} jatuh tempo pada {dueDate}, {daysLeft} hari lagi.</p>",
			Item:    "BLI-04 jatuh tempo {dueDate}",
		},
	},
	model.NotificationBLI04Overdue: {
		LocaleEN: {
			Subject: "BLI-04 is overdue",
			Body:    "<p>Hello {name},</p><p>Your BLI-04 completion report for {organization} was due on {dueDate} and is {daysOverdue} day(s) overdue.</p>",
			Item:    "BLI-04 overdue since {dueDate}",
		},
		LocaleID: {
			Subject: "BLI-04 sudah melewati batas waktu",
			Body:    "<p>Halo {name},</p><p>Laporan BLI-04 Anda untuk {organization} jatuh tempo pada {dueDate} dan terlambat {daysOverdue} hari.</p>",
			Item:    "BLI-04 terlambat sejak {dueDate}",
		},
	},
	model.NotificationCoordinatorEscalation: {
		LocaleEN: {
			Subject: "Submission from {studentName} waiting {daysWaiting} days",
			Body:    "<p>Hello {name},</p><p>The application of {studentName} ({organization}) has been {status} for {daysWaiting} days.</p>",
			Item:    "{studentName} ({organization}) waiting {daysWaiting} days",
		},
		LocaleID: {
			Subject: "Pengajuan {studentName} menunggu {daysWaiting} hari",
			Body:    "<p>Halo {name},</p><p>Pengajuan {studentName} ({organization}) berstatus {status} selama {daysWaiting} hari.</p>",
			Item:    "{studentName} ({organization}) menunggu {daysWaiting} hari",
		},
	},
	model.NotificationSupervisorSigned: {
		LocaleEN: {
			Subject: "{supervisorName} signed your BLI-04",
			Body:    "<p>Hello {name},</p><p>{supervisorName} has signed your BLI-04 completion report.</p>",
			Item:    "BLI-04 signed by {supervisorName}",
		},
		LocaleID: {
			Subject: "{supervisorName} telah menandatangani BLI-04 Anda",
			Body:    "<p>Halo {name},</p><p>{supervisorName} telah menandatangani laporan BLI-04 Anda.</p>",
			Item:    "BLI-04 ditandatangani oleh {supervisorName}",
		},
	},
	TemplateSupervisorRequest: {
		LocaleEN: {
			Subject: "Signature request for {studentName}'s practicum report",
			Body: "<p>Dear {supervisorName},</p><p>{studentName} asks you to review and sign the BLI-04 practicum completion report.</p>" +
				"<p><a href=\"{link}\">Open the signing page</a>. The link expires on {expiresAt}.</p>",
		},
		LocaleID: {
			Subject: "Permintaan tanda tangan laporan praktik {studentName}",
			Body: "<p>Yth. {supervisorName},</p><p>{studentName} meminta Anda memeriksa dan menandatangani laporan penyelesaian praktik BLI-04.</p>" +
				"<p><a href=\"{link}\">Buka halaman tanda tangan</a>. Tautan berlaku hingga {expiresAt}.</p>",
		},
	},
}

// digest group keys
const (
	groupSubmissions = "SUBMISSIONS"
	groupEscalations = "ESCALATIONS"
)

func groupKey(t model.NotificationType) string {
	switch t {
	case model.NotificationNewSubmission:
		return groupSubmissions
	case model.NotificationCoordinatorEscalation:
		return groupEscalations
	default:
		return string(t)
	}
}

var digestTemplates = map[string]map[string]template{
	groupSubmissions: {
		LocaleEN: {Subject: "{count} new submissions awaiting review", Body: "<p>Hello {name},</p><p>The following submissions are waiting for your review:</p>"},
		LocaleID: {Subject: "{count} pengajuan baru menunggu pemeriksaan", Body: "<p>Halo {name},</p><p>Pengajuan berikut menunggu pemeriksaan Anda:</p>"},
	},
	groupEscalations: {
		LocaleEN: {Subject: "{count} submissions have been waiting too long", Body: "<p>Hello {name},</p><p>The following applications have not been reviewed for a while:</p>"},
		LocaleID: {Subject: "{count} pengajuan terlalu lama menunggu", Body: "<p>Halo {name},</p><p>Pengajuan berikut belum diperiksa dalam waktu lama:</p>"},
	},
	"": {
		LocaleEN: {Subject: "You have {count} notifications", Body: "<p>Hello {name},</p><p>Here is a summary of recent updates:</p>"},
		LocaleID: {Subject: "Anda memiliki {count} notifikasi", Body: "<p>Halo {name},</p><p>Berikut ringkasan pembaruan terbaru:</p>"},
	},
}

func lookup[K comparable](set map[K]map[string]template, key K, locale string) template {
	byLocale, ok := set[key]
	if !ok {
		var zero K
		byLocale = set[zero]
	}
	if t, ok := byLocale[locale]; ok {
		return t
	}
	return byLocale[LocaleEN]
}

// Render produces the subject and HTML body of a single notification email.
// Unknown {placeholders} are left untouched.
func Render(t model.NotificationType, locale string, vars map[string]string) (subject, body string) {
	tmpl := lookup(templates, t, locale)
	if tmpl.Subject == "" {
		tmpl = template{Subject: string(t), Body: "<p>" + string(t) + "</p>"}
	}
	return substitute(tmpl.Subject, vars, false), substitute(tmpl.Body, vars, true)
}

// RenderItem renders the digest line of one notification, already HTML escaped.
func RenderItem(t model.NotificationType, locale string, vars map[string]string) string {
	tmpl := lookup(templates, t, locale)
	if tmpl.Item == "" {
		return html.EscapeString(string(t))
	}
	return substitute(tmpl.Item, vars, true)
}

// RenderDigest builds one email out of several queued notifications that share a group.
func RenderDigest(group, locale string, vars map[string]string, items []string) (subject, body string) {
	tmpl := lookup(digestTemplates, group, locale)
	var b strings.Builder
	b.WriteString(substitute(tmpl.Body, vars, true))
	b.WriteString("<ul>")
	for _, item := range items {
		b.WriteString("<li>")
		b.WriteString(item)
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return substitute(tmpl.Subject, vars, false), b.String()
}

func substitute(text string, vars map[string]string, escape bool) string {
	if len(vars) == 0 {
		return text
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		v := vars[k]
		if escape {
			v = html.EscapeString(v)
		}
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
