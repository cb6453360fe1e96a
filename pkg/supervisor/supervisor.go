// Package supervisor lets an external workplace supervisor sign BLI-04 through a
// single-use link instead of an account.
package supervisor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/bizerr"
	"github.com/raids-lab/ptms/pkg/mailer"
	"github.com/raids-lab/ptms/pkg/notify"
)

const tokenBytes = 32

// Notifier is the part of notify.Notifier used to tell the student about the signature.
type Notifier interface {
	Notify(ctx context.Context, userID uint, t model.NotificationType, data map[string]any) (*model.Notification, error)
}

type Options struct {
	// BaseURL is the public frontend address, e.g. https://ptms.example.edu.
	BaseURL string
	// LinkFormat is the path template with one %s for the token.
	LinkFormat string
	Locale     string
}

type Service struct {
	db        *gorm.DB
	transport mailer.Transport
	notifier  Notifier
	opts      Options
	now       func() time.Time
}

func NewService(db *gorm.DB, transport mailer.Transport, notifier Notifier, opts Options) *Service {
	if opts.LinkFormat == "" {
		opts.LinkFormat = "/supervisor/sign/%s"
	}
	if opts.Locale == "" {
		opts.Locale = notify.LocaleID
	}
	return &Service{db: db, transport: transport, notifier: notifier, opts: opts, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Link is a freshly issued signature link.
type Link struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Service) linkFor(token string) string {
	return strings.TrimRight(s.opts.BaseURL, "/") + fmt.Sprintf(s.opts.LinkFormat, token)
}

// GenerateLink issues a new link for the BLI-04 of the student's application and
// revokes every earlier link of that form.
func (s *Service) GenerateLink(ctx context.Context, appID, studentID uint) (*Link, error) {
	var app model.Application
	if err := s.db.WithContext(ctx).Preload("User").First(&app, appID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.NotFound("application %d not found", appID)
		}
		return nil, err
	}
	if app.UserID != studentID {
		return nil, bizerr.Forbidden("application %d does not belong to you", appID)
	}
	if app.Status.IsTerminal() {
		return nil, bizerr.BadRequest("application %d is %s", appID, app.Status)
	}

	var form model.FormResponse
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND form_type = ?", app.ID, model.FormTypeBLI04).First(&form).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, bizerr.BadRequest("BLI-04 must be submitted before requesting a supervisor signature")
	}
	if err != nil {
		return nil, err
	}
	name, email := form.PayloadString("supervisorName"), form.PayloadString("supervisorEmail")
	if name == "" || email == "" {
		return nil, bizerr.BadRequest("BLI-04 must include the supervisor name and email before requesting a signature")
	}

	value, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := &model.SupervisorToken{
		Token:           value,
		ApplicationID:   app.ID,
		FormType:        model.FormTypeBLI04,
		SupervisorEmail: email,
		SupervisorName:  name,
		ExpiresAt:       s.now().Add(model.SupervisorTokenTTL),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.SupervisorToken{}).
			Where("application_id = ? AND form_type = ? AND is_revoked = ?", app.ID, model.FormTypeBLI04, false).
			Update("is_revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	if err != nil {
		return nil, err
	}

	link := &Link{Token: value, URL: s.linkFor(value), ExpiresAt: token.ExpiresAt}
	s.mailSupervisor(ctx, &app, token, link)
	klog.Infof("issued supervisor link for application %d", app.ID)
	return link, nil
}

func (s *Service) mailSupervisor(ctx context.Context, app *model.Application, token *model.SupervisorToken, link *Link) {
	if s.transport == nil {
		return
	}
	subject, body := notify.Render(notify.TemplateSupervisorRequest, s.opts.Locale, map[string]string{
		"supervisorName": token.SupervisorName,
		"studentName":    app.User.DisplayName(),
		"link":           link.URL,
		"expiresAt":      link.ExpiresAt.Format("02 Jan 2006"),
	})
	if err := s.transport.Send(ctx, token.SupervisorEmail, subject, body); err != nil {
		klog.Warningf("mail supervisor link of application %d: %v", app.ID, err)
	}
}

// live loads the token and checks it is known, not revoked, unused and unexpired,
// in that order.
func (s *Service) live(tx *gorm.DB, value string) (*model.SupervisorToken, error) {
	var token model.SupervisorToken
	err := tx.Where("token = ?", value).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, bizerr.BadRequest("invalid signature link")
	}
	if err != nil {
		return nil, err
	}
	switch {
	case token.IsRevoked:
		return nil, bizerr.BadRequest("this signature link has been revoked")
	case token.UsedAt != nil:
		return nil, bizerr.BadRequest("this signature link has already been used")
	case s.now().After(token.ExpiresAt):
		return nil, bizerr.BadRequest("this signature link has expired")
	}
	return &token, nil
}

// View is what the supervisor sees before signing.
type View struct {
	ApplicationID    uint                 `json:"applicationId"`
	StudentName      string               `json:"studentName"`
	OrganizationName string               `json:"organizationName"`
	StartDate        *time.Time           `json:"startDate"`
	EndDate          *time.Time           `json:"endDate"`
	Payload          map[string]any       `json:"payload"`
	SupervisorName   string               `json:"supervisorName"`
	SupervisorEmail  string               `json:"supervisorEmail"`
	ExpiresAt        time.Time            `json:"expiresAt"`
	Signature        *model.SignatureSlot `json:"signature,omitempty"`
}

// Verify returns the BLI-04 slice the token grants access to.
func (s *Service) Verify(ctx context.Context, value string) (*View, error) {
	db := s.db.WithContext(ctx)
	token, err := s.live(db, value)
	if err != nil {
		return nil, err
	}
	var app model.Application
	if err := db.Preload("User").First(&app, token.ApplicationID).Error; err != nil {
		return nil, err
	}
	var form model.FormResponse
	if err := db.Where("application_id = ? AND form_type = ?", app.ID, token.FormType).First(&form).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerr.NotFound("BLI-04 of application %d not found", app.ID)
		}
		return nil, err
	}
	view := &View{
		ApplicationID:    app.ID,
		StudentName:      app.User.DisplayName(),
		OrganizationName: app.OrganizationName,
		StartDate:        app.StartDate,
		EndDate:          app.EndDate,
		Payload:          form.Payload,
		SupervisorName:   token.SupervisorName,
		SupervisorEmail:  token.SupervisorEmail,
		ExpiresAt:        token.ExpiresAt,
	}
	if app.SupervisorSignature.IsSigned() {
		view.Signature = &app.SupervisorSignature
	}
	return view, nil
}

// Signature is what the supervisor submits. An image signature without a value
// reuses the image the student uploaded for the application.
type Signature struct {
	Value string              `json:"value"`
	Type  model.SignatureType `json:"type"`
}

// SubmitSignature stores the supervisor signature on BLI-04, consumes the token and
// marks the BLI-04 document signed.
func (s *Service) SubmitSignature(ctx context.Context, value string, sig *Signature) error {
	db := s.db.WithContext(ctx)
	token, err := s.live(db, value)
	if err != nil {
		return err
	}
	if sig == nil {
		sig = &Signature{}
	}
	var app model.Application
	if err := db.First(&app, token.ApplicationID).Error; err != nil {
		return err
	}

	sigType, ok := sig.Type.Normalize()
	if !ok {
		return bizerr.BadRequest("unknown signature type %q", sig.Type)
	}
	payload := strings.TrimSpace(sig.Value)
	if payload == "" && sigType == model.SignatureTypeImage && app.SupervisorSignature.IsSigned() {
		payload = *app.SupervisorSignature.Signature
	}
	if payload == "" {
		return bizerr.BadRequest("signature is required")
	}

	now := s.now()
	slot := model.NewSignatureSlot(payload, sigType, now)
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.SupervisorToken{}).
			Where("id = ? AND used_at IS NULL AND is_revoked = ?", token.ID, false).
			Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return bizerr.BadRequest("this signature link has already been used")
		}

		var form model.FormResponse
		if err := tx.Where("application_id = ? AND form_type = ?", app.ID, token.FormType).First(&form).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerr.NotFound("BLI-04 of application %d not found", app.ID)
			}
			return err
		}
		form.SupervisorSignature = slot
		if err := tx.Save(&form).Error; err != nil {
			return err
		}

		var doc model.Document
		err := tx.Where("application_id = ? AND type = ?", app.ID, model.DocumentTypeBLI04).First(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			doc = model.Document{ApplicationID: app.ID, Type: model.DocumentTypeBLI04, Version: 1}
		} else if err != nil {
			return err
		}
		signedBy := token.SupervisorName
		doc.Status = model.DocumentStatusSigned
		doc.SignedBy = &signedBy
		doc.SignedAt = &now
		// drop the cached PDF so the next download carries the signature
		doc.FileURL = model.OnlineSubmission
		return tx.Save(&doc).Error
	})
	if err != nil {
		return err
	}

	klog.Infof("supervisor signed BLI-04 of application %d", app.ID)
	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, app.UserID, model.NotificationSupervisorSigned, map[string]any{
			"applicationId":  app.ID,
			"supervisorName": token.SupervisorName,
		}); err != nil {
			klog.Warningf("notify student of supervisor signature on application %d: %v", app.ID, err)
		}
	}
	return nil
}
