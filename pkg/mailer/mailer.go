package mailer

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/gomail.v2"

	"github.com/raids-lab/ptms/pkg/config"
	"github.com/raids-lab/ptms/pkg/logutils"
)

// Transport delivers rendered HTML emails. Implementations must be safe for
// concurrent use.
type Transport interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// New picks the SMTP transport, or a logging transport when delivery is disabled
// or no SMTP host is configured.
func New(conf *config.Config) Transport {
	if conf.Notification.DisableDelivery || conf.SMTP.Host == "" {
		logutils.Component("mailer").Warn("email delivery disabled, emails will only be logged")
		return &LogTransport{}
	}
	return NewSMTPTransport(conf.SMTP.Host, conf.SMTP.Port, conf.SMTP.User, conf.SMTP.Password, conf.SMTP.From)
}

type SMTPTransport struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPTransport(host string, port int, user, password, from string) *SMTPTransport {
	if port == 0 {
		port = 587
	}
	if from == "" {
		from = user
	}
	return &SMTPTransport{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := t.dialer.DialAndSend(m); err != nil {
		logutils.Component("mailer").WithFields(logutils.Fields{"to": to, "subject": subject}).Error(err)
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

// LogTransport only logs. Used in development and when SMTP is not configured.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, to, subject, _ string) error {
	logutils.Component("mailer").WithFields(logutils.Fields{"to": to, "subject": subject}).Info("email delivery skipped")
	return nil
}

// Message is an email captured by RecordingTransport.
type Message struct {
	To      string
	Subject string
	Body    string
}

// RecordingTransport keeps every sent email in memory. Fail makes every send
// to the listed addresses return an error.
type RecordingTransport struct {
	mu       sync.Mutex
	messages []Message
	Fail     map[string]error
}

func (r *RecordingTransport) Send(_ context.Context, to, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.Fail[to]; ok {
		return err
	}
	r.messages = append(r.messages, Message{To: to, Subject: subject, Body: htmlBody})
	return nil
}

func (r *RecordingTransport) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
