package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raids-lab/ptms/pkg/config"
)

func TestNewFallsBackToLogTransport(t *testing.T) {
	conf := &config.Config{}
	assert.IsType(t, &LogTransport{}, New(conf))

	conf.SMTP.Host = "smtp.example.edu"
	conf.SMTP.User = "ptms@example.edu"
	tr := New(conf)
	require.IsType(t, &SMTPTransport{}, tr)
	assert.Equal(t, "ptms@example.edu", tr.(*SMTPTransport).from)

	conf.Notification.DisableDelivery = true
	assert.IsType(t, &LogTransport{}, New(conf))
}

func TestRecordingTransport(t *testing.T) {
	boom := errors.New("mailbox full")
	r := &RecordingTransport{Fail: map[string]error{"bad@example.edu": boom}}

	require.NoError(t, r.Send(context.Background(), "a@example.edu", "hello", "<p>hi</p>"))
	assert.ErrorIs(t, r.Send(context.Background(), "bad@example.edu", "hello", "<p>hi</p>"), boom)

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "a@example.edu", msgs[0].To)
}

func TestSMTPTransportHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewSMTPTransport("127.0.0.1", 0, "", "", "ptms@example.edu")
	assert.ErrorIs(t, tr.Send(ctx, "a@example.edu", "s", "b"), context.Canceled)
}
