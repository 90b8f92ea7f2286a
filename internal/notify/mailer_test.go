package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

func render(t *testing.T, msg *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendDisabledWithoutHost(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{From: "portal@example.com"}, zap.NewNop())
	called := false
	m.send = func(*gomail.Dialer, *gomail.Message) error {
		called = true
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "ops@example.com", "hi", "body"))
	assert.False(t, m.Enabled())
	assert.False(t, called)
}

func TestSendBuildsMessage(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p", From: "portal@example.com"}, zap.NewNop())
	var (
		dialer *gomail.Dialer
		raw    string
	)
	m.send = func(d *gomail.Dialer, msg *gomail.Message) error {
		dialer = d
		raw = render(t, msg)
		assert.Equal(t, []string{"portal@example.com"}, msg.GetHeader("From"))
		assert.Equal(t, []string{"ops@example.com"}, msg.GetHeader("To"))
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "ops@example.com", "New time entry", "alice logged time"))
	require.NotNil(t, dialer)
	assert.Equal(t, "smtp.example.com", dialer.Host)
	assert.Equal(t, 2525, dialer.Port)
	assert.Equal(t, "u", dialer.Username)
	assert.Contains(t, raw, "Subject: New time entry\r\n")
	assert.Contains(t, raw, "alice logged time")
}

func TestSendEncodesHostileSubject(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, From: "portal@example.com"}, zap.NewNop())
	var raw string
	m.send = func(_ *gomail.Dialer, msg *gomail.Message) error {
		raw = render(t, msg)
		return nil
	}

	subject := "New time entry created by José\r\nBcc: attacker@evil.test"
	require.NoError(t, m.Send(context.Background(), "ops@example.com", subject, "body"))

	assert.NotContains(t, raw, "\r\nBcc:")
	assert.NotContains(t, raw, "José")
	assert.Contains(t, raw, "Subject: =?UTF-8?q?")
}

func TestSendWrapsTransportError(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 25, Username: "u", Password: "p"}, zap.NewNop())
	m.send = func(*gomail.Dialer, *gomail.Message) error {
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), "ops@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
