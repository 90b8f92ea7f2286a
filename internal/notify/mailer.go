// Package notify sends plain-text notification mail over SMTP.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the relay address and credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer delivers a message to one recipient.
type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, to, subject, body string) error
}

type sendFunc func(d *gomail.Dialer, msg *gomail.Message) error

func dialAndSend(d *gomail.Dialer, msg *gomail.Message) error {
	return d.DialAndSend(msg)
}

// SMTPMailer sends through gomail. With no host configured it is disabled
// and Send is a no-op.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
	send   sendFunc
}

func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger, send: dialAndSend}
}

func (m *SMTPMailer) Enabled() bool {
	return m.cfg.Host != ""
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if !m.Enabled() {
		m.logger.Debug("mail disabled, dropping message", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	if err := m.send(d, newMessage(m.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// newMessage builds a UTF-8 text/plain message. Header values are RFC 2047
// encoded by gomail, so line breaks in a subject cannot start a new header.
func newMessage(from, to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}
