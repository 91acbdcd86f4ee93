// Package notify delivers the one-time away-from-desk reminder email.
// Delivery is best-effort: sends run on a small worker pool off the
// ingestion path and failures are only ever logged.
package notify

import (
	"fmt"

	"github.com/Ianszzkieyyy/sitsmart-app/internal/config"

	gomail "gopkg.in/gomail.v2"
)

const mailSubject = "Are you still there, SitSmart user?"

// Mailer sends reminder emails over SMTP.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewMailer builds a mailer from the SMTP config section.
func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// Send delivers one reminder to the given address. An empty display name
// falls back to a generic greeting.
func (m *Mailer) Send(toAddress, displayName string) error {
	name := displayName
	if name == "" {
		name = "there"
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", toAddress)
	msg.SetHeader("Subject", mailSubject)
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>Hi %s,</p><p>We've noticed you've been away from your desk for a while during an active session. Remember to end your session if you're done!</p>",
		name,
	))

	dialer := gomail.NewDialer(m.host, m.port, m.username, m.password)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", toAddress, err)
	}
	return nil
}
