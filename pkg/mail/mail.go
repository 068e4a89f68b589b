package mail

import (
	"fmt"
	"log/slog"
	"strings"

	gomail "gopkg.in/gomail.v2"
)

const (
	defaultFromAddress = "living-bookshelf@alizoh.com"
	defaultFromName    = "Living Bookshelf"
	defaultSMTPPort    = 587
)

// Dispatcher sends a single plain-text message. Send-and-forget: no retry and
// no delivery confirmation is tracked anywhere in the system.
type Dispatcher interface {
	Send(to, subject, body string) error
}

// Config holds SMTP relay settings. An empty Host selects the log-only
// dispatcher so the server stays usable without a relay.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	SSL      bool
}

// New returns an SMTP dispatcher, or a log-only one when no host is
// configured.
func New(cfg Config) Dispatcher {
	if strings.TrimSpace(cfg.Host) == "" {
		slog.Info("smtp not configured, emails will be logged instead of sent")
		return &logDispatcher{}
	}
	port := cfg.Port
	if port <= 0 {
		port = defaultSMTPPort
	}
	dialer := gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.SSL
	slog.Info("smtp dispatcher configured", "host", cfg.Host, "port", port)
	return &smtpDispatcher{dialer: dialer}
}

type smtpDispatcher struct {
	dialer *gomail.Dialer
}

// Send delivers one message through the relay. The recipient is the user's
// login identifier reused as an email address; there is no separate verified
// email field.
func (d *smtpDispatcher) Send(to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("no recipient defined")
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", defaultFromAddress, defaultFromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if err := d.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	slog.Info("email sent", "to", to, "subject", subject)
	return nil
}

// logDispatcher writes the message to the log instead of sending it.
type logDispatcher struct{}

func (d *logDispatcher) Send(to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("no recipient defined")
	}
	slog.Info("email (log-only)", "to", to, "subject", subject, "body", body)
	return nil
}
