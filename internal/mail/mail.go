// Package mail delivers HTML messages with optional workbook attachments
// over authenticated SMTP.
package mail

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is one outgoing email.
type Message struct {
	To          []string
	CC          []string
	Subject     string
	HTML        string
	Attachments []string
}

// Config holds the SMTP settings. The Platform organization sends through
// Office 365, which requires STARTTLS and LOGIN auth on port 587.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender sends messages through one SMTP account.
type Sender struct {
	cfg Config
	log *zap.Logger
}

// NewSender creates a sender. Connections are opened per message.
func NewSender(cfg Config, log *zap.Logger) *Sender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Sender{cfg: cfg, log: log}
}

// Addresses splits a comma separated address list, dropping blanks.
func Addresses(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (s *Sender) build(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.cfg.From, err)
	}
	if len(m.To) == 0 {
		return nil, fmt.Errorf("message %q has no recipients", m.Subject)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient in %v: %w", m.To, err)
	}
	if len(m.CC) > 0 {
		if err := msg.Cc(m.CC...); err != nil {
			return nil, fmt.Errorf("invalid cc in %v: %w", m.CC, err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, m.HTML)
	for _, path := range m.Attachments {
		msg.AttachFile(path, gomail.WithFileName(filepath.Base(path)))
	}
	return msg, nil
}

// Send delivers m.
func (s *Sender) Send(ctx context.Context, m Message) error {
	msg, err := s.build(m)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthLogin),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %q: %w", m.Subject, err)
	}
	s.log.Debug("mail sent", zap.String("subject", m.Subject), zap.Strings("to", m.To), zap.Strings("cc", m.CC))
	return nil
}
