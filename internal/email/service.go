// Package email delivers transactional mail. The credential core only
// depends on the EmailSender interface; delivery details stay here.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"sync"
	"credcore/internal/config"
)

// EmailSender defines the interface for sending emails
type EmailSender interface {
	SendPasswordResetEmail(to, token string) error
}

// Service implements the EmailSender interface over SMTP
type Service struct {
	config config.EmailConfig
	client *smtp.Client
	mu     sync.Mutex
}

// NewService creates a new email service
func NewService(cfg config.EmailConfig) *Service {
	return &Service{config: cfg}
}

var resetTemplate = template.Must(template.New("reset").Parse(`
<html>
<body>
<p>A password reset was requested for your account.</p>
<p><a href="{{.AppURL}}/reset-password?token={{.Token}}">Reset your password</a></p>
<p>The link expires in one hour. If you did not request this, you can ignore this email.</p>
</body>
</html>`))

// SendPasswordResetEmail sends the reset link for the given token
func (s *Service) SendPasswordResetEmail(to, token string) error {
	var body bytes.Buffer
	err := resetTemplate.Execute(&body, struct {
		AppURL string
		Token  string
	}{s.config.AppURL, token})
	if err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}

	return s.send(to, "Password reset", body.String())
}

func (s *Service) send(to, subject, htmlBody string) error {
	client, err := s.dialSMTP()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := client.Mail(s.config.FromAddress); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open message body: %w", err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.config.FromAddress, to, subject, htmlBody)
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	return w.Close()
}

// dialSMTP establishes or reuses an SMTP connection
func (s *Service) dialSMTP() (*smtp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		if err := s.client.Noop(); err == nil {
			return s.client, nil
		}
		s.client.Close()
		s.client = nil
	}

	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dial SMTP server: %w", err)
	}

	if s.config.SMTPUsername != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("authenticate with SMTP server: %w", err)
		}
	}

	s.client = client
	return client, nil
}
