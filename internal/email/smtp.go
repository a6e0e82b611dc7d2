package email

import (
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
)

// SMTPServerConfig holds the settings for the outgoing mail server.
type SMTPServerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string // The "From" address
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService sends account emails.
type EmailService struct {
	config SMTPServerConfig
	auth   smtp.Auth
	send   sendFunc
}

// NewEmailService creates a service for the given server. Authentication is
// skipped when no username is configured.
func NewEmailService(config SMTPServerConfig) *EmailService {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &EmailService{config: config, auth: auth, send: smtp.SendMail}
}

// VerificationLink builds the link a new user follows to confirm their address.
func VerificationLink(apiBaseURL, token string) string {
	return fmt.Sprintf("%s/api/v1/auth/verify?token=%s", strings.TrimRight(apiBaseURL, "/"), url.QueryEscape(token))
}

// SendVerificationEmail sends the sign-up confirmation mail.
func (s *EmailService) SendVerificationEmail(recipientEmail, link string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	subject := "Confirm your Matchday account"
	body := fmt.Sprintf(
		"Hi there,\n\nThanks for signing up for Matchday. Confirm your email address by following this link:\n%s\n\nThe link expires in 24 hours. If you did not sign up, you can ignore this message.\n\nThe Matchday Team",
		link,
	)

	message := []byte(
		"To: " + recipientEmail + "\r\n" +
			"From: " + s.config.Sender + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"\r\n" +
			body + "\r\n")

	if err := s.send(addr, s.auth, s.config.Sender, []string{recipientEmail}, message); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	return nil
}
