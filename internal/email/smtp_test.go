package email

import (
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

func TestSendVerificationEmail(t *testing.T) {
	t.Parallel()

	svc := NewEmailService(SMTPServerConfig{Host: "mail.test", Port: 2525, Sender: "noreply@matchday.test"})
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	svc.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		if a != nil {
			t.Fatal("auth set without a username")
		}
		return nil
	}

	link := VerificationLink("http://api.test/", "a b")
	if link != "http://api.test/api/v1/auth/verify?token=a+b" {
		t.Fatalf("VerificationLink() = %q", link)
	}
	if err := svc.SendVerificationEmail("fan@example.com", link); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "mail.test:2525" || len(gotTo) != 1 || gotTo[0] != "fan@example.com" {
		t.Fatalf("addr = %q, to = %v", gotAddr, gotTo)
	}
	if !strings.Contains(gotMsg, "Subject: Confirm your Matchday account\r\n") || !strings.Contains(gotMsg, link) {
		t.Fatalf("message = %q", gotMsg)
	}
}

func TestSendVerificationEmailWrapsError(t *testing.T) {
	t.Parallel()

	svc := NewEmailService(SMTPServerConfig{Host: "mail.test", Port: 25, Username: "u", Password: "p"})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("dial tcp: connection refused") }
	err := svc.SendVerificationEmail("fan@example.com", "link")
	if err == nil || !strings.HasPrefix(err.Error(), "smtp error:") {
		t.Fatalf("err = %v", err)
	}
}
