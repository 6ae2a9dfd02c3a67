// Package mail implements the email delivery and template rendering ports.
package mail

import (
	"fmt"
	"log"
	"net"
	"net/smtp"
)

// SMTPSender delivers email over SMTP with plain authentication.
type SMTPSender struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

// Send delivers a single HTML email. Failures are returned to the caller;
// there is no retry here.
func (s *SMTPSender) Send(to, subject, html string) error {
	host, _, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return fmt.Errorf("invalid SMTP address (expected host:port): %w", err)
	}

	from := s.From
	if from == "" {
		from = s.Username
	}

	auth := smtp.PlainAuth("", s.Username, s.Password, host)
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		html + "\r\n")

	if err := smtp.SendMail(s.Addr, auth, from, []string{to}, msg); err != nil {
		return fmt.Errorf("send email via %s: %w", s.Addr, err)
	}
	return nil
}

// LogSender is a development implementation that logs emails instead of
// delivering them.
type LogSender struct{}

// Send logs the email to the standard logger.
func (LogSender) Send(to, subject, html string) error {
	log.Printf("=== EMAIL ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Printf("Body: %s", html)
	log.Printf("=============")
	return nil
}
