package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/env"
)

const defaultSender = "AffiliateFox <no-reply@localhost>"

// Sender returns the From address. MAIL_FROM wins over the older SMTP_SENDER.
func Sender() string {
	sender := env.GetEnv("MAIL_FROM", "")
	if sender == "" {
		sender = env.GetEnv("SMTP_SENDER", "")
	}
	if sender == "" {
		return defaultSender
	}
	return sender
}

// NewMessageID builds an RFC 5322 Message-ID on the sender's domain.
func NewMessageID(sender string) string {
	domain := "localhost"
	addr := sender
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		addr = strings.TrimSuffix(addr[i+1:], ">")
	}
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		domain = addr[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// SendMail sends an HTML email via SMTP and returns its Message-ID.
// Without SMTP_HOST the mail is only logged.
func SendMail(to string, subject string, body string) (string, error) {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := Sender()
	messageID := NewMessageID(sender)

	if host == "" {
		log.Infof("[Mail] SMTP_HOST not set, skipping %q to %s (%s)", subject, to, messageID)
		return messageID, nil
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMessage-ID: %s\r\n", sender, to, subject, messageID) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, envelopeAddress(sender), []string{to}, msg)
	if err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return "", err
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return messageID, nil
}

// envelopeAddress strips a display name: "Name <a@b>" -> "a@b".
func envelopeAddress(sender string) string {
	if i := strings.LastIndex(sender, "<"); i >= 0 {
		return strings.TrimSuffix(strings.TrimSpace(sender[i+1:]), ">")
	}
	return sender
}
