package service

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/okhan/userauth/internal/config"
)

// SMTPNotifier delivers verification and reset mail over a plain SMTP
// transport. Delivery is best-effort; callers decide what a failure means
// for the already-committed account state.
type SMTPNotifier struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (n *SMTPNotifier) SendEmailVerification(_ context.Context, notification VerificationNotification) error {
	link := notification.VerificationURL
	if link == "" {
		link = notification.Token
	}
	body := fmt.Sprintf(
		"Hello,\r\n\r\nPlease verify your email address by following this link:\r\n\r\n%s\r\n\r\nThe link expires at %s.\r\n",
		link, notification.ExpiresAt.Format("2006-01-02 15:04 MST"),
	)
	return n.send(notification.Email, "Verify your email address", body)
}

func (n *SMTPNotifier) SendPasswordReset(_ context.Context, notification PasswordResetNotification) error {
	link := notification.ResetURL
	if link == "" {
		link = notification.Token
	}
	body := fmt.Sprintf(
		"Hello,\r\n\r\nA password reset was requested for your account. Follow this link to choose a new password:\r\n\r\n%s\r\n\r\nThe link expires at %s. If you did not request this, ignore this message.\r\n",
		link, notification.ExpiresAt.Format("2006-01-02 15:04 MST"),
	)
	return n.send(notification.Email, "Reset your password", body)
}

func (n *SMTPNotifier) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", n.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", n.host, n.port)

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}
	return smtp.SendMail(addr, auth, n.from, []string{to}, []byte(msg))
}
