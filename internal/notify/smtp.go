// Package notify delivers outcome notifications to operators.
package notify

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"intake/internal/intake/models"
	pkgerrors "intake/pkg/errors"
)

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPNotifier sends plain-text mail through an authenticated relay.
// smtp.SendMail negotiates STARTTLS when the server offers it.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

func (n *SMTPNotifier) Send(ctx context.Context, req models.NotificationRequest) error {
	if len(req.Recipients) == 0 && req.CC == "" {
		return pkgerrors.New(pkgerrors.CodeNotifier, "no recipients")
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeNotifier, "send cancelled")
	}

	envelope := append([]string{}, req.Recipients...)
	if req.CC != "" {
		envelope = append(envelope, req.CC)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	if err := n.send(addr, auth, n.cfg.From, envelope, n.message(req)); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeNotifier, "send mail")
	}
	return nil
}

func (n *SMTPNotifier) message(req models.NotificationRequest) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(req.Recipients, ", "))
	if req.CC != "" {
		fmt.Fprintf(&b, "Cc: %s\r\n", req.CC)
	}
	// Subjects carry Estonian diacritics, so Q-encode them.
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", req.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(req.Body)
	return []byte(b.String())
}
