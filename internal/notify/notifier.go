// Package notify delivers operator and brand-owner email notifications over
// SMTP.
package notify

import (
	"fmt"
	"log"

	gomail "gopkg.in/gomail.v2"

	"github.com/ignite/deliverability/internal/config"
)

// Notifier delivers admin and owner notifications.
type Notifier interface {
	NotifyAdmins(subject, body string) error
	NotifyOwner(email, subject, body string) error
}

// MailNotifier sends notifications through an SMTP relay.
type MailNotifier struct {
	dialer *gomail.Dialer
	from   string
	admins []string
}

// NewMailNotifier creates an SMTP notifier from config.
func NewMailNotifier(cfg config.NotifyConfig) *MailNotifier {
	return &MailNotifier{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:   cfg.From,
		admins: cfg.AdminEmails,
	}
}

// NotifyAdmins sends one message to every configured platform administrator.
func (n *MailNotifier) NotifyAdmins(subject, body string) error {
	if len(n.admins) == 0 {
		log.Printf("[Notify] No admin recipients configured, dropping: %s", subject)
		return nil
	}
	return n.send(n.admins, subject, body)
}

// NotifyOwner sends one message to a brand owner.
func (n *MailNotifier) NotifyOwner(email, subject, body string) error {
	return n.send([]string{email}, subject, body)
}

func (n *MailNotifier) send(to []string, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending notification %q: %w", subject, err)
	}
	log.Printf("[Notify] Sent %q to %d recipient(s)", subject, len(to))
	return nil
}

// NopNotifier drops all notifications, for deployments without SMTP.
type NopNotifier struct{}

func (NopNotifier) NotifyAdmins(subject, _ string) error {
	log.Printf("[Notify] (nop) admin notification: %s", subject)
	return nil
}

func (NopNotifier) NotifyOwner(_, subject, _ string) error {
	log.Printf("[Notify] (nop) owner notification: %s", subject)
	return nil
}

// FromConfig returns a MailNotifier when SMTP is configured, otherwise a
// NopNotifier.
func FromConfig(cfg config.NotifyConfig) Notifier {
	if cfg.Enabled() {
		return NewMailNotifier(cfg)
	}
	return NopNotifier{}
}
