// Package mail delivers the service's transactional email. Delivery is
// a fire-and-forget side effect: failures are logged, never returned to
// the operation that triggered the send.
package mail

import (
	"context"

	"gopkg.in/gomail.v2"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP sends mail through an SMTP relay using gomail.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP constructs an SMTP sender. Host may be empty in development;
// sends will then fail and be logged by the dispatcher.
func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

// Send delivers msg over SMTP.
func (s *SMTP) Send(_ context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	return s.dialer.DialAndSend(m)
}
