package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier delivers email messages through an SMTP relay.
type SMTPNotifier struct {
	client mailSender
	from   string
}

// SMTPSettings carries the relay connection parameters.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTPNotifier builds an email notifier. A connection is opened per Send.
func NewSMTPNotifier(s SMTPSettings) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}
	client, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPNotifier{client: client, from: s.From}, nil
}

// Send delivers a plain text email to message.Destination.
func (n *SMTPNotifier) Send(ctx context.Context, message Message) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(message.Destination); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(message.Subject)
	msg.SetBodyString(mail.TypeTextPlain, message.Body)
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
