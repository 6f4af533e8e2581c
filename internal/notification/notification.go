package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Channel selects the delivery medium for a message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

const (
	// KindOTP marks a one-time passcode delivery.
	KindOTP = "otp"
	// KindLoanApproval marks a loan approval alert.
	KindLoanApproval = "loan_approval"
)

var (
	// ErrDispatchFailure wraps any error raised while handing a message to a channel.
	ErrDispatchFailure = errors.New("notification dispatch failed")
	// ErrUnsupportedChannel is returned when no sender is configured for a channel.
	ErrUnsupportedChannel = errors.New("unsupported notification channel")
)

// Message describes a notification payload.
type Message struct {
	Channel     Channel
	Kind        string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// Router dispatches each message to the sender registered for its channel.
type Router struct {
	email Notifier
	sms   Notifier
}

// NewRouter builds a router. A nil sender leaves that channel unsupported.
func NewRouter(email, sms Notifier) *Router {
	return &Router{email: email, sms: sms}
}

// Send forwards message to its channel's sender. Sender errors are wrapped
// with ErrDispatchFailure.
func (r *Router) Send(ctx context.Context, message Message) error {
	var target Notifier
	switch message.Channel {
	case ChannelEmail:
		target = r.email
	case ChannelSMS:
		target = r.sms
	}
	if target == nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedChannel, message.Channel)
	}
	if message.Destination == "" {
		return fmt.Errorf("%w: empty %s destination", ErrDispatchFailure, message.Channel)
	}
	if err := target.Send(ctx, message); err != nil {
		if errors.Is(err, ErrDispatchFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDispatchFailure, err)
	}
	return nil
}

// LoggerNotifier writes notifications to the logger instead of delivering them.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"channel", message.Channel,
		"kind", message.Kind,
		"destination", message.Destination,
		"subject", message.Subject,
		"body", message.Body,
	)
	return nil
}
