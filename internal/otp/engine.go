// Package otp issues and checks the one-time passcodes used to verify a
// user's email address and phone number.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/farmlink/farmlink/internal/identity"
	"github.com/farmlink/farmlink/internal/notification"
)

// Channel names the attribute a code verifies.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

const codeDigits = 6

var (
	ErrNoChallenge      = errors.New("no pending otp")
	ErrInvalidCode      = errors.New("invalid otp")
	ErrExpiredChallenge = errors.New("otp expired")
	ErrNoDestination    = errors.New("no destination for channel")
	ErrUnknownChannel   = errors.New("unknown otp channel")
)

// Store is the slice of the user repository the engine needs.
type Store interface {
	GetUser(ctx context.Context, name string) (identity.User, error)
	SaveUser(ctx context.Context, user identity.User) error
}

// Engine generates, stores and validates passcodes. The code lives in the
// single OTP slot of the user record, shared by both channels.
type Engine struct {
	store           Store
	notifier        notification.Notifier
	logger          *slog.Logger
	ttl             time.Duration
	dispatchTimeout time.Duration
	now             func() time.Time
	newCode         func() (string, error)
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCodeGenerator overrides the random code source.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.newCode = gen }
}

// WithDispatchTimeout bounds each notification send.
func WithDispatchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.dispatchTimeout = d }
}

// NewEngine builds an engine whose codes stay valid for ttl.
func NewEngine(store Store, notifier notification.Notifier, ttl time.Duration, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		notifier:        notifier,
		logger:          logger,
		ttl:             ttl,
		dispatchTimeout: 10 * time.Second,
		now:             time.Now,
		newCode:         RandomCode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RandomCode returns a uniformly random six digit code.
func RandomCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// Generate stores a fresh code on the user, replacing any pending one, and
// sends it over ch. The code is saved before dispatch and stays in place when
// the send fails or the user has no address for ch; the returned error then
// wraps notification.ErrDispatchFailure.
func (e *Engine) Generate(ctx context.Context, name string, ch Channel) error {
	user, err := e.store.GetUser(ctx, name)
	if err != nil {
		return err
	}

	if ch != ChannelEmail && ch != ChannelPhone {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}

	code, err := e.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	user.OTP = code
	user.OTPExpiresAt = e.now().Add(e.ttl).UTC()
	if err := e.store.SaveUser(ctx, user); err != nil {
		return err
	}

	destination, err := destinationFor(user, ch)
	if err != nil {
		e.logger.Warn("otp stored without destination", "user", name, "channel", ch)
		return fmt.Errorf("%w: %w", notification.ErrDispatchFailure, err)
	}

	var msg notification.Message
	switch ch {
	case ChannelEmail:
		msg = notification.OTPEmail(destination, code, e.ttl)
	case ChannelPhone:
		msg = notification.OTPSMS(destination, user.Name, code, e.ttl)
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.dispatchTimeout)
	defer cancel()
	if err := e.notifier.Send(sendCtx, msg); err != nil {
		e.logger.Error("otp dispatch failed", "user", name, "channel", ch, "error", err)
		if errors.Is(err, notification.ErrDispatchFailure) {
			return err
		}
		return fmt.Errorf("%w: %v", notification.ErrDispatchFailure, err)
	}
	return nil
}

// Validate checks code against the user's pending challenge at now. On
// success the challenge is cleared from user; on every failure user is left
// untouched, so an expired code keeps failing until a new one is generated.
func Validate(user *identity.User, code string, now time.Time) error {
	if !user.HasPendingOTP() {
		return ErrNoChallenge
	}
	if user.OTP != code {
		return ErrInvalidCode
	}
	if !now.Before(user.OTPExpiresAt) {
		return ErrExpiredChallenge
	}
	user.OTP = ""
	user.OTPExpiresAt = time.Time{}
	return nil
}

// Verify validates code for the named user and, on success, marks the
// channel's attribute as verified. Flags are only ever set, never cleared.
func (e *Engine) Verify(ctx context.Context, name string, ch Channel, code string) error {
	if ch != ChannelEmail && ch != ChannelPhone {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	user, err := e.store.GetUser(ctx, name)
	if err != nil {
		return err
	}
	if err := Validate(&user, code, e.now()); err != nil {
		return err
	}
	switch ch {
	case ChannelEmail:
		user.EmailVerified = true
	case ChannelPhone:
		user.PhoneVerified = true
	}
	return e.store.SaveUser(ctx, user)
}

func destinationFor(user identity.User, ch Channel) (string, error) {
	switch ch {
	case ChannelEmail:
		if user.Email == "" {
			return "", fmt.Errorf("%w: %s", ErrNoDestination, ch)
		}
		return user.Email, nil
	case ChannelPhone:
		if user.Phone == "" {
			return "", fmt.Errorf("%w: %s", ErrNoDestination, ch)
		}
		return user.Phone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
}
