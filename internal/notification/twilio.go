package notification

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioNotifier delivers SMS messages through the Twilio REST API.
type TwilioNotifier struct {
	api  messageCreator
	from string
}

// NewTwilioNotifier builds an SMS notifier for the given account.
func NewTwilioNotifier(accountSID, authToken, from string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{api: client.Api, from: from}
}

// Send posts message.Body to message.Destination. The Twilio client has no
// context support, so cancellation abandons the in-flight call.
func (n *TwilioNotifier) Send(ctx context.Context, message Message) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(message.Destination)
	params.SetFrom(n.from)
	params.SetBody(message.Body)

	done := make(chan error, 1)
	go func() {
		_, err := n.api.CreateMessage(params)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send sms: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send sms: %w", ctx.Err())
	}
}
