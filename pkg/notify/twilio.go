package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSMS delivers text messages through Twilio's Messages API.
type TwilioSMS struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSMS creates a Twilio sender.
func NewTwilioSMS(accountSID, authToken, from string) (*TwilioSMS, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("twilio requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMS{client: client, from: from}, nil
}

// Send implements Sender.
func (s *TwilioSMS) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(s.from)
	params.SetBody(msg.Body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}
