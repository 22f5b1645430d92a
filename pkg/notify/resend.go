package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// ResendEmail delivers e-mail through the Resend API.
type ResendEmail struct {
	client *resend.Client
	from   string
}

// NewResendEmail creates a Resend sender.
func NewResendEmail(apiKey, from string) (*ResendEmail, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend requires RESEND_API_KEY")
	}
	return &ResendEmail{client: resend.NewClient(apiKey), from: from}, nil
}

// Send implements Sender.
func (s *ResendEmail) Send(ctx context.Context, msg Message) (string, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}
	return sent.Id, nil
}
