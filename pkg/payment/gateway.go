package payment

import (
	"context"
	"errors"
)

// Webhook event types the service reacts to.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutGateway defines the interface for card payment providers.
type CheckoutGateway interface {
	// CreateCheckout opens a hosted subscription checkout for a plan.
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies and decodes a webhook delivery.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// CheckoutRequest describes a monthly subscription checkout.
type CheckoutRequest struct {
	UserID      string
	Email       string
	PlanID      string
	ProductName string
	Description string
	UnitAmount  int64 // minor units
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider-side session the user is redirected to.
type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent is a verified, decoded webhook delivery.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
	Metadata  map[string]string
}

// Metadata keys attached to checkout sessions.
const (
	MetaSubject  = "cognitoSub"
	MetaPlanType = "planType"
)
