package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods.
const (
	MethodStripe = "stripe"
	MethodCrypto = "crypto"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Payment records a plan purchase attempt.
type Payment struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Method      string          `json:"method"`
	AmountBRL   decimal.Decimal `json:"amountBRL"`
	PlanType    string          `json:"planType"`
	Status      string          `json:"status"`
	ProviderRef ProviderRef     `json:"providerRef"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProviderRef correlates a payment with the vendor that processed it.
type ProviderRef struct {
	StripeSessionID string `json:"stripeSessionId,omitempty"`
	TxHash          string `json:"txHash,omitempty"`
}

// NewPaymentID generates a new UUID for a payment.
func NewPaymentID() string {
	return uuid.New().String()
}

// NormalizeTxHash lower-cases and trims a transaction hash so the same
// transaction always maps to one stored key.
func NormalizeTxHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// CheckoutRequest is the body of POST /api/payments/stripe/checkout.
type CheckoutRequest struct {
	PlanType string `json:"planType"`
}

// CheckoutResponse is returned after creating a card checkout session.
type CheckoutResponse struct {
	SessionURL string `json:"sessionUrl"`
	SessionID  string `json:"sessionId"`
}

// CryptoSubmitRequest is the body of POST /api/payments/crypto/submit.
type CryptoSubmitRequest struct {
	TxHash   string `json:"txHash" validate:"required"`
	PlanType string `json:"planType" validate:"required"`
}

// ActivationResponse is returned when a plan is activated.
type ActivationResponse struct {
	Message string        `json:"message"`
	Plan    ActivatedPlan `json:"plan"`
}

// ActivatedPlan summarizes the plan state after activation.
type ActivatedPlan struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Activation is the unit of work that activates a user's plan together with
// recording its payment.
type Activation struct {
	UserID  string
	Email   string
	Plan    UserPlan
	Payment *Payment
	At      time.Time
}
