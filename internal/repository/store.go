package repository

import (
	"context"
	"errors"
	"time"

	"github.com/agroisync/backend/internal/domain"
)

var (
	// ErrDuplicateTxHash is returned when a payment for the same on-chain
	// transaction already exists.
	ErrDuplicateTxHash = errors.New("payment for this transaction hash already exists")
	// ErrPaymentNotPending is returned when a checkout session has no pending
	// payment left to complete.
	ErrPaymentNotPending = errors.New("no pending payment for checkout session")
)

// UserRepository reads and maintains marketplace users.
type UserRepository interface {
	// FindBySubject returns nil, nil when the user does not exist.
	FindBySubject(ctx context.Context, subject string) (*domain.User, error)
	CountActivePlans(ctx context.Context) (int64, error)
	// ExpirePlans marks active plans whose expiry is at or before now as expired.
	ExpirePlans(ctx context.Context, now time.Time) (int64, error)
}

// PaymentRepository stores payment records.
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	// FindByTxHash returns nil, nil when no payment references the hash.
	FindByTxHash(ctx context.Context, hash string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.Payment, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// MarkCheckoutFailed moves a pending card payment to failed. It reports
	// whether a pending payment was found.
	MarkCheckoutFailed(ctx context.Context, sessionID string, at time.Time) (bool, error)
}

// ShipmentRepository stores freight offers.
type ShipmentRepository interface {
	Create(ctx context.Context, s *domain.Shipment) error
	// FindByID returns nil, nil when the shipment does not exist.
	FindByID(ctx context.Context, id string) (*domain.Shipment, error)
	// List returns shipments newest first; an empty ownerID lists everyone's.
	List(ctx context.Context, ownerID string) ([]*domain.Shipment, error)
	// Update replaces the public and private fields of a shipment owned by
	// s.OwnerID. It reports whether a row matched.
	Update(ctx context.Context, s *domain.Shipment) (bool, error)
	Delete(ctx context.Context, id, ownerID string) (bool, error)
	CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// PlanActivator performs the writes that activate a plan as one unit.
type PlanActivator interface {
	// ActivateWithPayment records a.Payment and sets the user's plan together.
	// It returns ErrDuplicateTxHash when the payment's hash is already recorded.
	ActivateWithPayment(ctx context.Context, a *domain.Activation) error
	// CompleteCheckout moves the pending payment of a checkout session to
	// succeeded and sets the user's plan together. It returns
	// ErrPaymentNotPending when there is nothing to complete.
	CompleteCheckout(ctx context.Context, sessionID string, a *domain.Activation) error
}

// Store bundles the repositories of one storage backend.
type Store interface {
	Users() UserRepository
	Payments() PaymentRepository
	Shipments() ShipmentRepository
	Activations() PlanActivator
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
