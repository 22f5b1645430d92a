package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/agroisync/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgActivator runs plan activations inside a single transaction.
type PgActivator struct {
	db *pgxpool.Pool
}

// NewPgActivator creates a new PgActivator.
func NewPgActivator(db *pgxpool.Pool) *PgActivator {
	return &PgActivator{db: db}
}

// ActivateWithPayment records a confirmed payment and grants its plan in one transaction.
func (a *PgActivator) ActivateWithPayment(ctx context.Context, act *domain.Activation) error {
	if act.Payment == nil {
		return errors.New("activation has no payment")
	}
	err := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		if err := insertPayment(ctx, tx, act.Payment); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateTxHash
			}
			return err
		}
		return upsertPlan(ctx, tx, act)
	})
	if errors.Is(err, ErrDuplicateTxHash) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to activate plan: %w", err)
	}
	return nil
}

// CompleteCheckout marks a pending checkout completed and grants its plan.
// It returns ErrPaymentNotPending when the session was handled before.
func (a *PgActivator) CompleteCheckout(ctx context.Context, sessionID string, act *domain.Activation) error {
	err := pgx.BeginFunc(ctx, a.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE payments SET status = 'succeeded', updated_at = $1 WHERE stripe_session_id = $2 AND status = 'pending'",
			act.At, sessionID)
		if err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrPaymentNotPending
		}
		return upsertPlan(ctx, tx, act)
	})
	if errors.Is(err, ErrPaymentNotPending) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to complete checkout: %w", err)
	}
	return nil
}
