package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, user_id, method, amount_brl::text, plan_type, status,
	COALESCE(stripe_session_id, ''), COALESCE(tx_hash, ''), created_at, updated_at`

// PgPaymentRepository stores payments in PostgreSQL.
type PgPaymentRepository struct {
	db *pgxpool.Pool
}

// NewPgPaymentRepository creates a new PgPaymentRepository.
func NewPgPaymentRepository(db *pgxpool.Pool) *PgPaymentRepository {
	return &PgPaymentRepository{db: db}
}

// Create inserts a payment.
func (r *PgPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	if err := insertPayment(ctx, r.db, p); err != nil {
		if isUniqueViolation(err) && p.ProviderRef.TxHash != "" {
			return ErrDuplicateTxHash
		}
		return err
	}
	return nil
}

// FindByTxHash returns the payment for a transaction hash, or nil if none exists.
func (r *PgPaymentRepository) FindByTxHash(ctx context.Context, hash string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE tx_hash = $1`, hash)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return p, nil
}

// ListByUser returns a user's payments, newest first.
func (r *PgPaymentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListRecent returns the latest payments across all users.
func (r *PgPaymentRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *PgPaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CountByStatus returns the number of payments per status.
func (r *PgPaymentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM payments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan payment count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// MarkCheckoutFailed fails a pending checkout. It reports whether a row changed.
func (r *PgPaymentRepository) MarkCheckoutFailed(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE payments SET status = 'failed', updated_at = $1 WHERE stripe_session_id = $2 AND status = 'pending'",
		at, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to mark payment failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func insertPayment(ctx context.Context, db pgxExecer, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, method, amount_brl, plan_type, status,
		                      stripe_session_id, tx_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
	`
	_, err := db.Exec(ctx, query,
		p.ID, p.UserID, p.Method, p.AmountBRL.String(), p.PlanType, p.Status,
		nullIfEmpty(p.ProviderRef.StripeSessionID), nullIfEmpty(p.ProviderRef.TxHash),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p      domain.Payment
		amount string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Method, &amount, &p.PlanType, &p.Status,
		&p.ProviderRef.StripeSessionID, &p.ProviderRef.TxHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.AmountBRL, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	return &p, nil
}
