package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgUserRepository handles database operations for users.
type PgUserRepository struct {
	db *pgxpool.Pool
}

// NewPgUserRepository creates a new PgUserRepository.
func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

// FindBySubject returns a user by identity subject.
func (r *PgUserRepository) FindBySubject(ctx context.Context, subject string) (*domain.User, error) {
	query := `
		SELECT subject, email, plan_type, plan_status, plan_limit_ads, plan_limit_shipments,
		       plan_expires_at, created_at, updated_at
		FROM users WHERE subject = $1
	`
	row := r.db.QueryRow(ctx, query, subject)

	var (
		u          domain.User
		planType   *string
		planStatus *string
		plan       domain.UserPlan
	)
	err := row.Scan(&u.Subject, &u.Email, &planType, &planStatus,
		&plan.LimitAds, &plan.LimitShipments, &plan.ExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if planType != nil {
		plan.Type = *planType
		if planStatus != nil {
			plan.Status = *planStatus
		}
		u.Plan = &plan
	}
	return &u, nil
}

// CountActivePlans returns how many users hold an unexpired active plan.
func (r *PgUserRepository) CountActivePlans(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*) FROM users
		WHERE plan_status = 'active' AND (plan_expires_at IS NULL OR plan_expires_at > NOW())
	`
	var n int64
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active plans: %w", err)
	}
	return n, nil
}

// ExpirePlans flips lapsed active plans to expired.
func (r *PgUserRepository) ExpirePlans(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET plan_status = 'expired', updated_at = $1
		WHERE plan_status = 'active' AND plan_expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire plans: %w", err)
	}
	return tag.RowsAffected(), nil
}

// upsertPlan sets the user's plan, creating the user when missing.
func upsertPlan(ctx context.Context, tx pgx.Tx, a *domain.Activation) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (subject, email, plan_type, plan_status, plan_limit_ads,
		                   plan_limit_shipments, plan_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (subject) DO UPDATE SET
			email = CASE WHEN EXCLUDED.email = '' THEN users.email ELSE EXCLUDED.email END,
			plan_type = EXCLUDED.plan_type,
			plan_status = EXCLUDED.plan_status,
			plan_limit_ads = EXCLUDED.plan_limit_ads,
			plan_limit_shipments = EXCLUDED.plan_limit_shipments,
			plan_expires_at = EXCLUDED.plan_expires_at,
			updated_at = EXCLUDED.updated_at
	`, a.UserID, a.Email, a.Plan.Type, a.Plan.Status, a.Plan.LimitAds,
		a.Plan.LimitShipments, a.Plan.ExpiresAt, a.At)
	if err != nil {
		return fmt.Errorf("failed to update user plan: %w", err)
	}
	return nil
}
