package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDB creates a new PostgreSQL connection pool.
func NewDB(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// RunMigrations creates the marketplace schema if it does not exist.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			subject              TEXT PRIMARY KEY,
			email                TEXT NOT NULL DEFAULT '',
			plan_type            TEXT,
			plan_status          TEXT,
			plan_limit_ads       INTEGER,
			plan_limit_shipments INTEGER,
			plan_expires_at      TIMESTAMPTZ,
			created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_plan_status ON users(plan_status, plan_expires_at);

		CREATE TABLE IF NOT EXISTS payments (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			method            TEXT NOT NULL,
			amount_brl        NUMERIC(12,2) NOT NULL,
			plan_type         TEXT NOT NULL,
			status            TEXT NOT NULL,
			stripe_session_id TEXT UNIQUE,
			tx_hash           TEXT UNIQUE,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payments_user_id ON payments(user_id, created_at);

		CREATE TABLE IF NOT EXISTS shipments (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL,
			route_from     TEXT NOT NULL,
			route_to       TEXT NOT NULL,
			estimated_days INTEGER NOT NULL,
			freight_price  DOUBLE PRECISION NOT NULL,
			weight_kg      DOUBLE PRECISION NOT NULL,
			nf_number      TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_shipments_owner_created ON shipments(owner_id, created_at);
	`
	_, err := pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// PostgresStore is the Store backed by PostgreSQL.
type PostgresStore struct {
	db          *pgxpool.Pool
	users       *PgUserRepository
	payments    *PgPaymentRepository
	shipments   *PgShipmentRepository
	activations *PgActivator
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db:          db,
		users:       NewPgUserRepository(db),
		payments:    NewPgPaymentRepository(db),
		shipments:   NewPgShipmentRepository(db),
		activations: NewPgActivator(db),
	}
}

func (s *PostgresStore) Users() UserRepository         { return s.users }
func (s *PostgresStore) Payments() PaymentRepository   { return s.payments }
func (s *PostgresStore) Shipments() ShipmentRepository { return s.shipments }
func (s *PostgresStore) Activations() PlanActivator    { return s.activations }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close(_ context.Context) error {
	s.db.Close()
	return nil
}

// pgxExecer is satisfied by both the pool and a transaction.
type pgxExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
