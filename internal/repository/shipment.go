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

const shipmentColumns = `id, owner_id, route_from, route_to, estimated_days,
	freight_price, weight_kg, nf_number, notes, created_at, updated_at`

// PgShipmentRepository handles database operations for shipments.
type PgShipmentRepository struct {
	db *pgxpool.Pool
}

// NewPgShipmentRepository creates a new PgShipmentRepository.
func NewPgShipmentRepository(db *pgxpool.Pool) *PgShipmentRepository {
	return &PgShipmentRepository{db: db}
}

// Create inserts a new shipment into the database.
func (r *PgShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	query := `
		INSERT INTO shipments (id, owner_id, route_from, route_to, estimated_days,
		                       freight_price, weight_kg, nf_number, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.Exec(ctx, query,
		s.ID, s.OwnerID, s.Public.RouteFrom, s.Public.RouteTo, s.Public.EstimatedDays,
		s.Private.FreightPrice, s.Private.WeightKg, s.Private.InvoiceNumber, s.Private.Notes,
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create shipment: %w", err)
	}
	return nil
}

// FindByID returns a shipment by ID regardless of owner.
func (r *PgShipmentRepository) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find shipment: %w", err)
	}
	return s, nil
}

// List returns shipments ordered by creation date, optionally for one owner.
func (r *PgShipmentRepository) List(ctx context.Context, ownerID string) ([]*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments ORDER BY created_at DESC`
	args := []interface{}{}
	if ownerID != "" {
		query = `SELECT ` + shipmentColumns + ` FROM shipments WHERE owner_id = $1 ORDER BY created_at DESC`
		args = append(args, ownerID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}
	defer rows.Close()

	shipments := []*domain.Shipment{}
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		shipments = append(shipments, s)
	}
	return shipments, rows.Err()
}

// Update rewrites a shipment's fields if s.OwnerID owns it.
func (r *PgShipmentRepository) Update(ctx context.Context, s *domain.Shipment) (bool, error) {
	query := `
		UPDATE shipments SET route_from = $1, route_to = $2, estimated_days = $3,
			freight_price = $4, weight_kg = $5, nf_number = $6, notes = $7, updated_at = $8
		WHERE id = $9 AND owner_id = $10
	`
	tag, err := r.db.Exec(ctx, query,
		s.Public.RouteFrom, s.Public.RouteTo, s.Public.EstimatedDays,
		s.Private.FreightPrice, s.Private.WeightKg, s.Private.InvoiceNumber, s.Private.Notes,
		s.UpdatedAt, s.ID, s.OwnerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update shipment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a shipment (with ownership check).
func (r *PgShipmentRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM shipments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete shipment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountCreatedSince counts an owner's shipments created at or after since.
func (r *PgShipmentRepository) CountCreatedSince(ctx context.Context, ownerID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM shipments WHERE owner_id = $1 AND created_at >= $2`, ownerID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count shipments: %w", err)
	}
	return n, nil
}

// Count returns the total number of shipments.
func (r *PgShipmentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM shipments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count shipments: %w", err)
	}
	return n, nil
}

func scanShipment(row pgx.Row) (*domain.Shipment, error) {
	var s domain.Shipment
	err := row.Scan(&s.ID, &s.OwnerID, &s.Public.RouteFrom, &s.Public.RouteTo, &s.Public.EstimatedDays,
		&s.Private.FreightPrice, &s.Private.WeightKg, &s.Private.InvoiceNumber, &s.Private.Notes,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
