package service

import (
	"context"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// recentPaymentsLimit caps GET /api/admin/payments.
const recentPaymentsLimit = 100

// AdminStats is the payload of GET /api/admin/stats.
type AdminStats struct {
	ActivePlans int64            `json:"activePlans"`
	Payments    map[string]int64 `json:"payments"`
	Shipments   int64            `json:"shipments"`
}

// AdminService backs the administrator dashboard.
type AdminService struct {
	store repository.Store
	log   logrus.FieldLogger
}

// NewAdminService creates a new AdminService.
func NewAdminService(store repository.Store, log logrus.FieldLogger) *AdminService {
	return &AdminService{store: store, log: log.WithField("component", "admin")}
}

// Stats returns marketplace counters. A counter that cannot be read is
// reported as zero.
func (s *AdminService) Stats(ctx context.Context) *AdminStats {
	stats := &AdminStats{Payments: map[string]int64{
		domain.PaymentPending:   0,
		domain.PaymentSucceeded: 0,
		domain.PaymentFailed:    0,
	}}

	if n, err := s.store.Users().CountActivePlans(ctx); err != nil {
		s.log.WithError(err).Warn("failed to count active plans")
	} else {
		stats.ActivePlans = n
	}

	if counts, err := s.store.Payments().CountByStatus(ctx); err != nil {
		s.log.WithError(err).Warn("failed to count payments")
	} else {
		for status, n := range counts {
			stats.Payments[status] = n
		}
	}

	if n, err := s.store.Shipments().Count(ctx); err != nil {
		s.log.WithError(err).Warn("failed to count shipments")
	} else {
		stats.Shipments = n
	}
	return stats
}

// RecentPayments lists the latest payments across all users.
func (s *AdminService) RecentPayments(ctx context.Context) ([]*domain.Payment, error) {
	payments, err := s.store.Payments().ListRecent(ctx, recentPaymentsLimit)
	if err != nil {
		return nil, domain.ErrInternal("Erro interno do servidor", err)
	}
	return payments, nil
}
