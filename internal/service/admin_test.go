package service

import (
	"context"
	"testing"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/repository"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_Stats(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	future := time.Now().Add(time.Hour)
	store.PutUser(&domain.User{Subject: "a", Plan: &domain.UserPlan{Type: domain.PlanLoja, Status: domain.PlanStatusActive, ExpiresAt: &future}})
	store.PutUser(&domain.User{Subject: "b"})
	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{ID: "p1", Status: domain.PaymentSucceeded, CreatedAt: time.Now()}))
	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{ID: "p2", Status: domain.PaymentPending, CreatedAt: time.Now().Add(time.Second)}))
	require.NoError(t, store.Shipments().Create(ctx, &domain.Shipment{ID: domain.NewShipmentID(), OwnerID: "a"}))

	logger, _ := test.NewNullLogger()
	svc := NewAdminService(store, logger)

	stats := svc.Stats(ctx)
	assert.Equal(t, int64(1), stats.ActivePlans)
	assert.Equal(t, int64(1), stats.Payments[domain.PaymentSucceeded])
	assert.Equal(t, int64(1), stats.Payments[domain.PaymentPending])
	assert.Equal(t, int64(0), stats.Payments[domain.PaymentFailed])
	assert.Equal(t, int64(1), stats.Shipments)

	recent, err := svc.RecentPayments(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "p2", recent[0].ID)
}
