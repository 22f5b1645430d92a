package service

import (
	"context"
	"testing"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSweeper_Sweep(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	lapsed := now.Add(-time.Second)
	later := now.Add(time.Hour)
	store.PutUser(&domain.User{Subject: "a", Plan: &domain.UserPlan{Type: domain.PlanLoja, Status: domain.PlanStatusActive, ExpiresAt: &lapsed}})
	store.PutUser(&domain.User{Subject: "b", Plan: &domain.UserPlan{Type: domain.PlanLoja, Status: domain.PlanStatusActive, ExpiresAt: &later}})

	logger, hook := test.NewNullLogger()
	s := NewPlanSweeper(store.Users(), time.Minute, logger)
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(1), s.Sweep(context.Background()))
	assert.Equal(t, int64(0), s.Sweep(context.Background()), "idempotent")

	u, err := store.Users().FindBySubject(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusExpired, u.Plan.Status)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestPlanSweeper_StartStopsWithContext(t *testing.T) {
	store := repository.NewMemoryStore()
	past := time.Now().Add(-time.Hour)
	store.PutUser(&domain.User{Subject: "a", Plan: &domain.UserPlan{Type: domain.PlanLoja, Status: domain.PlanStatusActive, ExpiresAt: &past}})

	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	NewPlanSweeper(store.Users(), 10*time.Millisecond, logger).Start(ctx)

	assert.Eventually(t, func() bool {
		u, _ := store.Users().FindBySubject(context.Background(), "a")
		return u.Plan.Status == domain.PlanStatusExpired
	}, time.Second, 5*time.Millisecond)
	cancel()
}
