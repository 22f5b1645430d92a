package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agroisync/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cryptoActivation(user, hash string, at time.Time) *domain.Activation {
	plan, _ := domain.LookupPlan(domain.PlanLoja)
	return &domain.Activation{
		UserID: user,
		Email:  user + "@example.com",
		Plan:   plan.UserPlan(domain.PlanExpiry(at)),
		At:     at,
		Payment: &domain.Payment{
			ID:          domain.NewPaymentID(),
			UserID:      user,
			Method:      domain.MethodCrypto,
			AmountBRL:   plan.Price,
			PlanType:    plan.ID,
			Status:      domain.PaymentSucceeded,
			ProviderRef: domain.ProviderRef{TxHash: hash},
			CreatedAt:   at,
			UpdatedAt:   at,
		},
	}
}

func TestMemoryStore_ActivateWithPayment(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Activations().ActivateWithPayment(ctx, cryptoActivation("u1", "0xabc", at)))

	u, err := s.Users().FindBySubject(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1@example.com", u.Email)
	assert.Equal(t, domain.PlanLoja, u.Plan.Type)
	assert.Equal(t, domain.PlanStatusActive, u.Plan.Status)
	assert.Equal(t, at.AddDate(0, 1, 0), *u.Plan.ExpiresAt)

	p, err := s.Payments().FindByTxHash(ctx, "0xabc")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, decimal.RequireFromString("25").Equal(p.AmountBRL))
}

func TestMemoryStore_DuplicateTxHashLeavesPlanUntouched(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Now()

	require.NoError(t, s.Activations().ActivateWithPayment(ctx, cryptoActivation("u1", "0xabc", at)))
	err := s.Activations().ActivateWithPayment(ctx, cryptoActivation("u2", "0xabc", at))
	assert.ErrorIs(t, err, ErrDuplicateTxHash)

	u, err := s.Users().FindBySubject(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestMemoryStore_ConcurrentActivationsSucceedOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Now()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Activations().ActivateWithPayment(ctx, cryptoActivation("u1", "0xsame", at)); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	payments, err := s.Payments().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestMemoryStore_CompleteCheckout(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	at := time.Now()
	plan, _ := domain.LookupPlan(domain.PlanFretesAvancado)

	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{
		ID:          "p1",
		UserID:      "u1",
		Method:      domain.MethodStripe,
		AmountBRL:   plan.Price,
		PlanType:    plan.ID,
		Status:      domain.PaymentPending,
		ProviderRef: domain.ProviderRef{StripeSessionID: "cs_1"},
		CreatedAt:   at,
		UpdatedAt:   at,
	}))

	act := &domain.Activation{UserID: "u1", Plan: plan.UserPlan(domain.PlanExpiry(at)), At: at}
	require.NoError(t, s.Activations().CompleteCheckout(ctx, "cs_1", act))
	assert.ErrorIs(t, s.Activations().CompleteCheckout(ctx, "cs_1", act), ErrPaymentNotPending)

	counts, err := s.Payments().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[domain.PaymentSucceeded])

	u, err := s.Users().FindBySubject(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, *u.Plan.LimitShipments)
}

func TestMemoryStore_MarkCheckoutFailed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{
		ID: "p1", UserID: "u1", Method: domain.MethodStripe, Status: domain.PaymentPending,
		ProviderRef: domain.ProviderRef{StripeSessionID: "cs_1"},
	}))

	ok, err := s.Payments().MarkCheckoutFailed(ctx, "cs_1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Payments().MarkCheckoutFailed(ctx, "cs_1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ExpirePlans(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	s.PutUser(&domain.User{Subject: "old", Plan: &domain.UserPlan{Type: domain.PlanLoja, Status: domain.PlanStatusActive, ExpiresAt: &past}})
	s.PutUser(&domain.User{Subject: "new", Plan: &domain.UserPlan{Type: domain.PlanLoja, Status: domain.PlanStatusActive, ExpiresAt: &future}})

	n, err := s.Users().ExpirePlans(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err := s.Users().CountActivePlans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	u, _ := s.Users().FindBySubject(ctx, "old")
	assert.Equal(t, domain.PlanStatusExpired, u.Plan.Status)
}

func TestMemoryStore_Shipments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, owner := range []string{"a", "a", "b"} {
		require.NoError(t, s.Shipments().Create(ctx, &domain.Shipment{
			ID:        domain.NewShipmentID(),
			OwnerID:   owner,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := s.Shipments().List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].OwnerID, "newest first")

	mine, err := s.Shipments().List(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	n, err := s.Shipments().CountCreatedSince(ctx, "a", base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	target := mine[0]
	target.OwnerID = "b"
	ok, err := s.Shipments().Update(ctx, target)
	require.NoError(t, err)
	assert.False(t, ok, "non-owner update must not match")

	ok, err = s.Shipments().Delete(ctx, target.ID, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	total, err := s.Shipments().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
