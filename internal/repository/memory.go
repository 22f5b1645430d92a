package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/agroisync/backend/internal/domain"
)

// MemoryStore keeps everything in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	payments  map[string]*domain.Payment
	shipments map[string]*domain.Shipment
	now       func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     map[string]*domain.User{},
		payments:  map[string]*domain.Payment{},
		shipments: map[string]*domain.Shipment{},
		now:       time.Now,
	}
}

// PutUser inserts or replaces a user.
func (s *MemoryStore) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Subject] = cloneUser(u)
}

func (s *MemoryStore) Users() UserRepository         { return memUsers{s} }
func (s *MemoryStore) Payments() PaymentRepository   { return memPayments{s} }
func (s *MemoryStore) Shipments() ShipmentRepository { return memShipments{s} }
func (s *MemoryStore) Activations() PlanActivator    { return memActivator{s} }

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

type memUsers struct{ s *MemoryStore }

func (r memUsers) FindBySubject(_ context.Context, subject string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[subject]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (r memUsers) CountActivePlans(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	now := r.s.now()
	var n int64
	for _, u := range r.s.users {
		if u.Plan.ActiveAt(now) {
			n++
		}
	}
	return n, nil
}

func (r memUsers) ExpirePlans(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		p := u.Plan
		if p != nil && p.Status == domain.PlanStatusActive && p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
			p.Status = domain.PlanStatusExpired
			u.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

type memPayments struct{ s *MemoryStore }

func (r memPayments) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertPaymentLocked(p)
}

func (r memPayments) FindByTxHash(_ context.Context, hash string) (*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.payments {
		if p.ProviderRef.TxHash == hash {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memPayments) ListByUser(_ context.Context, userID string) ([]*domain.Payment, error) {
	return r.list(func(p *domain.Payment) bool { return p.UserID == userID }, 0), nil
}

func (r memPayments) ListRecent(_ context.Context, limit int) ([]*domain.Payment, error) {
	return r.list(func(*domain.Payment) bool { return true }, limit), nil
}

func (r memPayments) list(keep func(*domain.Payment) bool, limit int) []*domain.Payment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.Payment{}
	for _, p := range r.s.payments {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r memPayments) CountByStatus(context.Context) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[string]int64{}
	for _, p := range r.s.payments {
		counts[p.Status]++
	}
	return counts, nil
}

func (r memPayments) MarkCheckoutFailed(_ context.Context, sessionID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.pendingCheckoutLocked(sessionID)
	if p == nil {
		return false, nil
	}
	p.Status = domain.PaymentFailed
	p.UpdatedAt = at
	return true, nil
}

type memShipments struct{ s *MemoryStore }

func (r memShipments) Create(_ context.Context, sh *domain.Shipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.shipments[sh.ID]; ok {
		return errors.New("shipment already exists")
	}
	cp := *sh
	r.s.shipments[sh.ID] = &cp
	return nil
}

func (r memShipments) FindByID(_ context.Context, id string) (*domain.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sh, ok := r.s.shipments[id]
	if !ok {
		return nil, nil
	}
	cp := *sh
	return &cp, nil
}

func (r memShipments) List(_ context.Context, ownerID string) ([]*domain.Shipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.Shipment{}
	for _, sh := range r.s.shipments {
		if ownerID == "" || sh.OwnerID == ownerID {
			cp := *sh
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memShipments) Update(_ context.Context, sh *domain.Shipment) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.shipments[sh.ID]
	if !ok || cur.OwnerID != sh.OwnerID {
		return false, nil
	}
	cur.Public = sh.Public
	cur.Private = sh.Private
	cur.UpdatedAt = sh.UpdatedAt
	return true, nil
}

func (r memShipments) Delete(_ context.Context, id, ownerID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.shipments[id]
	if !ok || cur.OwnerID != ownerID {
		return false, nil
	}
	delete(r.s.shipments, id)
	return true, nil
}

func (r memShipments) CountCreatedSince(_ context.Context, ownerID string, since time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, sh := range r.s.shipments {
		if sh.OwnerID == ownerID && !sh.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r memShipments) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.shipments)), nil
}

type memActivator struct{ s *MemoryStore }

func (a memActivator) ActivateWithPayment(_ context.Context, act *domain.Activation) error {
	if act.Payment == nil {
		return errors.New("activation has no payment")
	}
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if err := a.s.insertPaymentLocked(act.Payment); err != nil {
		return err
	}
	a.s.upsertPlanLocked(act)
	return nil
}

func (a memActivator) CompleteCheckout(_ context.Context, sessionID string, act *domain.Activation) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	p := a.s.pendingCheckoutLocked(sessionID)
	if p == nil {
		return ErrPaymentNotPending
	}
	p.Status = domain.PaymentSucceeded
	p.UpdatedAt = act.At
	a.s.upsertPlanLocked(act)
	return nil
}

func (s *MemoryStore) insertPaymentLocked(p *domain.Payment) error {
	if _, ok := s.payments[p.ID]; ok {
		return errors.New("payment already exists")
	}
	for _, existing := range s.payments {
		if p.ProviderRef.TxHash != "" && existing.ProviderRef.TxHash == p.ProviderRef.TxHash {
			return ErrDuplicateTxHash
		}
		if p.ProviderRef.StripeSessionID != "" && existing.ProviderRef.StripeSessionID == p.ProviderRef.StripeSessionID {
			return errors.New("payment for checkout session already exists")
		}
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *MemoryStore) pendingCheckoutLocked(sessionID string) *domain.Payment {
	for _, p := range s.payments {
		if p.ProviderRef.StripeSessionID == sessionID && p.Status == domain.PaymentPending {
			return p
		}
	}
	return nil
}

func (s *MemoryStore) upsertPlanLocked(act *domain.Activation) {
	plan := act.Plan
	u, ok := s.users[act.UserID]
	if !ok {
		u = &domain.User{Subject: act.UserID, CreatedAt: act.At}
		s.users[act.UserID] = u
	}
	if act.Email != "" {
		u.Email = act.Email
	}
	u.Plan = &plan
	u.UpdatedAt = act.At
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.Plan != nil {
		plan := *u.Plan
		cp.Plan = &plan
	}
	return &cp
}
