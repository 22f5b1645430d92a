package domain

import "time"

// Plan statuses stored on a user.
const (
	PlanStatusActive   = "active"
	PlanStatusInactive = "inactive"
	PlanStatusExpired  = "expired"
)

// User is a marketplace account, keyed by the identity provider's subject.
type User struct {
	Subject   string    `json:"id"`
	Email     string    `json:"email"`
	Plan      *UserPlan `json:"plan,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserPlan is the plan subdocument embedded on a user. Limits are copied from
// the catalog at activation time.
type UserPlan struct {
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	LimitAds       *int       `json:"limitAds"`
	LimitShipments *int       `json:"limitShipments"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// ActiveAt reports whether the plan is active and not past its expiry at t.
func (p *UserPlan) ActiveAt(t time.Time) bool {
	if p == nil || p.Status != PlanStatusActive {
		return false
	}
	return p.ExpiresAt == nil || t.Before(*p.ExpiresAt)
}

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	Subject string
	Email   string
}

// PlanExpiry returns the expiry of a plan activated at t: one calendar month later.
func PlanExpiry(t time.Time) time.Time {
	return t.AddDate(0, 1, 0)
}
