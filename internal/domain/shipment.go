package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Shipment is a freight offer created by a carrier or seller.
type Shipment struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Public    ShipmentPublic  `json:"public"`
	Private   ShipmentPrivate `json:"private"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ShipmentPublic holds the fields anyone may see.
type ShipmentPublic struct {
	RouteFrom     string `json:"routeFrom"`
	RouteTo       string `json:"routeTo"`
	EstimatedDays int    `json:"estimatedDays"`
}

// ShipmentPrivate holds the fields only the owner may see.
type ShipmentPrivate struct {
	FreightPrice  float64 `json:"freightPrice"`
	WeightKg      float64 `json:"weightKg"`
	InvoiceNumber string  `json:"nfNumber"`
	Notes         string  `json:"notes"`
}

// PublicShipment is what non-owners get back.
type PublicShipment struct {
	ID        string         `json:"id"`
	Public    ShipmentPublic `json:"public"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// VisibleTo returns the full shipment for its owner and the public view for anyone else.
func (s *Shipment) VisibleTo(userID string) interface{} {
	if s.OwnerID == userID {
		return s
	}
	return &PublicShipment{
		ID:        s.ID,
		Public:    s.Public,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// CreateShipmentRequest is the body of POST /api/shipments.
type CreateShipmentRequest struct {
	Public  *ShipmentPublicInput  `json:"public"`
	Private *ShipmentPrivateInput `json:"private"`
}

// ShipmentPublicInput carries optional public fields; nil means "not provided".
type ShipmentPublicInput struct {
	RouteFrom     *string `json:"routeFrom"`
	RouteTo       *string `json:"routeTo"`
	EstimatedDays *int    `json:"estimatedDays"`
}

// ShipmentPrivateInput carries optional private fields; nil means "not provided".
type ShipmentPrivateInput struct {
	FreightPrice  *float64 `json:"freightPrice"`
	WeightKg      *float64 `json:"weightKg"`
	InvoiceNumber *string  `json:"nfNumber"`
	Notes         *string  `json:"notes"`
}

// UpdateShipmentRequest is the body of PUT /api/shipments/{id}.
type UpdateShipmentRequest = CreateShipmentRequest

// NewShipmentID generates a new UUID for a shipment.
func NewShipmentID() string {
	return uuid.New().String()
}

// ValidShipmentID reports whether id has the shape of a shipment id.
func ValidShipmentID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// TrimOrEmpty returns the trimmed value of s, or "" when s is nil.
func TrimOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
