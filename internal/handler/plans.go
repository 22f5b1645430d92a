package handler

import (
	"net/http"

	"github.com/agroisync/backend/internal/domain"
)

// PlansHandler serves the plan catalog.
type PlansHandler struct{}

// NewPlansHandler creates a new PlansHandler.
func NewPlansHandler() *PlansHandler {
	return &PlansHandler{}
}

// List handles GET /api/plans.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	plans := domain.AvailablePlans()
	views := make([]domain.PlanView, len(plans))
	for i, p := range plans {
		views[i] = p.View()
	}
	JSON(w, http.StatusOK, map[string]interface{}{"plans": views})
}
