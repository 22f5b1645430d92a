package handler

import (
	"net/http"

	"github.com/agroisync/backend/internal/service"
)

type AdminHandler struct {
	svc *service.AdminService
}

func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// GetStats returns marketplace-wide counters.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}

// ListPayments returns the most recent payments of all users.
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.RecentPayments(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}
