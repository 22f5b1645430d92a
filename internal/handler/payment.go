package handler

import (
	"net/http"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/service"
)

// PaymentHandler serves plan purchases and payment history.
type PaymentHandler struct {
	svc *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// CreateCheckout handles POST /api/payments/stripe/checkout.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.CheckoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.CreateCheckout(r.Context(), id, req.PlanType)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// SubmitCrypto handles POST /api/payments/crypto/submit.
func (h *PaymentHandler) SubmitCrypto(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	var req domain.CryptoSubmitRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	resp, err := h.svc.SubmitCrypto(r.Context(), id, req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, resp)
}

// List handles GET /api/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	payments, err := h.svc.ListPayments(r.Context(), id.Subject)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

// MyPlan handles GET /api/me/plan.
func (h *PaymentHandler) MyPlan(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	plan, err := h.svc.CurrentPlan(r.Context(), id.Subject)
	if err != nil {
		Error(w, err)
		return
	}
	if plan == nil {
		JSON(w, http.StatusOK, map[string]string{"status": "none"})
		return
	}

	JSON(w, http.StatusOK, plan)
}
