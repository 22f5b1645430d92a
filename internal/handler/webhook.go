package handler

import (
	"io"
	"net/http"

	"github.com/agroisync/backend/internal/domain"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 64 << 10

// StripeWebhook handles POST /api/payments/stripe/webhook. The raw body is
// needed for signature verification, so it is read before any decoding.
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		WriteError(w, http.StatusBadRequest, domain.CodeInvalidJSON, "Corpo da requisição inválido")
		return
	}

	if err := h.svc.HandleStripeWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"received": true})
}
