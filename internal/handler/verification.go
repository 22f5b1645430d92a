package handler

import (
	"net/http"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/service"
)

// VerificationHandler issues and checks SMS and e-mail codes.
type VerificationHandler struct {
	svc *service.VerificationService
}

func NewVerificationHandler(svc *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// Send handles POST /api/verification/send.
func (h *VerificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendCodeRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	sent, err := h.svc.Send(r.Context(), req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Código de verificação enviado",
		"data":    sent,
	})
}

// Verify handles POST /api/verification/verify.
func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyCodeRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	res, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Código verificado com sucesso",
		"data":    res,
	})
}
