package handler

import (
	"net/http"

	"github.com/agroisync/backend/internal/domain"
	"github.com/agroisync/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// ShipmentHandler handles freight offer endpoints.
type ShipmentHandler struct {
	svc *service.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(svc *service.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{svc: svc}
}

// List handles GET /api/shipments[?owner=me].
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	shipments, err := h.svc.List(r.Context(), id.Subject, r.URL.Query().Get("owner") == "me")
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"shipments": shipments})
}

// Get handles GET /api/shipments/{id}.
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	shipment, err := h.svc.Get(r.Context(), id.Subject, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"shipment": shipment})
}

// Create handles POST /api/shipments. The plan quota is checked before the
// body is read.
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.svc.CheckFreightLimits(r.Context(), id.Subject); err != nil {
		Error(w, err)
		return
	}

	var req domain.CreateShipmentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	shipment, err := h.svc.Create(r.Context(), id.Subject, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Frete criado com sucesso",
		"shipment": shipment,
	})
}

// Update handles PUT /api/shipments/{id}.
func (h *ShipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	shipmentID := chi.URLParam(r, "id")
	if !domain.ValidShipmentID(shipmentID) {
		WriteError(w, http.StatusBadRequest, domain.CodeInvalidID, "ID inválido")
		return
	}

	var req domain.UpdateShipmentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	shipment, err := h.svc.Update(r.Context(), id.Subject, shipmentID, &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Frete atualizado com sucesso",
		"shipment": shipment,
	})
}

// Delete handles DELETE /api/shipments/{id}.
func (h *ShipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(r)
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.svc.Delete(r.Context(), id.Subject, chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": "Frete deletado com sucesso"})
}
