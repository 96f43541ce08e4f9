package handler

import (
	"net/http"

	"canvas-sync-server/internal/service"
	"canvas-sync-server/pkg/response"

	"github.com/gorilla/mux"
)

type OrderHandler struct {
	service *service.ZOrderService
}

func NewOrderHandler(service *service.ZOrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) Range(w http.ResponseWriter, r *http.Request) {
	zr, err := h.service.Range()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, zr)
}

func (h *OrderHandler) BringToFront(w http.ResponseWriter, r *http.Request) {
	h.reorder(w, r, h.service.BringToFront)
}

func (h *OrderHandler) SendToBack(w http.ResponseWriter, r *http.Request) {
	h.reorder(w, r, h.service.SendToBack)
}

func (h *OrderHandler) BringForward(w http.ResponseWriter, r *http.Request) {
	h.reorder(w, r, h.service.BringForward)
}

func (h *OrderHandler) SendBackward(w http.ResponseWriter, r *http.Request) {
	h.reorder(w, r, h.service.SendBackward)
}

func (h *OrderHandler) reorder(w http.ResponseWriter, r *http.Request, op func(string) error) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	if err := op(shapeID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Order updated"})
}
