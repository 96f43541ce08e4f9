package handler

import (
	"encoding/json"
	"net/http"

	"canvas-sync-server/internal/domain"
	"canvas-sync-server/internal/middleware"
	"canvas-sync-server/internal/service"
	"canvas-sync-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type ShapeHandler struct {
	service  *service.ShapeService
	validate *validator.Validate
}

func NewShapeHandler(service *service.ShapeService) *ShapeHandler {
	return &ShapeHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *ShapeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateShapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userID := middleware.GetUserID(r)

	shape, err := h.service.Create(userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Created(w, shape)
}

func (h *ShapeHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []*domain.CreateShapeRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	for _, req := range reqs {
		if err := h.validate.Struct(req); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
	}

	userID := middleware.GetUserID(r)

	shapes, err := h.service.CreateBatch(userID, reqs)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Created(w, shapes)
}

func (h *ShapeHandler) List(w http.ResponseWriter, r *http.Request) {
	shapes, err := h.service.List()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, shapes)
}

func (h *ShapeHandler) Get(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	shape, err := h.service.Get(shapeID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, shape)
}

func (h *ShapeHandler) Update(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	var req domain.UpdateShapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.Update(userID, shapeID, &req); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Shape updated"})
}

func (h *ShapeHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	var req struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	userID := middleware.GetUserID(r)

	shape, err := h.service.Duplicate(userID, shapeID, req.DX, req.DY)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Created(w, shape)
}

func (h *ShapeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	if err := h.service.Delete(shapeID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Shape deleted"})
}

func (h *ShapeHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Canvas cleared"})
}
