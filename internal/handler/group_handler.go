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

type GroupHandler struct {
	service  *service.GroupService
	validate *validator.Validate
}

func NewGroupHandler(service *service.GroupService) *GroupHandler {
	return &GroupHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	userID := middleware.GetUserID(r)

	group, err := h.service.Group(userID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Created(w, group)
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List()
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, groups)
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	if groupID == "" {
		response.BadRequest(w, "Group ID is required")
		return
	}

	group, err := h.service.Get(groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, group)
}

func (h *GroupHandler) Ungroup(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	if groupID == "" {
		response.BadRequest(w, "Group ID is required")
		return
	}

	if err := h.service.Ungroup(groupID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Group dissolved"})
}

func (h *GroupHandler) Move(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	if groupID == "" {
		response.BadRequest(w, "Group ID is required")
		return
	}

	var req domain.MoveGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	if err := h.service.Move(groupID, req.DX, req.DY); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Group moved"})
}

func (h *GroupHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	if groupID == "" {
		response.BadRequest(w, "Group ID is required")
		return
	}

	var req domain.DuplicateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	userID := middleware.GetUserID(r)

	ids, err := h.service.Duplicate(userID, groupID, req.DX, req.DY)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{"shape_ids": ids})
}

func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["id"]
	if groupID == "" {
		response.BadRequest(w, "Group ID is required")
		return
	}

	if err := h.service.Delete(groupID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Group deleted"})
}
