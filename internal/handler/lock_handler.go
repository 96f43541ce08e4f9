package handler

import (
	"net/http"

	"canvas-sync-server/internal/middleware"
	"canvas-sync-server/internal/service"
	"canvas-sync-server/pkg/response"

	"github.com/gorilla/mux"
)

// LockHandler exposes the advisory locks over HTTP. Acquire answers with
// acquired=false rather than an error when another user holds the lock; the
// caller discovers lost races through its snapshot feed, not here.
type LockHandler struct {
	service *service.LockService
}

func NewLockHandler(service *service.LockService) *LockHandler {
	return &LockHandler{service: service}
}

type lockResult struct {
	Acquired bool `json:"acquired"`
}

func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	userID := middleware.GetUserID(r)

	acquired, err := h.service.Acquire(shapeID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, lockResult{Acquired: acquired})
}

func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.Release(shapeID, userID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Lock released"})
}

func (h *LockHandler) AcquireEditing(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	userID := middleware.GetUserID(r)

	acquired, err := h.service.AcquireEditing(shapeID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, lockResult{Acquired: acquired})
}

func (h *LockHandler) ReleaseEditing(w http.ResponseWriter, r *http.Request) {
	shapeID := mux.Vars(r)["id"]
	if shapeID == "" {
		response.BadRequest(w, "Shape ID is required")
		return
	}

	userID := middleware.GetUserID(r)

	if err := h.service.ReleaseEditing(shapeID, userID); err != nil {
		respondServiceError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Edit lock released"})
}
