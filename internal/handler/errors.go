package handler

import (
	"errors"
	"net/http"

	"canvas-sync-server/internal/repository"
	"canvas-sync-server/internal/service"
	"canvas-sync-server/pkg/response"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses:
// validation failures are 400, missing records 404, failed preconditions
// 409, everything else a 500 transport/write failure.
func respondServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		response.BadRequest(w, validationErr.Error())
		return
	}

	if errors.Is(err, repository.ErrShapeNotFound) || errors.Is(err, repository.ErrGroupNotFound) {
		response.NotFound(w, err.Error())
		return
	}

	var preconditionErr *service.PreconditionError
	if errors.As(err, &preconditionErr) {
		response.Conflict(w, preconditionErr.Error())
		return
	}

	response.InternalError(w, err.Error())
}
