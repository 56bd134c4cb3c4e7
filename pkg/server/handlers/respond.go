package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/verkkograph/verkko/pkg/server/dto"
	"github.com/verkkograph/verkko/pkg/types"
)

// respondError maps engine errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		status = http.StatusBadRequest
		code = "invalid_request"
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, types.ErrResourceExhausted):
		status = http.StatusUnprocessableEntity
		code = "resource_exhausted"
	case errors.Is(err, types.ErrConstraintViolation):
		status = http.StatusConflict
		code = "constraint_violation"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		status = http.StatusServiceUnavailable
		code = "store_unavailable"
	}

	c.JSON(status, dto.ErrorResponse{
		Error:   code,
		Message: err.Error(),
		Code:    status,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}
