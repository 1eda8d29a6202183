package handler

import (
	"errors"
	"net/http"

	"questforge/backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// abortWithServiceError translates service sentinel errors into HTTP statuses.
// This centralizes error handling for all handlers so statuses stay consistent
// across the API.
func abortWithServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateIdentity),
		errors.Is(err, service.ErrRosterFull),
		errors.Is(err, service.ErrSessionExists):
		status = http.StatusConflict
	case errors.Is(err, service.ErrGeneration):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal detail stays in the logs, not in the response body.
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}
