// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes the symbolic error code constants mapped to HTTP
// responses (via the `fail()` helper in this package) and the translation from
// service-layer sentinel errors to (status, code) pairs. These codes provide
// clients with a stable, machine-readable error taxonomy that supplements
// human-readable messages.
//
// Conventions:
//   - Codes are UPPER_SNAKE_CASE and stable across releases.
//   - Generic codes (e.g., VALIDATION_ERROR, NOT_FOUND, CONFLICT) mirror common
//     HTTP status semantics to aid interoperability.
//   - Domain-specific codes (e.g., ILLEGAL_TRANSITION, INSUFFICIENT_STOCK) are
//     reserved for business rules that a bare status cannot convey.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "INSUFFICIENT_STOCK",
//	  "detail": "not enough stock for part BRK-PAD-008"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oficinapro/workshop-backend/internal/repo"
	"github.com/oficinapro/workshop-backend/internal/services"
)

const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeIllegalTransition = "ILLEGAL_TRANSITION"
	ErrCodeIllegalMutation   = "ILLEGAL_MUTATION"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeBusinessRule      = "BUSINESS_RULE_VIOLATION"
	ErrCodeUpstreamFailure   = "UPSTREAM_FAILURE"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// failErr translates a service or repository error into the matching HTTP
// status and taxonomy code. Unknown errors become 500 INTERNAL_ERROR.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAppointmentNotFound),
		errors.Is(err, services.ErrCustomerNotFound),
		errors.Is(err, services.ErrVehicleNotFound),
		errors.Is(err, services.ErrServiceNotFound),
		errors.Is(err, services.ErrExtraNotFound),
		errors.Is(err, services.ErrPartNotFound),
		errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, repo.ErrProductMissing):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, repo.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidArea):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, repo.ErrAlreadyExists):
		fail(c, http.StatusConflict, ErrCodeAlreadyExists, err.Error())
	case errors.Is(err, repo.ErrInsufficientStock):
		fail(c, http.StatusConflict, ErrCodeInsufficientStock, err.Error())
	case errors.Is(err, services.ErrIllegalTransition):
		fail(c, http.StatusConflict, ErrCodeIllegalTransition, err.Error())
	case errors.Is(err, services.ErrIllegalMutation):
		fail(c, http.StatusConflict, ErrCodeIllegalMutation, err.Error())
	case errors.Is(err, repo.ErrProductDeleted),
		errors.Is(err, services.ErrExtraNotMutable),
		errors.Is(err, repo.ErrDuplicateInvoice):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrCancelWithParts),
		errors.Is(err, services.ErrAmountExceedsTotal):
		fail(c, http.StatusUnprocessableEntity, ErrCodeBusinessRule, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
