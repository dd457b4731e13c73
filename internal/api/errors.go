package api

import (
	"net/http"

	"bank-ledger-reconciler/pkg/errors"
)

// APIError represents a structured error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrCodeInternalError is used for failures that are not ReconcilerErrors.
const ErrCodeInternalError = "internal_error"

// errorResponse maps an error to its status code and body. Input problems
// (bad files, malformed amounts, invalid parameters) are the client's fault.
func errorResponse(err error) (int, APIError) {
	rerr, ok := errors.AsReconcilerError(err)
	if !ok {
		return http.StatusInternalServerError, APIError{Code: ErrCodeInternalError, Message: "an internal error occurred"}
	}

	switch rerr.Category {
	case errors.CategoryFile, errors.CategoryParse, errors.CategoryValidation, errors.CategoryConfiguration:
		// err.Error() keeps the record location.
		return http.StatusBadRequest, APIError{Code: string(rerr.Code), Message: err.Error()}
	default:
		return http.StatusInternalServerError, APIError{Code: string(rerr.Code), Message: rerr.Message}
	}
}
