package errors

import "net/http"

// API error type strings, part of the public response contract.
const (
	TypeValidation  = "validation_error"
	TypeStorage     = "file_operation_error"
	TypeConcurrency = "concurrency_error"
	TypeInternal    = "internal_error"
)

// HTTPStatus maps an error to the HTTP status code for the API surface.
// Validation failures are client errors, storage failures are server
// errors, and lock timeouts signal the caller to retry.
func HTTPStatus(err error) int {
	switch GetCategory(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryStorage:
		return http.StatusInternalServerError
	case CategoryConcurrency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// APIType maps an error to the machine-readable error type string used in
// API error responses.
func APIType(err error) string {
	switch GetCategory(err) {
	case CategoryValidation:
		return TypeValidation
	case CategoryStorage:
		return TypeStorage
	case CategoryConcurrency:
		return TypeConcurrency
	default:
		return TypeInternal
	}
}
