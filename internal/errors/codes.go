// Package errors provides structured error handling for reviewsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (file, disk)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
//   - 6XX: Concurrency errors (lock acquisition)
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates file and disk I/O errors.
	CategoryStorage Category = "STORAGE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryConcurrency indicates lock acquisition failures.
	CategoryConcurrency Category = "CONCURRENCY"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeDiskFull       = "ERR_203_DISK_FULL"
	ErrCodeWriteFailed    = "ERR_204_WRITE_FAILED"
	ErrCodeLogCorrupt     = "ERR_205_LOG_CORRUPT"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeMissingField   = "ERR_402_MISSING_FIELD"
	ErrCodeFieldTooShort  = "ERR_403_FIELD_TOO_SHORT"
	ErrCodeFieldTooLong   = "ERR_404_FIELD_TOO_LONG"
	ErrCodeInvalidRating  = "ERR_405_INVALID_RATING"
	ErrCodeQueryEmpty     = "ERR_406_QUERY_EMPTY"
	ErrCodeQueryTooLong   = "ERR_407_QUERY_TOO_LONG"
	ErrCodeInvalidLimit   = "ERR_408_INVALID_LIMIT"
	ErrCodeMalformedInput = "ERR_409_MALFORMED_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"

	// Concurrency errors (600-699)
	ErrCodeLockTimeout = "ERR_601_LOCK_TIMEOUT"
	ErrCodeLockFailed  = "ERR_602_LOCK_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_FILE_NOT_FOUND")
	numStr := code[4:7]
	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '4':
		return CategoryValidation
	case '6':
		return CategoryConcurrency
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeLogCorrupt, ErrCodeDiskFull:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Lock timeouts are retryable: the caller is expected to back off and retry.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeLockTimeout:
		return true
	default:
		return false
	}
}
