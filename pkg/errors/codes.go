package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
	ErrCodeRateLimited        ErrorCode = "COMMON_017"
)

// Short aliases used at call sites.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
)

// Record Module Error Codes
const (
	ErrCodeStructureBackendFailure ErrorCode = "REC_001"
	ErrCodeFingerprintParseFailed  ErrorCode = "REC_002"
	ErrCodeSanitizationFailed      ErrorCode = "REC_003"
	ErrCodeReconstructionFailed    ErrorCode = "REC_004"
	ErrCodeRecordNotFound          ErrorCode = "REC_005"
	ErrCodeInvalidDocument         ErrorCode = "REC_006"
	ErrCodeUnknownToolkit          ErrorCode = "REC_007"
)

// Infrastructure Error Codes
const (
	ErrCodeSearchFailed      ErrorCode = "INFRA_001"
	ErrCodeIndexFailed       ErrorCode = "INFRA_002"
	ErrCodeMessagingFailed   ErrorCode = "INFRA_003"
	ErrCodeStorageFailed     ErrorCode = "INFRA_004"
	ErrCodeConfigInvalid     ErrorCode = "INFRA_005"
	ErrCodeIndexAlreadyExist ErrorCode = "INFRA_006"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeNotImplemented:     http.StatusNotImplemented,
	ErrCodeRateLimited:        http.StatusTooManyRequests,

	ErrCodeStructureBackendFailure: http.StatusUnprocessableEntity,
	ErrCodeFingerprintParseFailed:  http.StatusUnprocessableEntity,
	ErrCodeSanitizationFailed:      http.StatusUnprocessableEntity,
	ErrCodeReconstructionFailed:    http.StatusUnprocessableEntity,
	ErrCodeRecordNotFound:          http.StatusNotFound,
	ErrCodeInvalidDocument:         http.StatusBadGateway,
	ErrCodeUnknownToolkit:          http.StatusBadRequest,

	ErrCodeSearchFailed:      http.StatusBadGateway,
	ErrCodeIndexFailed:       http.StatusBadGateway,
	ErrCodeMessagingFailed:   http.StatusBadGateway,
	ErrCodeStorageFailed:     http.StatusBadGateway,
	ErrCodeConfigInvalid:     http.StatusInternalServerError,
	ErrCodeIndexAlreadyExist: http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",
	ErrCodeRateLimited:        "rate limit exceeded",

	ErrCodeStructureBackendFailure: "structure toolkit call failed",
	ErrCodeFingerprintParseFailed:  "malformed fingerprint bit list",
	ErrCodeSanitizationFailed:      "reaction template has no indexable component",
	ErrCodeReconstructionFailed:    "cannot rebuild structure from record",
	ErrCodeRecordNotFound:          "record not found",
	ErrCodeInvalidDocument:         "malformed index document",
	ErrCodeUnknownToolkit:          "structure toolkit not registered",

	ErrCodeSearchFailed:      "search backend request failed",
	ErrCodeIndexFailed:       "indexing request failed",
	ErrCodeMessagingFailed:   "message bus request failed",
	ErrCodeStorageFailed:     "object storage request failed",
	ErrCodeConfigInvalid:     "invalid configuration",
	ErrCodeIndexAlreadyExist: "index already exists",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
