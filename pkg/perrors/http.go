package perrors

import (
	"errors"
	"log/slog"
	"net/http"
)

// Code is the machine-readable error code returned in API responses,
// distinct from the HTTP status so clients can branch on it without
// parsing prose.
type Code string

const (
	CodeRateLimit       Code = "RATE_LIMIT"
	CodeUsageLimit      Code = "USAGE_LIMIT"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeTenantRequired  Code = "TENANT_REQUIRED"
	CodeDemoBlocked     Code = "DEMO_BLOCKED"
	CodeUnsupportedType Code = "UNSUPPORTED_CONTENT_TYPE"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus maps an error produced anywhere in the pipeline to the status
// code and machine code the API layer should respond with. Unrecognized
// errors are logged and mapped to 500/INTERNAL so a caller never leaks
// internal error text for errors it doesn't understand.
func HTTPStatus(err error) (status int, code Code, message string) {
	if err == nil {
		return http.StatusOK, "", ""
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests, CodeRateLimit, err.Error()
	}
	var ul *UsageLimitError
	if errors.As(err, &ul) {
		return http.StatusForbidden, CodeUsageLimit, err.Error()
	}
	var uct *UnsupportedContentTypeError
	if errors.As(err, &uct) {
		return http.StatusUnsupportedMediaType, CodeUnsupportedType, err.Error()
	}
	var ii *InvalidInputError
	if errors.As(err, &ii) {
		return http.StatusBadRequest, CodeInvalidInput, err.Error()
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound, CodeNotFound, err.Error()
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized, CodeUnauthorized, err.Error()
	}
	if errors.Is(err, ErrTenantRequired) {
		return http.StatusBadRequest, CodeTenantRequired, err.Error()
	}
	if errors.Is(err, ErrDemoBlocked) {
		return http.StatusForbidden, CodeDemoBlocked, err.Error()
	}

	slog.Error("unmapped error reaching API boundary", "error", err)
	return http.StatusInternalServerError, CodeInternal, "internal server error"
}
