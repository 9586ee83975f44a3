// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")

	ErrDuplicateReport = errors.New("duplicate report")
	ErrReportClosed    = errors.New("report already closed")
	ErrQuotaExceeded   = errors.New("post quota exceeded")
	ErrRateLimited     = errors.New("rate limited")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("%s not found", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("%s already exists", field),
		http.StatusConflict,
		"DUPLICATE",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(ErrTokenExpired, "token has expired", http.StatusUnauthorized, "TOKEN_EXPIRED")
}

func TokenRevokedError() *AppError {
	return NewAppError(ErrTokenRevoked, "token has been revoked", http.StatusUnauthorized, "TOKEN_REVOKED")
}

func TokenInvalidError() *AppError {
	return NewAppError(ErrTokenInvalid, "token is invalid", http.StatusUnauthorized, "TOKEN_INVALID")
}

func DuplicateReportError() *AppError {
	return NewAppError(
		ErrDuplicateReport,
		"an open report for this target already exists",
		http.StatusConflict,
		"DUPLICATE_REPORT",
	)
}

func ReportClosedError() *AppError {
	return NewAppError(
		ErrReportClosed,
		"report is no longer open",
		http.StatusConflict,
		"REPORT_CLOSED",
	)
}

// QuotaExceededError is 422 rather than 403; clients treat 401/403 as a
// rejected token.
func QuotaExceededError(limit int) *AppError {
	return NewAppError(
		ErrQuotaExceeded,
		fmt.Sprintf("standard members may create at most %d posts", limit),
		http.StatusUnprocessableEntity,
		"QUOTA_EXCEEDED",
	)
}

// NotAuthorError rejects a member acting on someone else's content. Like
// the quota it is a business rule, so it stays off 403.
func NotAuthorError(resource string) *AppError {
	return NewAppError(
		ErrForbidden,
		fmt.Sprintf("only the author or an admin may delete this %s", resource),
		http.StatusUnprocessableEntity,
		"NOT_AUTHOR",
	)
}

func RateLimitedError(retryAfterSecs int) *AppError {
	return NewAppError(
		ErrRateLimited,
		fmt.Sprintf("rate limit exceeded, retry after %d seconds", retryAfterSecs),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	)
}
