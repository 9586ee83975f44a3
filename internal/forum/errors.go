// AngelaMos | 2026
// errors.go

package forum

import (
	"errors"
)

var (
	// ErrUnauthenticated means no principal is signed in.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the principal is known but its role is insufficient.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenRejected means the backend answered 401/403 and the session was torn down.
	ErrTokenRejected   = errors.New("token rejected")
	ErrDuplicateReport = errors.New("duplicate report")
	ErrQuotaExceeded   = errors.New("post quota exceeded")
	ErrNotFound        = errors.New("not found")
	ErrReportClosed    = errors.New("report already closed")
	ErrInvalidInput    = errors.New("invalid input")
)
