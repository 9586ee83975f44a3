// AngelaMos | 2026
// errors.go

package apiclient

import (
	"fmt"
	"net/http"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

// APIError is a non-2xx answer from the backend, carried as-is.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is lets callers match backend rejections against the forum taxonomy with
// errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case forum.ErrDuplicateReport:
		return e.Code == "DUPLICATE_REPORT"
	case forum.ErrQuotaExceeded:
		return e.Code == "QUOTA_EXCEEDED"
	case forum.ErrReportClosed:
		return e.Code == "REPORT_CLOSED"
	case forum.ErrUnauthorized:
		return e.Code == "NOT_AUTHOR"
	case forum.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case forum.ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}
