// AngelaMos | 2026
// entity.go

package report

import (
	"time"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type reportRow struct {
	ID         string     `db:"id"`
	TargetType string     `db:"target_type"`
	TargetID   string     `db:"target_id"`
	ReporterID string     `db:"reporter_id"`
	ReasonCode string     `db:"reason_code"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
	ResolvedBy *string    `db:"resolved_by"`
}

func (r *reportRow) toReport() forum.Report {
	return forum.Report{
		ID:         r.ID,
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
		ReporterID: r.ReporterID,
		ReasonCode: r.ReasonCode,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		ResolvedAt: r.ResolvedAt,
		ResolvedBy: r.ResolvedBy,
	}
}

// Resolution is the outcome of closing a report.
type Resolution struct {
	Report         forum.Report `json:"report"`
	ContentDeleted bool         `json:"contentDeleted"`
	// SiblingsClosed counts other open reports on the same target that were
	// closed along with this one.
	SiblingsClosed int `json:"siblingsClosed"`
}

type OpenCounts map[string]int
