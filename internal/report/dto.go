// AngelaMos | 2026
// dto.go

package report

type FileReportRequest struct {
	TargetType string `json:"targetType" validate:"required,oneof=post comment"`
	TargetID   string `json:"targetId"   validate:"required,uuid"`
	ReasonCode string `json:"reasonCode" validate:"required,oneof=Spam Harassment HateSpeech Misinformation Other"`
	ReporterID string `json:"reporterId" validate:"omitempty,uuid"`
}

type ListParams struct {
	Page       int
	PageSize   int
	TargetType string `validate:"omitempty,oneof=post comment"`
	Status     string `validate:"omitempty,oneof=open actioned dismissed"`
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
