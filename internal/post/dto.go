// AngelaMos | 2026
// dto.go

package post

type CreatePostRequest struct {
	Title string   `json:"title" validate:"required,min=1,max=200"`
	Body  string   `json:"body"  validate:"required,min=1,max=20000"`
	Tags  []string `json:"tags"  validate:"max=10,dive,min=1,max=32,excludesall=0x2C"`
}

type VoteRequest struct {
	VoteType string `json:"voteType" validate:"required,oneof=upVote downVote"`
}

type CountResponse struct {
	Count int `json:"count"`
}

type ListParams struct {
	Page     int
	PageSize int
	Tag      string
	AuthorID string `validate:"omitempty,uuid"`
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
