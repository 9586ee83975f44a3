// AngelaMos | 2026
// dto.go

package comment

type CreateCommentRequest struct {
	PostID string `json:"postId" validate:"required,uuid"`
	Text   string `json:"text"   validate:"required,min=1,max=5000"`
}
