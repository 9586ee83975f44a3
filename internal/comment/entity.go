// AngelaMos | 2026
// entity.go

package comment

import (
	"time"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type commentRow struct {
	ID        string    `db:"id"`
	PostID    string    `db:"post_id"`
	AuthorID  string    `db:"author_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *commentRow) toComment() forum.Comment {
	return forum.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
}
