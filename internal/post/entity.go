// AngelaMos | 2026
// entity.go

package post

import (
	"strings"
	"time"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type postRow struct {
	ID           string    `db:"id"`
	AuthorID     string    `db:"author_id"`
	Title        string    `db:"title"`
	Body         string    `db:"body"`
	Tags         string    `db:"tags"`
	CreatedAt    time.Time `db:"created_at"`
	CommentCount int       `db:"comment_count"`
}

type voteRow struct {
	PostID    string `db:"post_id"`
	UserID    string `db:"user_id"`
	Direction string `db:"direction"`
}

func (r *postRow) toPost() forum.Post {
	return forum.Post{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Title:        r.Title,
		Body:         r.Body,
		Tags:         splitTags(r.Tags),
		CreatedAt:    r.CreatedAt,
		Upvoters:     []string{},
		Downvoters:   []string{},
		CommentCount: r.CommentCount,
	}
}

func attachVotes(p *forum.Post, votes []voteRow) {
	for _, v := range votes {
		if v.PostID != p.ID {
			continue
		}
		switch forum.Direction(v.Direction) {
		case forum.VoteUp:
			p.Upvoters = append(p.Upvoters, v.UserID)
		case forum.VoteDown:
			p.Downvoters = append(p.Downvoters, v.UserID)
		}
	}
}

func joinTags(tags []string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !strings.Contains(t, ",") {
			clean = append(clean, t)
		}
	}
	return strings.Join(clean, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
