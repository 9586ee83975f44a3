// AngelaMos | 2026
// repository.go

package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type Repository interface {
	Create(ctx context.Context, c *forum.Comment) error
	GetByID(ctx context.Context, id string) (*forum.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]forum.Comment, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *forum.Comment) error {
	query := `
		INSERT INTO comments (id, post_id, author_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &c.CreatedAt, query, c.ID, c.PostID, c.AuthorID, c.Text)
	if err != nil {
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("create comment: post %s: %w", c.PostID, core.ErrNotFound)
		}
		return fmt.Errorf("create comment: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*forum.Comment, error) {
	query := `
		SELECT id, post_id, author_id, text, created_at
		FROM comments
		WHERE id = $1`

	var row commentRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get comment: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}

	c := row.toComment()
	return &c, nil
}

func (r *repository) ListByPost(ctx context.Context, postID string) ([]forum.Comment, error) {
	query := `
		SELECT id, post_id, author_id, text, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC`

	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, postID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	comments := make([]forum.Comment, 0, len(rows))
	for i := range rows {
		comments = append(comments, rows[i].toComment())
	}

	return comments, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete comment: %w", core.ErrNotFound)
	}

	return nil
}
