// AngelaMos | 2026
// repository.go

package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type Repository interface {
	Create(ctx context.Context, p *forum.Post) error
	GetByID(ctx context.Context, id string) (*forum.Post, error)
	List(ctx context.Context, params ListParams) ([]forum.Post, int, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	CountByAuthorEmail(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, id string) error
	// MutateVotes locks the post row, hands the post with its voter sets to
	// fn and stores whatever voter sets fn leaves behind.
	MutateVotes(
		ctx context.Context,
		postID string,
		fn func(p *forum.Post) error,
	) (*forum.Post, error)
}

type repository struct {
	db core.DBTX
	tx core.TxRunner
}

func NewRepository(db core.DBTX, tx core.TxRunner) Repository {
	return &repository{db: db, tx: tx}
}

const selectPost = `
	SELECT p.id, p.author_id, p.title, p.body, p.tags, p.created_at,
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
	FROM posts p`

func (r *repository) Create(ctx context.Context, p *forum.Post) error {
	query := `
		INSERT INTO posts (id, author_id, title, body, tags)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &p.CreatedAt, query,
		p.ID,
		p.AuthorID,
		p.Title,
		p.Body,
		joinTags(p.Tags),
	)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}

	p.Tags = splitTags(joinTags(p.Tags))
	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*forum.Post, error) {
	return getPost(ctx, r.db, id, false)
}

func getPost(ctx context.Context, db core.DBTX, id string, lock bool) (*forum.Post, error) {
	if lock {
		var lockedID string
		err := db.GetContext(ctx, &lockedID, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock post: %w", core.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("lock post: %w", err)
		}
	}

	var row postRow
	err := db.GetContext(ctx, &row, selectPost+` WHERE p.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get post: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	p := row.toPost()
	votes, err := loadVotes(ctx, db, []string{p.ID})
	if err != nil {
		return nil, err
	}
	attachVotes(&p, votes)

	return &p, nil
}

func loadVotes(ctx context.Context, db core.DBTX, postIDs []string) ([]voteRow, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		`SELECT post_id, user_id, direction FROM post_votes
		 WHERE post_id IN (?) ORDER BY created_at`,
		postIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}

	var votes []voteRow
	if err := db.SelectContext(ctx, &votes, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}

	return votes, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]forum.Post, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Tag != "" {
		conditions = append(conditions, fmt.Sprintf(
			"$%d = ANY(string_to_array(p.tags, ','))", argIdx))
		args = append(args, strings.ToLower(params.Tag))
		argIdx++
	}

	if params.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("p.author_id = $%d", argIdx))
		args = append(args, params.AuthorID)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM posts p" + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := selectPost + whereClause + fmt.Sprintf(
		" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]forum.Post, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for i := range rows {
		posts = append(posts, rows[i].toPost())
		ids = append(ids, rows[i].ID)
	}

	votes, err := loadVotes(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range posts {
		attachVotes(&posts[i], votes)
	}

	return posts, total, nil
}

func (r *repository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM posts WHERE author_id = $1`
	if err := r.db.GetContext(ctx, &count, query, authorID); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (r *repository) CountByAuthorEmail(ctx context.Context, email string) (int, error) {
	query := `
		SELECT u.id, COUNT(p.id)
		FROM users u
		LEFT JOIN posts p ON p.author_id = u.id
		WHERE u.email = $1 AND u.deleted_at IS NULL
		GROUP BY u.id`

	var userID string
	var count int
	err := r.db.QueryRowxContext(ctx, query, email).Scan(&userID, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count posts: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}

	return count, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete post: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) MutateVotes(
	ctx context.Context,
	postID string,
	fn func(p *forum.Post) error,
) (*forum.Post, error) {
	var updated *forum.Post

	err := r.tx.InTx(ctx, func(tx core.DBTX) error {
		p, err := getPost(ctx, tx, postID, true)
		if err != nil {
			return err
		}

		before := voterDirections(p)
		if err := fn(p); err != nil {
			return err
		}

		if err := syncVotes(ctx, tx, p.ID, before, voterDirections(p)); err != nil {
			return err
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func voterDirections(p *forum.Post) map[string]forum.Direction {
	dirs := make(map[string]forum.Direction, len(p.Upvoters)+len(p.Downvoters))
	for _, id := range p.Upvoters {
		dirs[id] = forum.VoteUp
	}
	for _, id := range p.Downvoters {
		dirs[id] = forum.VoteDown
	}
	return dirs
}

func syncVotes(
	ctx context.Context,
	tx core.DBTX,
	postID string,
	before, after map[string]forum.Direction,
) error {
	for userID := range before {
		if _, ok := after[userID]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM post_votes WHERE post_id = $1 AND user_id = $2`,
			postID, userID,
		); err != nil {
			return fmt.Errorf("remove vote: %w", err)
		}
	}

	changed := make([]string, 0, len(after))
	for userID, dir := range after {
		if before[userID] != dir {
			changed = append(changed, userID)
		}
	}
	slices.Sort(changed)

	for _, userID := range changed {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO post_votes (post_id, user_id, direction)
			VALUES ($1, $2, $3)
			ON CONFLICT (post_id, user_id)
			DO UPDATE SET direction = EXCLUDED.direction, created_at = NOW()`,
			postID, userID, string(after[userID]),
		); err != nil {
			return fmt.Errorf("store vote: %w", err)
		}
	}

	return nil
}
