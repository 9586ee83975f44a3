// AngelaMos | 2026
// service.go

package comment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

type Service struct {
	repo   Repository
	roles  middleware.RoleLookup
	logger *slog.Logger
}

func NewService(repo Repository, roles middleware.RoleLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, logger: logger}
}

func (s *Service) Create(ctx context.Context, req CreateCommentRequest) (*forum.Comment, error) {
	authorID := middleware.GetUserID(ctx)
	if authorID == "" {
		return nil, fmt.Errorf("create comment: %w", core.ErrUnauthorized)
	}

	c := &forum.Comment{
		ID:       uuid.New().String(),
		PostID:   req.PostID,
		AuthorID: authorID,
		Text:     strings.TrimSpace(req.Text),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListByPost(ctx context.Context, postID string) ([]forum.Comment, error) {
	return s.repo.ListByPost(ctx, postID)
}

// Delete removes a comment written by the caller, or any comment when the
// caller's stored role is admin.
func (s *Service) Delete(ctx context.Context, id string) error {
	admin, err := middleware.IsCurrentAdmin(ctx, s.roles)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if !admin {
		c, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c.AuthorID != middleware.GetUserID(ctx) {
			return fmt.Errorf("delete comment: %w", core.ErrForbidden)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("comment deleted",
		"comment_id", id,
		"actor_id", middleware.GetUserID(ctx),
	)
	return nil
}
