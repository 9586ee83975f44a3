// AngelaMos | 2026
// service.go

package post

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/metrics"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

// Members returns the stored tier and role of a user. Token claims can lag
// behind an upgrade or a role change, so quota and ownership checks ask
// storage.
type Members interface {
	CurrentTier(ctx context.Context, userID string) (string, error)
	middleware.RoleLookup
}

type Service struct {
	repo      Repository
	members   Members
	postLimit int
	logger    *slog.Logger
}

func NewService(repo Repository, members Members, postLimit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		members:   members,
		postLimit: postLimit,
		logger:    logger,
	}
}

// Create stores a post after the quota check. The check and the insert are
// not atomic: two concurrent creations by one standard member can both pass
// and leave them one post over the limit.
func (s *Service) Create(ctx context.Context, req CreatePostRequest) (*forum.Post, error) {
	authorID := middleware.GetUserID(ctx)
	if authorID == "" {
		return nil, fmt.Errorf("create post: %w", core.ErrUnauthorized)
	}

	tier, err := s.members.CurrentTier(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if tier != forum.TierElevated {
		count, err := s.repo.CountByAuthor(ctx, authorID)
		if err != nil {
			return nil, err
		}
		core.AddSpanEvent(ctx, "post.quota_checked",
			attribute.Int("quota.count", count),
			attribute.Int("quota.limit", s.postLimit),
		)
		if count >= s.postLimit {
			metrics.QuotaRejectionsTotal.Inc()
			return nil, core.QuotaExceededError(s.postLimit)
		}
	}

	p := &forum.Post{
		ID:         uuid.New().String(),
		AuthorID:   authorID,
		Title:      strings.TrimSpace(req.Title),
		Body:       req.Body,
		Tags:       req.Tags,
		Upvoters:   []string{},
		Downvoters: []string{},
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	metrics.PostsCreatedTotal.WithLabelValues(tier).Inc()
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*forum.Post, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]forum.Post, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) CountByEmail(ctx context.Context, email string) (int, error) {
	return s.repo.CountByAuthorEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Vote toggles the caller's vote inside the post's row lock.
func (s *Service) Vote(ctx context.Context, postID string, dir forum.Direction) (*forum.Post, error) {
	voterID := middleware.GetUserID(ctx)
	if voterID == "" {
		return nil, fmt.Errorf("vote: %w", core.ErrUnauthorized)
	}

	var before, after forum.Direction
	p, err := s.repo.MutateVotes(ctx, postID, func(p *forum.Post) error {
		before = forum.VoteOf(p, voterID)
		if err := forum.ApplyVote(p, voterID, dir); err != nil {
			return fmt.Errorf("vote: %w", core.ErrInvalidInput)
		}
		after = forum.VoteOf(p, voterID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues(string(dir), voteResult(before, after)).Inc()
	return p, nil
}

func voteResult(before, after forum.Direction) string {
	switch {
	case before == "":
		return "added"
	case after == "":
		return "removed"
	default:
		return "switched"
	}
}

// Delete removes a post. Authors may delete their own posts; callers whose
// stored role is admin may delete any.
func (s *Service) Delete(ctx context.Context, id string) error {
	admin, err := middleware.IsCurrentAdmin(ctx, s.members)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if !admin {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.AuthorID != middleware.GetUserID(ctx) {
			return fmt.Errorf("delete post: %w", core.ErrForbidden)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("post deleted",
		"post_id", id,
		"actor_id", middleware.GetUserID(ctx),
	)
	return nil
}
