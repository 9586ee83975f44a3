// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/forum/internal/auth"
	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/metrics"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) GetByID(ctx context.Context, id string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// Create stores a new account. Every account starts as a standard member;
// only an admin action or make-member changes that.
func (s *Service) Create(ctx context.Context, u auth.NewUser) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Email:        normalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		AvatarURL:    u.AvatarURL,
		Role:         forum.RoleMember,
		Tier:         forum.TierStandard,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

// CurrentRole satisfies middleware.RoleLookup.
func (s *Service) CurrentRole(ctx context.Context, userID string) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *Service) CurrentTier(ctx context.Context, userID string) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Tier, nil
}

// RoleRecordByEmail answers the role lookup. Members may only look up
// themselves; anyone else reads as not found so emails cannot be enumerated.
// Admin access follows the stored role, not the token.
func (s *Service) RoleRecordByEmail(
	ctx context.Context,
	email string,
) (*forum.RoleRecord, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if user.ID != middleware.GetUserID(ctx) {
		admin, err := middleware.IsCurrentAdmin(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("role lookup: %w", err)
		}
		if !admin {
			return nil, fmt.Errorf("role lookup: %w", core.ErrNotFound)
		}
	}

	record := user.RoleRecord()
	return &record, nil
}

// SetRole promotes or demotes a user. Admins cannot change their own role,
// which keeps at least one admin able to undo a mistake.
func (s *Service) SetRole(ctx context.Context, targetID, role string) (*User, error) {
	if !forum.ValidRole(role) {
		return nil, fmt.Errorf("set role: invalid role %q: %w", role, core.ErrInvalidInput)
	}

	actorID := middleware.GetUserID(ctx)
	if actorID == targetID {
		return nil, fmt.Errorf("set role: cannot change own role: %w", core.ErrInvalidInput)
	}

	user, err := s.repo.SetRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}

	metrics.RoleChangesTotal.WithLabelValues("role", role).Inc()
	s.logger.Info("role changed",
		"actor_id", actorID,
		"user_id", targetID,
		"role", role,
	)

	return user, nil
}

// MakeMember upgrades the caller to the elevated tier once payment has
// completed. Calling it again is a no-op.
func (s *Service) MakeMember(ctx context.Context, userID string) (*forum.RoleRecord, error) {
	if userID == "" {
		return nil, fmt.Errorf("make member: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Tier != forum.TierElevated {
		user, err = s.repo.SetTier(ctx, userID, forum.TierElevated)
		if err != nil {
			return nil, err
		}

		metrics.RoleChangesTotal.WithLabelValues("tier", forum.TierElevated).Inc()
		s.logger.Info("tier upgraded", "user_id", userID, "tier", forum.TierElevated)
	}

	record := user.RoleRecord()
	return &record, nil
}

func (s *Service) ListUsers(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) CountRoles(ctx context.Context) (*RoleCounts, error) {
	return s.repo.CountRoles(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		AvatarURL:    u.AvatarURL,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Tier:         u.Tier,
	}
}

var (
	_ auth.UserProvider     = (*Service)(nil)
	_ middleware.RoleLookup = (*Service)(nil)
)
