// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
)

type UserInfo struct {
	ID           string
	Email        string
	Name         string
	AvatarURL    string
	PasswordHash string
	Role         string
	Tier         string
}

type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	AvatarURL    string
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, u NewUser) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// Blacklist remembers revoked access token ids until they would have expired.
type Blacklist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type redisBlacklist struct {
	rdb *core.Redis
}

func NewRedisBlacklist(rdb *core.Redis) Blacklist {
	return &redisBlacklist{rdb: rdb}
}

func (b *redisBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.rdb.Client.Set(ctx, b.rdb.Key("revoked", jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (b *redisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.rdb.Client.Exists(ctx, b.rdb.Key("revoked", jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}

type Service struct {
	repo      Repository
	jwt       *JWTManager
	users     UserProvider
	blacklist Blacklist
	now       func() time.Time
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	users UserProvider,
	blacklist Blacklist,
) *Service {
	return &Service{
		repo:      repo,
		jwt:       jwt,
		users:     users,
		blacklist: blacklist,
		now:       time.Now,
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // burn the same hashing time as a real account
			_, _, _ = core.CheckPassword(req.Password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.users.UpdatePassword(ctx, user.ID, newHash)
	}

	return s.issue(ctx, user, "")
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, NewUser{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		AvatarURL:    req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(ctx, user, "")
}

// Refresh exchanges a refresh token for a new pair. Role and tier are read
// again, so a promotion or make-member upgrade shows up in the new claims.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	switch stored.state(s.now()) {
	case tokenRotated:
		//nolint:errcheck // security revocation continues regardless
		_ = s.repo.RevokeFamily(ctx, stored.FamilyID)
		return nil, ErrTokenReuse
	case tokenRevoked:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
	case tokenExpired:
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	access, err := s.jwt.CreateAccessToken(user.ID, user.Role, user.Tier)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	next, data, err := s.newRefreshToken(user.ID, stored.FamilyID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Rotate(ctx, stored.ID, next); err != nil {
		if errors.Is(err, core.ErrTokenRevoked) {
			//nolint:errcheck // lost the rotation race: treat as reuse
			_ = s.repo.RevokeFamily(ctx, stored.FamilyID)
			return nil, ErrTokenReuse
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return s.response(user, access, data), nil
}

// Logout revokes the presented refresh token and blacklists the access token
// that authenticated the call until it would have expired.
func (s *Service) Logout(
	ctx context.Context,
	refreshToken string,
	claims *middleware.AccessTokenClaims,
) error {
	if claims == nil {
		return fmt.Errorf("logout: %w", core.ErrUnauthorized)
	}

	if refreshToken != "" {
		stored, err := s.repo.FindByHash(ctx, core.HashToken(refreshToken))
		switch {
		case errors.Is(err, core.ErrNotFound):
		case err != nil:
			return fmt.Errorf("find token: %w", err)
		case stored.UserID != claims.UserID:
			return fmt.Errorf("logout: %w", core.ErrInvalidInput)
		default:
			if err := s.repo.RevokeByID(ctx, stored.ID); err != nil {
				return err
			}
		}
	}

	return s.revokeAccessToken(ctx, claims)
}

func (s *Service) LogoutAll(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	if claims == nil {
		return fmt.Errorf("logout all: %w", core.ErrUnauthorized)
	}

	if err := s.repo.RevokeAllForUser(ctx, claims.UserID); err != nil {
		return err
	}

	return s.revokeAccessToken(ctx, claims)
}

func (s *Service) revokeAccessToken(
	ctx context.Context,
	claims *middleware.AccessTokenClaims,
) error {
	if s.blacklist == nil || claims.JTI == "" {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	return s.blacklist.Add(ctx, claims.JTI, ttl)
}

// IsAccessTokenBlacklisted satisfies middleware.RevocationChecker.
func (s *Service) IsAccessTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	if s.blacklist == nil {
		return false, nil
	}
	return s.blacklist.Contains(ctx, jti)
}

func (s *Service) Me(ctx context.Context, userID string) (*PrincipalResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("me: %w", core.ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toPrincipalResponse(user)
	return &resp, nil
}

// PurgeExpired drops refresh tokens that expired more than a day before now.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().Add(-24*time.Hour))
}

func (s *Service) issue(
	ctx context.Context,
	user *UserInfo,
	familyID string,
) (*AuthResponse, error) {
	access, err := s.jwt.CreateAccessToken(user.ID, user.Role, user.Tier)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	token, data, err := s.newRefreshToken(user.ID, familyID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return s.response(user, access, data), nil
}

func (s *Service) newRefreshToken(
	userID, familyID string,
) (*RefreshToken, *refreshTokenData, error) {
	data, err := s.jwt.newRefreshToken(familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("create refresh token: %w", err)
	}

	return &RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: data.Hash,
		FamilyID:  data.FamilyID,
		ExpiresAt: data.ExpiresAt,
	}, data, nil
}

func (s *Service) response(
	user *UserInfo,
	access *AccessToken,
	refresh *refreshTokenData,
) *AuthResponse {
	return &AuthResponse{
		User: toPrincipalResponse(user),
		Tokens: TokenResponse{
			AccessToken:  access.Token,
			RefreshToken: refresh.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(access.ExpiresAt.Sub(s.now()).Seconds()),
			ExpiresAt:    access.ExpiresAt,
		},
	}
}

func toPrincipalResponse(u *UserInfo) PrincipalResponse {
	return PrincipalResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		Tier:      u.Tier,
	}
}
