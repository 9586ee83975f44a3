// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/config"
	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*RefreshToken
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: make(map[string]*RefreshToken)}
}

func (m *memTokens) Create(ctx context.Context, token *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *token
	m.tokens[token.ID] = &cp
	return nil
}

func (m *memTokens) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memTokens) Rotate(ctx context.Context, oldID string, next *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.tokens[oldID]
	if !ok || old.RotatedAt != nil || old.RevokedAt != nil {
		return core.ErrTokenRevoked
	}
	now := time.Now()
	old.RotatedAt = &now
	old.ReplacedByID = &next.ID
	cp := *next
	m.tokens[next.ID] = &cp
	return nil
}

func (m *memTokens) revokeWhere(match func(*RefreshToken) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range m.tokens {
		if match(t) && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
}

func (m *memTokens) RevokeByID(ctx context.Context, id string) error {
	m.revokeWhere(func(t *RefreshToken) bool { return t.ID == id })
	return nil
}

func (m *memTokens) RevokeFamily(ctx context.Context, familyID string) error {
	m.revokeWhere(func(t *RefreshToken) bool { return t.FamilyID == familyID })
	return nil
}

func (m *memTokens) RevokeAllForUser(ctx context.Context, userID string) error {
	m.revokeWhere(func(t *RefreshToken) bool { return t.UserID == userID })
	return nil
}

func (m *memTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(ctx context.Context, nu NewUser) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(nu.Email)
	for _, u := range m.users {
		if u.Email == email {
			return nil, core.ErrDuplicateKey
		}
	}
	u := &UserInfo{
		ID:           "u-" + email,
		Email:        email,
		Name:         nu.Name,
		PasswordHash: nu.PasswordHash,
		Role:         forum.RoleMember,
		Tier:         forum.TierStandard,
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *memUsers) setTier(id, tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Tier = tier
}

type memBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
}

func (b *memBlacklist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = ttl
	return nil
}

func (b *memBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.jtis[jti]
	return ok, nil
}

var testJWTConfig = config.JWTConfig{
	AccessTokenExpire:  15 * time.Minute,
	RefreshTokenExpire: 7 * 24 * time.Hour,
	Issuer:             "forum-test",
	Audience:           "forum-test-api",
}

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()

	privatePEM, _, err := generateKeyPairPEM()
	require.NoError(t, err)

	m, err := newJWTManagerFromPEM(testJWTConfig, privatePEM)
	require.NoError(t, err)
	return m
}

type fixture struct {
	svc       *Service
	jwt       *JWTManager
	tokens    *memTokens
	users     *memUsers
	blacklist *memBlacklist
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		jwt:       newTestJWT(t),
		tokens:    newMemTokens(),
		users:     &memUsers{users: make(map[string]*UserInfo)},
		blacklist: &memBlacklist{jtis: make(map[string]time.Duration)},
	}
	f.svc = NewService(f.tokens, f.jwt, f.users, f.blacklist)
	return f
}

func (f *fixture) register(t *testing.T) *AuthResponse {
	t.Helper()

	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "Member@Example.com",
		Password: "correct-horse-battery",
		Name:     "Member",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	registered := f.register(t)

	assert.Equal(t, "member@example.com", registered.User.Email)
	assert.Equal(t, forum.RoleMember, registered.User.Role)
	assert.Equal(t, "Bearer", registered.Tokens.TokenType)

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "member@example.com",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, resp.User.ID)

	_, err = f.svc.Login(context.Background(), LoginRequest{
		Email:    "member@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "member@example.com",
		Password: "another-password",
		Name:     "Again",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAccessTokenCarriesRoleAndTier(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)

	claims, err := f.jwt.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, forum.RoleMember, claims.Role)
	assert.Equal(t, forum.TierStandard, claims.Tier)
	assert.NotEmpty(t, claims.JTI)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	f := newFixture(t)
	other := newTestJWT(t)

	token, err := other.CreateAccessToken("u-1", forum.RoleAdmin, forum.TierStandard)
	require.NoError(t, err)

	_, err = f.jwt.VerifyAccessToken(context.Background(), token.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestRefreshPicksUpTierChange(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)

	f.users.setTier(resp.User.ID, forum.TierElevated)

	next, err := f.svc.Refresh(context.Background(), resp.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.Tokens.RefreshToken, next.Tokens.RefreshToken)

	claims, err := f.jwt.VerifyAccessToken(context.Background(), next.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, forum.TierElevated, claims.Tier)
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)

	next, err := f.svc.Refresh(context.Background(), resp.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), resp.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReuse)

	_, err = f.svc.Refresh(context.Background(), next.Tokens.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestRefreshUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)

	claims, err := f.jwt.VerifyAccessToken(context.Background(), resp.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), resp.Tokens.RefreshToken, claims))

	revoked, err := f.svc.IsAccessTokenBlacklisted(context.Background(), claims.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, f.blacklist.jtis[claims.JTI] > 0)

	_, err = f.svc.Refresh(context.Background(), resp.Tokens.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestLogoutWithSomeoneElsesRefreshToken(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t)

	other := &middleware.AccessTokenClaims{UserID: "u-other"}
	err := f.svc.Logout(context.Background(), resp.Tokens.RefreshToken, other)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	assert.ErrorIs(t, f.svc.Logout(context.Background(), "", nil), core.ErrUnauthorized)
}
