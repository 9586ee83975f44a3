// AngelaMos | 2026
// resolver_test.go

package roles

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/forumtest"
)

const memberPath = "/users/member@example.com"

func memberRecord(tier string) forum.RoleRecord {
	return forum.RoleRecord{PrincipalID: forumtest.Member.ID, Role: forum.RoleMember, Tier: tier}
}

func TestRoleOfCachesPerPrincipal(t *testing.T) {
	api := forumtest.NewAPI().On(http.MethodGet, memberPath, memberRecord(forum.TierStandard), nil)
	r := NewResolver(api, forumtest.NewSession(forumtest.Member), 16, time.Minute)

	for range 3 {
		rec, err := r.RoleOf(context.Background(), forumtest.Member)
		require.NoError(t, err)
		assert.Equal(t, forum.RoleMember, rec.Role)
	}

	assert.Equal(t, 1, api.Count(http.MethodGet, memberPath))
}

func TestInvalidateRefetches(t *testing.T) {
	api := forumtest.NewAPI().On(http.MethodGet, memberPath, memberRecord(forum.TierStandard), nil)
	r := NewResolver(api, forumtest.NewSession(forumtest.Member), 16, time.Minute)

	rec, err := r.RoleOf(context.Background(), forumtest.Member)
	require.NoError(t, err)
	assert.False(t, rec.IsElevated())

	api.On(http.MethodGet, memberPath, memberRecord(forum.TierElevated), nil)
	r.Invalidate(forumtest.Member.ID)

	rec, err = r.RoleOf(context.Background(), forumtest.Member)
	require.NoError(t, err)
	assert.True(t, rec.IsElevated())
	assert.Equal(t, 2, api.Count(http.MethodGet, memberPath))
}

func TestRoleOfNilPrincipal(t *testing.T) {
	r := NewResolver(forumtest.NewAPI(), forumtest.NewSession(nil), 16, time.Minute)

	_, err := r.RoleOf(context.Background(), nil)
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)
}

func TestRoleOfDoesNotCacheFailures(t *testing.T) {
	boom := errors.New("connection refused")
	api := forumtest.NewAPI().On(http.MethodGet, memberPath, nil, boom)
	r := NewResolver(api, forumtest.NewSession(forumtest.Member), 16, time.Minute)

	_, err := r.RoleOf(context.Background(), forumtest.Member)
	assert.ErrorIs(t, err, boom)

	api.On(http.MethodGet, memberPath, memberRecord(forum.TierStandard), nil)
	_, err = r.RoleOf(context.Background(), forumtest.Member)
	assert.NoError(t, err)
}

func TestRoleOfRejectsMalformedRecords(t *testing.T) {
	cases := map[string]forum.RoleRecord{
		"other principal": {PrincipalID: "u-someone-else", Role: forum.RoleMember, Tier: forum.TierStandard},
		"unknown role":    {PrincipalID: forumtest.Member.ID, Role: "owner", Tier: forum.TierStandard},
		"unknown tier":    {PrincipalID: forumtest.Member.ID, Role: forum.RoleMember, Tier: "gold"},
	}

	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			api := forumtest.NewAPI().On(http.MethodGet, memberPath, rec, nil)
			r := NewResolver(api, forumtest.NewSession(forumtest.Member), 16, time.Minute)

			_, err := r.RoleOf(context.Background(), forumtest.Member)
			assert.Error(t, err)
		})
	}
}

func TestRoleOfFillsMissingPrincipalID(t *testing.T) {
	api := forumtest.NewAPI().On(http.MethodGet, memberPath,
		forum.RoleRecord{Role: forum.RoleAdmin, Tier: forum.TierStandard}, nil)
	r := NewResolver(api, forumtest.NewSession(forumtest.Member), 16, time.Minute)

	rec, err := r.RoleOf(context.Background(), forumtest.Member)
	require.NoError(t, err)
	assert.Equal(t, forumtest.Member.ID, rec.PrincipalID)
	assert.True(t, rec.IsAdmin())
}

func TestCurrentWaitsForSession(t *testing.T) {
	api := forumtest.NewAPI().On(http.MethodGet, memberPath, memberRecord(forum.TierStandard), nil)
	session := forumtest.Resolving()
	r := NewResolver(api, session, 16, time.Minute)

	_, err := r.Current(context.Background())
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)
	assert.Empty(t, api.Calls())

	session.Set(forumtest.Member)

	rec, err := r.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, forumtest.Member.ID, rec.PrincipalID)
}
