// AngelaMos | 2026
// service_test.go

package report

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

// memRepo keeps the same rules the SQL repository enforces: one open report
// per reporter and target, and actioning closes every open sibling.
type memRepo struct {
	mu      sync.Mutex
	reports map[string]*forum.Report
	targets map[string]bool
	order   []string
}

func newMemRepo(targets ...string) *memRepo {
	m := &memRepo{reports: make(map[string]*forum.Report), targets: make(map[string]bool)}
	for _, t := range targets {
		m.targets[t] = true
	}
	return m
}

func targetKey(targetType, targetID string) string {
	return targetType + ":" + targetID
}

func (m *memRepo) Create(ctx context.Context, r *forum.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.reports {
		if existing.IsOpen() &&
			existing.ReporterID == r.ReporterID &&
			existing.TargetType == r.TargetType &&
			existing.TargetID == r.TargetID {
			return fmt.Errorf("create report: %w", core.ErrDuplicateReport)
		}
	}

	cp := *r
	m.reports[r.ID] = &cp
	m.order = append(m.order, r.ID)
	return nil
}

func (m *memRepo) TargetExists(ctx context.Context, targetType, targetID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targets[targetKey(targetType, targetID)], nil
}

func (m *memRepo) HasDismissed(ctx context.Context, reporterID, targetType, targetID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.Status == forum.ReportDismissed &&
			r.ReporterID == reporterID &&
			r.TargetType == targetType &&
			r.TargetID == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*forum.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("get report: %w", core.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) List(ctx context.Context, params ListParams) ([]forum.Report, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []forum.Report
	for _, id := range m.order {
		r := m.reports[id]
		if params.Status != "" && r.Status != params.Status {
			continue
		}
		if params.TargetType != "" && r.TargetType != params.TargetType {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *memRepo) Resolve(ctx context.Context, id, resolverID, status string) (*Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("resolve report: %w", core.ErrNotFound)
	}
	if !r.IsOpen() {
		return nil, fmt.Errorf("resolve report: %w", core.ErrReportClosed)
	}

	res := &Resolution{}
	if status == forum.ReportActioned {
		key := targetKey(r.TargetType, r.TargetID)
		res.ContentDeleted = m.targets[key]
		delete(m.targets, key)

		for _, other := range m.reports {
			if other.ID != id && other.IsOpen() &&
				other.TargetType == r.TargetType && other.TargetID == r.TargetID {
				other.Status = forum.ReportActioned
				res.SiblingsClosed++
			}
		}
	}

	r.Status = status
	r.ResolvedBy = &resolverID
	res.Report = *r
	return res, nil
}

func (m *memRepo) CountOpen(ctx context.Context) (OpenCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := OpenCounts{}
	for _, r := range m.reports {
		if r.IsOpen() {
			counts[r.TargetType]++
		}
	}
	return counts, nil
}

const (
	reporterID = "11111111-1111-1111-1111-111111111111"
	secondID   = "22222222-2222-2222-2222-222222222222"
	adminID    = "33333333-3333-3333-3333-333333333333"
	postID     = "44444444-4444-4444-4444-444444444444"
	commentID  = "55555555-5555-5555-5555-555555555555"
	promotedID = "66666666-6666-6666-6666-666666666666"
)

type roleMap map[string]string

func (r roleMap) CurrentRole(ctx context.Context, userID string) (string, error) {
	role, ok := r[userID]
	if !ok {
		return "", core.ErrNotFound
	}
	return role, nil
}

var roles = roleMap{
	reporterID: forum.RoleMember,
	secondID:   forum.RoleMember,
	adminID:    forum.RoleAdmin,
	promotedID: forum.RoleAdmin,
}

func as(id string) context.Context {
	return middleware.WithPrincipal(context.Background(), id, forum.RoleMember, forum.TierStandard)
}

func asAdmin() context.Context {
	return middleware.WithPrincipal(context.Background(), adminID, forum.RoleAdmin, forum.TierStandard)
}

func spam(targetType, targetID string) FileReportRequest {
	return FileReportRequest{TargetType: targetType, TargetID: targetID, ReasonCode: forum.ReasonSpam}
}

func newRepoWithTargets() *memRepo {
	return newMemRepo(targetKey(forum.TargetPost, postID), targetKey(forum.TargetComment, commentID))
}

func TestFileCreatesOpenReport(t *testing.T) {
	svc := NewService(newRepoWithTargets(), roles, true, nil)

	rep, err := svc.File(as(reporterID), spam(forum.TargetPost, postID))
	require.NoError(t, err)

	assert.Equal(t, forum.ReportOpen, rep.Status)
	assert.Equal(t, reporterID, rep.ReporterID)
	assert.NotEmpty(t, rep.ID)
}

func TestFileDuplicateOpenReport(t *testing.T) {
	svc := NewService(newRepoWithTargets(), roles, true, nil)

	_, err := svc.File(as(reporterID), spam(forum.TargetPost, postID))
	require.NoError(t, err)

	_, err = svc.File(as(reporterID), spam(forum.TargetPost, postID))
	assert.ErrorIs(t, err, core.ErrDuplicateReport)

	_, err = svc.File(as(secondID), spam(forum.TargetPost, postID))
	assert.NoError(t, err)
}

func TestFileRejectsForeignReporterID(t *testing.T) {
	svc := NewService(newRepoWithTargets(), roles, true, nil)

	req := spam(forum.TargetPost, postID)
	req.ReporterID = secondID

	_, err := svc.File(as(reporterID), req)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestFileMissingTarget(t *testing.T) {
	svc := NewService(newMemRepo(), roles, true, nil)

	_, err := svc.File(as(reporterID), spam(forum.TargetComment, commentID))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFileAfterDismissal(t *testing.T) {
	for _, allow := range []bool{true, false} {
		t.Run(fmt.Sprintf("allow=%t", allow), func(t *testing.T) {
			svc := NewService(newRepoWithTargets(), roles, allow, nil)

			rep, err := svc.File(as(reporterID), spam(forum.TargetPost, postID))
			require.NoError(t, err)

			_, err = svc.Dismiss(asAdmin(), rep.ID)
			require.NoError(t, err)

			_, err = svc.File(as(reporterID), spam(forum.TargetPost, postID))
			if allow {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrDuplicateReport)
			}
		})
	}
}

func TestTakeActionClosesSiblings(t *testing.T) {
	repo := newRepoWithTargets()
	svc := NewService(repo, roles, true, nil)

	first, err := svc.File(as(reporterID), spam(forum.TargetPost, postID))
	require.NoError(t, err)
	_, err = svc.File(as(secondID), spam(forum.TargetPost, postID))
	require.NoError(t, err)

	res, err := svc.TakeAction(asAdmin(), first.ID)
	require.NoError(t, err)

	assert.True(t, res.ContentDeleted)
	assert.Equal(t, 1, res.SiblingsClosed)
	assert.Equal(t, forum.ReportActioned, res.Report.Status)
	require.NotNil(t, res.Report.ResolvedBy)
	assert.Equal(t, adminID, *res.Report.ResolvedBy)

	counts, err := svc.CountOpen(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts[forum.TargetPost])
}

func TestResolveClosedReport(t *testing.T) {
	svc := NewService(newRepoWithTargets(), roles, true, nil)

	rep, err := svc.File(as(reporterID), spam(forum.TargetComment, commentID))
	require.NoError(t, err)

	_, err = svc.Dismiss(asAdmin(), rep.ID)
	require.NoError(t, err)

	_, err = svc.TakeAction(asAdmin(), rep.ID)
	assert.ErrorIs(t, err, core.ErrReportClosed)

	_, err = svc.Dismiss(asAdmin(), rep.ID)
	assert.ErrorIs(t, err, core.ErrReportClosed)
}

func TestResolveRequiresAdmin(t *testing.T) {
	svc := NewService(newRepoWithTargets(), roles, true, nil)

	rep, err := svc.File(as(reporterID), spam(forum.TargetPost, postID))
	require.NoError(t, err)

	_, err = svc.TakeAction(as(secondID), rep.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	got, err := svc.Get(asAdmin(), rep.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOpen())
}

func TestListParamsNormalize(t *testing.T) {
	p := ListParams{Page: 0, PageSize: 500}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 200, p.PageSize)
	assert.Zero(t, p.Offset())

	p = ListParams{Page: 3}
	p.Normalize()
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 100, p.Offset())
}

func TestResolveUsesStoredRole(t *testing.T) {
	svc := NewService(newRepoWithTargets(), roles, true, nil)

	rep, err := svc.File(as(reporterID), spam(forum.TargetPost, postID))
	require.NoError(t, err)

	// token still says admin; storage says member
	stale := middleware.WithPrincipal(context.Background(), secondID, forum.RoleAdmin, forum.TierStandard)
	_, err = svc.Dismiss(stale, rep.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	// token still says member; storage says admin
	res, err := svc.Dismiss(as(promotedID), rep.ID)
	require.NoError(t, err)
	assert.Equal(t, forum.ReportDismissed, res.Report.Status)
}
