// AngelaMos | 2026
// pipeline.go

// Package moderation files reports and lets admins resolve them.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

type Session interface {
	CurrentPrincipal() *forum.Principal
}

type RoleSource interface {
	RoleOf(ctx context.Context, p *forum.Principal) (forum.RoleRecord, error)
}

type Policy struct {
	// ReReportAfterDismissal lets a reporter file again against a target
	// once their earlier report was dismissed.
	ReReportAfterDismissal bool
}

func DefaultPolicy() Policy {
	return Policy{ReReportAfterDismissal: true}
}

type targetKey struct {
	reporterID string
	targetType string
	targetID   string
}

const statusPending = "pending"

type filed struct {
	reportID string
	status   string
}

// Pipeline remembers the reports filed in this session so a repeated filing
// is refused before it reaches the API. The API enforces the same rule
// across sessions.
type Pipeline struct {
	api     API
	session Session
	roles   RoleSource
	policy  Policy

	mu    sync.Mutex
	filed map[targetKey]filed
}

func New(api API, session Session, roles RoleSource, policy Policy) *Pipeline {
	return &Pipeline{
		api:     api,
		session: session,
		roles:   roles,
		policy:  policy,
		filed:   make(map[targetKey]filed),
	}
}

func (p *Pipeline) FileReport(
	ctx context.Context,
	targetType, targetID, reasonCode string,
) (*forum.Report, error) {
	reporter := p.session.CurrentPrincipal()
	if reporter == nil {
		return nil, forum.ErrUnauthenticated
	}
	if !forum.ValidTargetType(targetType) {
		return nil, fmt.Errorf("target type %q: %w", targetType, forum.ErrInvalidInput)
	}

	key := targetKey{reporterID: reporter.ID, targetType: targetType, targetID: targetID}
	if err := p.reserve(key); err != nil {
		return nil, err
	}

	body := map[string]string{
		"targetType": targetType,
		"targetId":   targetID,
		"reasonCode": reasonCode,
		"reporterId": reporter.ID,
	}

	var rep forum.Report
	err := p.api.Post(ctx, "/reports", body, &rep)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case err == nil:
		p.filed[key] = filed{reportID: rep.ID, status: rep.Status}
		return &rep, nil
	case errors.Is(err, forum.ErrDuplicateReport):
		p.filed[key] = filed{status: forum.ReportOpen}
		return nil, fmt.Errorf("file report: %w", err)
	default:
		delete(p.filed, key)
		return nil, fmt.Errorf("file report: %w", err)
	}
}

// reserve claims key for an in-flight filing, or explains why it cannot.
func (p *Pipeline) reserve(key targetKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, ok := p.filed[key]
	if ok {
		switch prev.status {
		case forum.ReportOpen, statusPending:
			return fmt.Errorf("%s %s: %w", key.targetType, key.targetID, forum.ErrDuplicateReport)
		case forum.ReportDismissed:
			if !p.policy.ReReportAfterDismissal {
				return fmt.Errorf("%s %s: dismissed earlier: %w",
					key.targetType, key.targetID, forum.ErrDuplicateReport)
			}
		}
	}

	p.filed[key] = filed{status: statusPending}
	return nil
}

// TakeAction deletes the reported content and closes the report. Content
// that is already gone counts as resolved.
func (p *Pipeline) TakeAction(ctx context.Context, reportID string) error {
	if err := p.requireAdmin(ctx); err != nil {
		return err
	}

	rep, err := p.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if !rep.IsOpen() {
		return fmt.Errorf("report %s is %s: %w", reportID, rep.Status, forum.ErrReportClosed)
	}

	targetPath, err := contentPath(rep.TargetType, rep.TargetID)
	if err != nil {
		return err
	}

	if err := p.api.Delete(ctx, targetPath, nil); err != nil && !errors.Is(err, forum.ErrNotFound) {
		return fmt.Errorf("take action on %s: %w", reportID, err)
	}

	if err := p.api.Delete(ctx, "/reports/"+url.PathEscape(reportID), nil); err != nil {
		return fmt.Errorf("take action on %s: %w", reportID, err)
	}

	p.markResolved(rep, forum.ReportActioned)
	return nil
}

func (p *Pipeline) Dismiss(ctx context.Context, reportID string) error {
	if err := p.requireAdmin(ctx); err != nil {
		return err
	}

	var res struct {
		Report forum.Report `json:"report"`
	}
	path := "/reports/" + url.PathEscape(reportID) + "/dismiss"
	if err := p.api.Patch(ctx, path, nil, &res); err != nil {
		return fmt.Errorf("dismiss %s: %w", reportID, err)
	}

	p.markResolved(&res.Report, forum.ReportDismissed)
	return nil
}

func (p *Pipeline) Get(ctx context.Context, reportID string) (*forum.Report, error) {
	if err := p.requireAdmin(ctx); err != nil {
		return nil, err
	}

	var rep forum.Report
	if err := p.api.Get(ctx, "/reports/"+url.PathEscape(reportID), &rep); err != nil {
		return nil, fmt.Errorf("get report %s: %w", reportID, err)
	}
	return &rep, nil
}

// listPageSize is the largest page the reports endpoint serves.
const listPageSize = 200

// List returns every report matching the filters for the review view,
// walking the API's pages until a short one. Empty filters match
// everything. A report that shifts pages while the walk runs is returned
// once.
func (p *Pipeline) List(ctx context.Context, targetType, status string) ([]forum.Report, error) {
	if err := p.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if targetType != "" && !forum.ValidTargetType(targetType) {
		return nil, fmt.Errorf("target type %q: %w", targetType, forum.ErrInvalidInput)
	}

	q := url.Values{}
	if targetType != "" {
		q.Set("targetType", targetType)
	}
	if status != "" {
		q.Set("status", status)
	}
	q.Set("pageSize", strconv.Itoa(listPageSize))

	var all []forum.Report
	seen := make(map[string]bool)
	for page := 1; ; page++ {
		q.Set("page", strconv.Itoa(page))

		var batch []forum.Report
		if err := p.api.Get(ctx, "/reports?"+q.Encode(), &batch); err != nil {
			return nil, fmt.Errorf("list reports page %d: %w", page, err)
		}

		for _, rep := range batch {
			if !seen[rep.ID] {
				seen[rep.ID] = true
				all = append(all, rep)
			}
		}
		if len(batch) < listPageSize {
			return all, nil
		}
	}
}

func (p *Pipeline) requireAdmin(ctx context.Context) error {
	principal := p.session.CurrentPrincipal()
	if principal == nil {
		return forum.ErrUnauthenticated
	}

	rec, err := p.roles.RoleOf(ctx, principal)
	if err != nil {
		return errors.Join(forum.ErrUnauthorized, err)
	}
	if !rec.IsAdmin() {
		return forum.ErrUnauthorized
	}
	return nil
}

// markResolved updates any session entry pointing at rep.
func (p *Pipeline) markResolved(rep *forum.Report, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, f := range p.filed {
		if f.reportID != "" && f.reportID == rep.ID {
			p.filed[key] = filed{reportID: f.reportID, status: status}
		}
	}
}

func contentPath(targetType, targetID string) (string, error) {
	switch targetType {
	case forum.TargetPost:
		return "/posts/" + url.PathEscape(targetID), nil
	case forum.TargetComment:
		return "/comments/" + url.PathEscape(targetID), nil
	}
	return "", fmt.Errorf("target type %q: %w", targetType, forum.ErrInvalidInput)
}
