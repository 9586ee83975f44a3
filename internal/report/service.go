// AngelaMos | 2026
// service.go

package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/metrics"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

type Service struct {
	repo                Repository
	roles               middleware.RoleLookup
	allowAfterDismissal bool
	logger              *slog.Logger
}

// NewService builds the report service. Resolution is limited to callers
// whose stored role in roles is admin. allowAfterDismissal decides whether a
// reporter may file again against a target after an admin dismissed their
// earlier report.
func NewService(
	repo Repository,
	roles middleware.RoleLookup,
	allowAfterDismissal bool,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:                repo,
		roles:               roles,
		allowAfterDismissal: allowAfterDismissal,
		logger:              logger,
	}
}

func (s *Service) File(ctx context.Context, req FileReportRequest) (*forum.Report, error) {
	reporterID := middleware.GetUserID(ctx)
	if reporterID == "" {
		return nil, fmt.Errorf("file report: %w", core.ErrUnauthorized)
	}
	if req.ReporterID != "" && req.ReporterID != reporterID {
		return nil, fmt.Errorf("file report: reporterId does not match caller: %w", core.ErrInvalidInput)
	}

	exists, err := s.repo.TargetExists(ctx, req.TargetType, req.TargetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("file report: %s %s: %w", req.TargetType, req.TargetID, core.ErrNotFound)
	}

	if !s.allowAfterDismissal {
		dismissed, err := s.repo.HasDismissed(ctx, reporterID, req.TargetType, req.TargetID)
		if err != nil {
			return nil, err
		}
		if dismissed {
			metrics.ReportsFiledTotal.WithLabelValues(req.TargetType, "duplicate").Inc()
			return nil, fmt.Errorf("file report: previously dismissed: %w", core.ErrDuplicateReport)
		}
	}

	rep := &forum.Report{
		ID:         uuid.New().String(),
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ReporterID: reporterID,
		ReasonCode: req.ReasonCode,
		Status:     forum.ReportOpen,
	}

	if err := s.repo.Create(ctx, rep); err != nil {
		if errors.Is(err, core.ErrDuplicateReport) {
			metrics.ReportsFiledTotal.WithLabelValues(req.TargetType, "duplicate").Inc()
		}
		return nil, err
	}

	metrics.ReportsFiledTotal.WithLabelValues(req.TargetType, "created").Inc()
	core.AddSpanEvent(ctx, "report.filed",
		attribute.String("report.id", rep.ID),
		attribute.String("report.target_type", rep.TargetType),
	)

	return rep, nil
}

func (s *Service) Get(ctx context.Context, id string) (*forum.Report, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]forum.Report, int, error) {
	return s.repo.List(ctx, params)
}

// TakeAction deletes the reported content, if still present, and marks the
// report actioned.
func (s *Service) TakeAction(ctx context.Context, id string) (*Resolution, error) {
	return s.resolve(ctx, id, forum.ReportActioned)
}

// Dismiss closes the report and leaves the content alone.
func (s *Service) Dismiss(ctx context.Context, id string) (*Resolution, error) {
	return s.resolve(ctx, id, forum.ReportDismissed)
}

func (s *Service) resolve(ctx context.Context, id, status string) (*Resolution, error) {
	ctx, span := core.StartSpan(ctx, "report.resolve", attribute.String("report.id", id))
	defer span.End()

	resolverID := middleware.GetUserID(ctx)
	admin, err := middleware.IsCurrentAdmin(ctx, s.roles)
	if err != nil {
		return nil, fmt.Errorf("resolve report: %w", err)
	}
	if !admin {
		return nil, fmt.Errorf("resolve report: %w", core.ErrForbidden)
	}

	res, err := s.repo.Resolve(ctx, id, resolverID, status)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	metrics.ReportsResolvedTotal.WithLabelValues(res.Report.TargetType, status).Inc()
	core.AddSpanEvent(ctx, "report.resolved",
		attribute.String("report.id", id),
		attribute.String("report.status", status),
		attribute.Bool("report.content_deleted", res.ContentDeleted),
	)

	s.logger.Info("report resolved",
		"report_id", id,
		"status", status,
		"target_type", res.Report.TargetType,
		"target_id", res.Report.TargetID,
		"content_deleted", res.ContentDeleted,
		"siblings_closed", res.SiblingsClosed,
		"actor_id", resolverID,
	)

	return res, nil
}

func (s *Service) CountOpen(ctx context.Context) (OpenCounts, error) {
	return s.repo.CountOpen(ctx)
}
