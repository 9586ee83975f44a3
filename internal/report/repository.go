// AngelaMos | 2026
// repository.go

package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type Repository interface {
	Create(ctx context.Context, r *forum.Report) error
	TargetExists(ctx context.Context, targetType, targetID string) (bool, error)
	HasDismissed(ctx context.Context, reporterID, targetType, targetID string) (bool, error)
	GetByID(ctx context.Context, id string) (*forum.Report, error)
	List(ctx context.Context, params ListParams) ([]forum.Report, int, error)
	// Resolve closes an open report with status. Actioning also deletes the
	// target if it still exists and closes every other open report on it.
	Resolve(ctx context.Context, id, resolverID, status string) (*Resolution, error)
	CountOpen(ctx context.Context) (OpenCounts, error)
}

type repository struct {
	db core.DBTX
	tx core.TxRunner
}

func NewRepository(db core.DBTX, tx core.TxRunner) Repository {
	return &repository{db: db, tx: tx}
}

const reportColumns = `id, target_type, target_id, reporter_id, reason_code,
	status, created_at, resolved_at, resolved_by`

func targetTable(targetType string) (string, error) {
	switch targetType {
	case forum.TargetPost:
		return "posts", nil
	case forum.TargetComment:
		return "comments", nil
	}
	return "", fmt.Errorf("target type %q: %w", targetType, core.ErrInvalidInput)
}

func (r *repository) Create(ctx context.Context, rep *forum.Report) error {
	query := `
		INSERT INTO reports (id, target_type, target_id, reporter_id, reason_code, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &rep.CreatedAt, query,
		rep.ID,
		rep.TargetType,
		rep.TargetID,
		rep.ReporterID,
		rep.ReasonCode,
		rep.Status,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create report: %w", core.ErrDuplicateReport)
		}
		return fmt.Errorf("create report: %w", err)
	}

	return nil
}

func (r *repository) TargetExists(ctx context.Context, targetType, targetID string) (bool, error) {
	table, err := targetTable(targetType)
	if err != nil {
		return false, err
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, targetID); err != nil {
		return false, fmt.Errorf("check report target: %w", err)
	}

	return exists, nil
}

func (r *repository) HasDismissed(
	ctx context.Context,
	reporterID, targetType, targetID string,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reports
			WHERE reporter_id = $1 AND target_type = $2 AND target_id = $3
			  AND status = $4
		)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query,
		reporterID, targetType, targetID, forum.ReportDismissed)
	if err != nil {
		return false, fmt.Errorf("check dismissed reports: %w", err)
	}

	return exists, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*forum.Report, error) {
	return getReport(ctx, r.db, id, false)
}

func getReport(ctx context.Context, db core.DBTX, id string, lock bool) (*forum.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var row reportRow
	err := db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get report: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	rep := row.toReport()
	return &rep, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]forum.Report, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.TargetType != "" {
		conditions = append(conditions, fmt.Sprintf("target_type = $%d", argIdx))
		args = append(args, params.TargetType)
		argIdx++
	}

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reports"+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	query := `SELECT ` + reportColumns + ` FROM reports` + whereClause + fmt.Sprintf(
		" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.PageSize, params.Offset())

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	reports := make([]forum.Report, 0, len(rows))
	for i := range rows {
		reports = append(reports, rows[i].toReport())
	}

	return reports, total, nil
}

func (r *repository) Resolve(
	ctx context.Context,
	id, resolverID, status string,
) (*Resolution, error) {
	var res *Resolution

	err := r.tx.InTx(ctx, func(tx core.DBTX) error {
		rep, err := getReport(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !rep.IsOpen() {
			return fmt.Errorf("resolve report %s: %w", id, core.ErrReportClosed)
		}

		res = &Resolution{}

		if status == forum.ReportActioned {
			res.ContentDeleted, err = deleteTarget(ctx, tx, rep.TargetType, rep.TargetID)
			if err != nil {
				return err
			}

			closed, err := closeSiblings(ctx, tx, rep, resolverID)
			if err != nil {
				return err
			}
			res.SiblingsClosed = closed
		}

		var row reportRow
		err = tx.GetContext(ctx, &row, `
			UPDATE reports
			SET status = $2, resolved_at = NOW(), resolved_by = $3
			WHERE id = $1
			RETURNING `+reportColumns,
			id, status, resolverID,
		)
		if err != nil {
			return fmt.Errorf("resolve report: %w", err)
		}

		res.Report = row.toReport()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// deleteTarget reports false when the content was already gone.
func deleteTarget(ctx context.Context, tx core.DBTX, targetType, targetID string) (bool, error) {
	table, err := targetTable(targetType)
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, targetID)
	if err != nil {
		return false, fmt.Errorf("delete reported %s: %w", targetType, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reported %s: %w", targetType, err)
	}

	return rows > 0, nil
}

func closeSiblings(ctx context.Context, tx core.DBTX, rep *forum.Report, resolverID string) (int, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE reports
		SET status = $1, resolved_at = NOW(), resolved_by = $2
		WHERE target_type = $3 AND target_id = $4 AND status = $5 AND id <> $6`,
		forum.ReportActioned, resolverID,
		rep.TargetType, rep.TargetID, forum.ReportOpen, rep.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("close sibling reports: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close sibling reports: %w", err)
	}

	return int(rows), nil
}

func (r *repository) CountOpen(ctx context.Context) (OpenCounts, error) {
	var rows []struct {
		TargetType string `db:"target_type"`
		Count      int    `db:"count"`
	}

	query := `
		SELECT target_type, COUNT(*) AS count
		FROM reports
		WHERE status = $1
		GROUP BY target_type`

	if err := r.db.SelectContext(ctx, &rows, query, forum.ReportOpen); err != nil {
		return nil, fmt.Errorf("count open reports: %w", err)
	}

	counts := OpenCounts{forum.TargetPost: 0, forum.TargetComment: 0}
	for _, row := range rows {
		counts[row.TargetType] = row.Count
	}

	return counts, nil
}
