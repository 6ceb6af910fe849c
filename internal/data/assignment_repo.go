package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/data/database"
	"github.com/fieldops/workorder-api/internal/data/pgxutil"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

const (
	sortDirAsc  = "ASC"
	sortDirDesc = "DESC"

	defaultListLimit = 50
)

// AssignmentRepo is the read surface over assignments for list views and
// status reporting. Writes go through RoutingStore.
type AssignmentRepo struct {
	DB *sql.DB
}

var _ core.AssignmentReader = (*AssignmentRepo)(nil)

// NewAssignmentRepo creates a new AssignmentRepo.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{DB: db}
}

// assignmentListColumns returns the column list for assignment-with-job
// queries. Aliases line up with model.AssignmentWithJob.
func assignmentListColumns() []string {
	return []string{
		"a.id", "a.job_id", "a.group_id", "a.status", "a.is_active",
		"a.is_home", "a.is_reviewed", "a.further_inspection",
		"a.further_billing", "a.lock_closed", "a.created_by", "a.updated_by",
		"a.created_at", "a.updated_at",
		"j.job_id AS external_job_id",
		"j.address AS address",
		"j.priority AS job_priority",
		"j.status AS canonical_status",
	}
}

// ListAssignments retrieves assignments joined with their jobs, excluding
// archived groups.
func (r *AssignmentRepo) ListAssignments(
	ctx context.Context,
	opts model.AssignmentListOptions,
) ([]*model.AssignmentWithJob, error) {
	query, args := database.BuildListQuery(r.buildListOptions(opts, false))

	var rowsOut []model.AssignmentWithJob
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.AssignmentWithJob])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", apperrors.MapDBError(err))
	}

	res := make([]*model.AssignmentWithJob, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// StatusCounts returns per-status counts over the matching active
// assignments. Returned jobs are counted only on their home row so a
// returned duplicate does not double-count.
func (r *AssignmentRepo) StatusCounts(
	ctx context.Context,
	opts model.AssignmentListOptions,
) (*model.JobStatusCounts, error) {
	conditions := []string{"g.archived = FALSE", "a.is_active = TRUE"}
	args := []any{}
	if opts.GroupID != nil && *opts.GroupID != "" {
		args = append(args, *opts.GroupID)
		conditions = append(conditions, fmt.Sprintf("a.group_id = $%d", len(args)))
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE a.status = 'open') AS "open",
			COUNT(*) FILTER (WHERE a.status = 'partial') AS "partial",
			COUNT(*) FILTER (WHERE a.status = 'return' AND a.is_home) AS "return",
			COUNT(*) FILTER (WHERE a.status = 'transfer') AS "transfer"
		FROM assignments a
		JOIN groups g ON g.id = a.group_id
		WHERE ` + strings.Join(conditions, " AND ")

	var out model.JobStatusCounts
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobStatusCounts])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to count assignment statuses: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

func (r *AssignmentRepo) buildListOptions(
	opts model.AssignmentListOptions,
	countOnly bool,
) *database.ListQueryOptions {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithTableAlias("a"),
		database.WithJoin("JOIN jobs j ON j.id = a.job_id"),
		database.WithJoin("JOIN groups g ON g.id = a.group_id"),
		database.WithCondition(database.WhereCond("g.archived", database.Equal, false)),
	}
	if countOnly {
		queryOpts = append(queryOpts, database.WithCountOnly())
	} else {
		queryOpts = append(queryOpts,
			database.WithColumns(assignmentListColumns()...),
			database.WithLimit(limit),
			database.WithOffset(offset),
		)
	}

	if opts.GroupID != nil && *opts.GroupID != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("a.group_id", database.Equal, *opts.GroupID)))
	}
	if opts.Status != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("a.status", database.Equal, *opts.Status)))
	}
	if opts.ActiveOnly {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("a.is_active", database.Equal, true)))
	}
	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		term := "%" + strings.TrimSpace(*opts.Search) + "%"
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereRawCond("(j.job_id ILIKE $1 OR j.address ILIKE $1)", term)))
	}
	if opts.From != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("a.created_at", database.GreaterThanOrEqual, *opts.From)))
	}
	if opts.To != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("a.created_at", database.LessThanOrEqual, *opts.To)))
	}
	if opts.ClosedFrom != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("j.closed_at", database.GreaterThanOrEqual, *opts.ClosedFrom)))
	}
	if opts.ClosedTo != nil {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereCond("j.closed_at", database.LessThanOrEqual, *opts.ClosedTo)))
	}

	if !countOnly {
		sortCol := "a.created_at"
		if opts.ClosedFrom != nil || opts.ClosedTo != nil {
			sortCol = "j.closed_at"
		}
		sortDir := sortDirDesc
		if opts.SortAsc {
			sortDir = sortDirAsc
		}
		queryOpts = append(queryOpts, database.WithOrderBy(sortCol, sortDir))
	}

	return database.NewListQueryOptions("assignments", queryOpts...)
}
