package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/data/database"
	"github.com/fieldops/workorder-api/internal/data/pgxutil"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// ReturnCaseRepo lists pending return cases for resolvers.
type ReturnCaseRepo struct {
	DB *sql.DB
}

var _ core.ReturnCaseReader = (*ReturnCaseRepo)(nil)

// NewReturnCaseRepo creates a new ReturnCaseRepo.
func NewReturnCaseRepo(db *sql.DB) *ReturnCaseRepo {
	return &ReturnCaseRepo{DB: db}
}

// ListReturnCases retrieves pending cases, newest first. When a resolver id
// is given, only cases naming that user in return_to are included.
func (r *ReturnCaseRepo) ListReturnCases(
	ctx context.Context,
	opts model.ReturnCaseListOptions,
) ([]*model.ReturnCase, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(opts.Offset, 0)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(
			"id", "assignment_id", "duplicate_assignment_id", "reason",
			"comment", "group_id", "return_to", "created_by", "created_at",
		),
		database.WithOrderBy("created_at", sortDirDesc),
		database.WithLimit(limit),
		database.WithOffset(offset),
	}
	if opts.ResolverID != "" {
		queryOpts = append(queryOpts, database.WithCondition(
			database.WhereRawCond("$1::uuid = ANY(return_to)", opts.ResolverID)))
	}
	query, args := database.BuildListQuery(
		database.NewListQueryOptions("return_cases", queryOpts...))

	var rowsOut []model.ReturnCase
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.ReturnCase])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list return cases: %w", apperrors.MapDBError(err))
	}

	res := make([]*model.ReturnCase, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}
