package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/data/pgxutil"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// CloseBillRepo reads billing lines for reporting. Writes happen inside the
// routing transaction through RoutingStore.UpsertBills.
type CloseBillRepo struct {
	DB *sql.DB
}

// NewCloseBillRepo creates a new CloseBillRepo.
func NewCloseBillRepo(db *sql.DB) *CloseBillRepo {
	return &CloseBillRepo{DB: db}
}

const closeBillListQuery = `
	SELECT id, job_id, name, bill_type, type_counting, jumping_ratio, image,
	       measurement, is_created, created_by, updated_by, created_at, updated_at
	FROM close_bills
	WHERE job_id = $1
	ORDER BY created_at`

// ListBills retrieves every billing line of a job, oldest first.
func (r *CloseBillRepo) ListBills(ctx context.Context, jobID string) ([]*model.CloseBill, error) {
	var rowsOut []model.CloseBill
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, closeBillListQuery, jobID)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.CloseBill])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list close bills: %w", apperrors.MapDBError(err))
	}

	res := make([]*model.CloseBill, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}
