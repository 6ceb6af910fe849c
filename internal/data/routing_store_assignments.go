package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// assignmentColumns is the standard column list for assignment queries.
const assignmentColumns = `id, job_id, group_id, status, is_active, is_home,
	is_reviewed, further_inspection, further_billing, lock_closed,
	created_by, updated_by, created_at, updated_at`

// GetAssignment retrieves an assignment by id.
func (s *RoutingStore) GetAssignment(ctx context.Context, tx pgx.Tx, id string) (*model.Assignment, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	a, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Assignment])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("assignment %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return &a, nil
}

// ListJobAssignments returns every assignment of a job, home row first.
func (s *RoutingStore) ListJobAssignments(ctx context.Context, tx pgx.Tx, jobID string) ([]model.Assignment, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE job_id = $1 ORDER BY is_home DESC, created_at`, jobID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Assignment])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// FindAssignment returns the (job, group) assignment or nil when the group
// has never held the job.
func (s *RoutingStore) FindAssignment(ctx context.Context, tx pgx.Tx, jobID, groupID string) (*model.Assignment, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
		 WHERE job_id = $1 AND group_id = $2`, jobID, groupID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	a, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Assignment])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapDBError(err)
	}
	return &a, nil
}

// InsertAssignment inserts a new (job, group) routing record.
func (s *RoutingStore) InsertAssignment(ctx context.Context, tx pgx.Tx, a *model.Assignment) (*model.Assignment, error) {
	now := s.timeProvider.Now().UTC()
	rows, err := tx.Query(ctx, `
		INSERT INTO assignments (
			job_id, group_id, status, is_active, is_home, is_reviewed,
			further_inspection, further_billing, lock_closed,
			created_by, updated_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING `+assignmentColumns,
		a.JobID, a.GroupID, a.Status, a.IsActive, a.IsHome, a.IsReviewed,
		a.FurtherInspection, a.FurtherBilling, a.LockClosed,
		a.CreatedBy, a.UpdatedBy, now,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Assignment])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// UpdateAssignmentState applies the non-nil state changes to one assignment.
func (s *RoutingStore) UpdateAssignmentState(ctx context.Context, tx pgx.Tx, params core.UpdateAssignmentStateParams) error {
	setParts := make([]string, 0, 8)
	args := make([]any, 0, 10)
	add := func(col string, v any) {
		args = append(args, v)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.IsActive != nil {
		add("is_active", *params.IsActive)
	}
	if params.IsHome != nil {
		add("is_home", *params.IsHome)
	}
	if params.IsReviewed != nil {
		add("is_reviewed", *params.IsReviewed)
	}
	if params.FurtherInspection != nil {
		add("further_inspection", *params.FurtherInspection)
	}
	if params.FurtherBilling != nil {
		add("further_billing", *params.FurtherBilling)
	}
	if params.LockClosed != nil {
		add("lock_closed", *params.LockClosed)
	}
	if len(setParts) == 0 {
		return nil
	}
	add("updated_by", params.UpdatedBy)
	add("updated_at", s.timeProvider.Now().UTC())

	args = append(args, params.ID)
	query := "UPDATE assignments SET " + strings.Join(setParts, ", ") +
		fmt.Sprintf(" WHERE id = $%d", len(args))

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundf("assignment %s not found", params.ID)
	}
	return nil
}

// MoveAssignmentGroup repoints an assignment at another group. The unique
// (job_id, group_id) constraint rejects a move onto a group that already
// holds the job.
func (s *RoutingStore) MoveAssignmentGroup(ctx context.Context, tx pgx.Tx, assignmentID, groupID, updatedBy string) error {
	ct, err := tx.Exec(ctx, `
		UPDATE assignments SET group_id = $2, updated_by = $3, updated_at = $4
		WHERE id = $1`,
		assignmentID, groupID, updatedBy, s.timeProvider.Now().UTC())
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundf("assignment %s not found", assignmentID)
	}
	return nil
}

// DeactivateSiblings deactivates every other assignment of the job in one
// bulk update, setting their status. Returns the number of rows touched.
func (s *RoutingStore) DeactivateSiblings(ctx context.Context, tx pgx.Tx, params core.DeactivateSiblingsParams) (int64, error) {
	ct, err := tx.Exec(ctx, `
		UPDATE assignments
		SET status = $3, is_active = FALSE, updated_by = $4, updated_at = $5
		WHERE job_id = $1 AND id != $2`,
		params.JobID, params.KeepAssignmentID, params.Status,
		params.UpdatedBy, s.timeProvider.Now().UTC())
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return ct.RowsAffected(), nil
}

// returnCaseColumns is the standard column list for return case queries.
const returnCaseColumns = `id, assignment_id, duplicate_assignment_id, reason,
	comment, group_id, return_to, created_by, created_at`

// InsertReturnCase records a pending correction request or duplicate flag.
func (s *RoutingStore) InsertReturnCase(ctx context.Context, tx pgx.Tx, rc *model.ReturnCase) (*model.ReturnCase, error) {
	rows, err := tx.Query(ctx, `
		INSERT INTO return_cases (
			assignment_id, duplicate_assignment_id, reason, comment,
			group_id, return_to, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+returnCaseColumns,
		rc.AssignmentID, rc.DuplicateAssignmentID, rc.Reason, rc.Comment,
		rc.GroupID, rc.ReturnTo, rc.CreatedBy, s.timeProvider.Now().UTC(),
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.ReturnCase])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetReturnCase retrieves a pending case by id.
func (s *RoutingStore) GetReturnCase(ctx context.Context, tx pgx.Tx, id string) (*model.ReturnCase, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+returnCaseColumns+` FROM return_cases WHERE id = $1`, id)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	rc, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.ReturnCase])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("return case %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return &rc, nil
}

// DuplicateCaseExists reports whether the duplicate assignment is already
// flagged against the same original.
func (s *RoutingStore) DuplicateCaseExists(ctx context.Context, tx pgx.Tx, assignmentID, duplicateAssignmentID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM return_cases
			WHERE assignment_id = $1 AND duplicate_assignment_id = $2
		)`, assignmentID, duplicateAssignmentID).Scan(&exists)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return exists, nil
}

// DeleteReturnCase removes a resolved case. Deleting a case someone else
// already resolved is a not_found error.
func (s *RoutingStore) DeleteReturnCase(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM return_cases WHERE id = $1`, id)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("return case %s not found", id)
	}
	return nil
}

// InsertJobLog appends one audit entry. Entries are never updated.
func (s *RoutingStore) InsertJobLog(ctx context.Context, tx pgx.Tx, log *model.JobLog) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO job_logs (
			job_id, action, created_by, updated_by, transferred_by,
			returned_by, closed_by, partially_closed_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.JobID, log.Action, log.CreatedBy, log.UpdatedBy, log.TransferredBy,
		log.ReturnedBy, log.ClosedBy, log.PartiallyClosedBy,
		s.timeProvider.Now().UTC())
	return apperrors.MapDBError(err)
}

// InsertNotifications bulk-inserts per-recipient notification rows.
func (s *RoutingStore) InsertNotifications(ctx context.Context, tx pgx.Tx, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	now := s.timeProvider.Now().UTC()
	rows := make([][]any, 0, len(notifications))
	for _, n := range notifications {
		rows = append(rows, []any{
			n.SenderID, n.ReceiverID, n.AssignmentID, n.Message,
			n.Type, n.Status, now,
		})
	}
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"notifications"},
		[]string{"sender_id", "receiver_id", "assignment_id", "message", "notification_type", "status", "created_at"},
		pgx.CopyFromRows(rows),
	)
	return apperrors.MapDBError(err)
}
