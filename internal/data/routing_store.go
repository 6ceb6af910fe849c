package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// jobColumns is the standard column list for job queries.
const jobColumns = `id, job_id, address, address_information, latitude, longitude,
	description, status, priority, further_inspection, further_billing,
	lock_closed, closed_at, duplicate_reference, created_by, updated_by,
	closed_by, created_at, updated_at`

// RoutingStore implements core.RoutingStore: the transactional write surface
// for jobs, assignments, return cases, logs, notifications, bills, notes,
// and attachments. Every method runs on the caller's pgx transaction.
type RoutingStore struct {
	timeProvider TimeProvider
}

var _ core.RoutingStore = (*RoutingStore)(nil)

// NewRoutingStore creates a RoutingStore with the real time provider.
func NewRoutingStore() *RoutingStore {
	return &RoutingStore{timeProvider: &RealTimeProvider{}}
}

// NewRoutingStoreWithTimeProvider creates a RoutingStore with a custom time
// provider (useful for tests).
func NewRoutingStoreWithTimeProvider(tp TimeProvider) *RoutingStore {
	return &RoutingStore{timeProvider: tp}
}

// LockJob reads the job row FOR UPDATE, serializing concurrent transitions
// on the same job.
func (s *RoutingStore) LockJob(ctx context.Context, tx pgx.Tx, jobID string) (*model.Job, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, jobID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	job, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("job %s not found", jobID)
		}
		return nil, apperrors.MapDBError(err)
	}
	return &job, nil
}

// ExternalIDExists reports whether a job already carries the external id.
func (s *RoutingStore) ExternalIDExists(ctx context.Context, tx pgx.Tx, externalID string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM jobs WHERE job_id = $1)`, externalID,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return exists, nil
}

// InsertJob inserts a new job row and returns it fully populated.
func (s *RoutingStore) InsertJob(ctx context.Context, tx pgx.Tx, job *model.Job) (*model.Job, error) {
	now := s.timeProvider.Now().UTC()
	rows, err := tx.Query(ctx, `
		INSERT INTO jobs (
			job_id, address, address_information, latitude, longitude,
			description, status, priority, further_inspection, further_billing,
			lock_closed, duplicate_reference, created_by, updated_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING `+jobColumns,
		job.JobID,
		strings.TrimSpace(job.Address),
		job.AddressInformation,
		job.Latitude,
		job.Longitude,
		job.Description,
		job.Status,
		job.Priority,
		job.FurtherInspection,
		job.FurtherBilling,
		job.LockClosed,
		job.DuplicateReference,
		job.CreatedBy,
		job.UpdatedBy,
		now,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// UpdateJobFields applies a partial content update to the job row. An empty
// fields set is a no-op.
func (s *RoutingStore) UpdateJobFields(
	ctx context.Context,
	tx pgx.Tx,
	jobID string,
	fields model.JobFields,
	updatedBy string,
) error {
	setParts, args := buildJobFieldsClause(fields)
	if len(setParts) == 0 {
		return nil
	}

	args = append(args, updatedBy)
	setParts = append(setParts, fmt.Sprintf("updated_by = $%d", len(args)))
	args = append(args, s.timeProvider.Now().UTC())
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, jobID)
	query := "UPDATE jobs SET " + strings.Join(setParts, ", ") +
		fmt.Sprintf(" WHERE id = $%d", len(args))

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundf("job %s not found", jobID)
	}
	return nil
}

func buildJobFieldsClause(fields model.JobFields) ([]string, []any) {
	setParts := make([]string, 0, 9)
	args := make([]any, 0, 11)
	add := func(col string, v any) {
		args = append(args, v)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if fields.JobID != nil {
		add("job_id", strings.TrimSpace(*fields.JobID))
	}
	if fields.Address != nil {
		add("address", strings.TrimSpace(*fields.Address))
	}
	if fields.AddressInformation != nil {
		add("address_information", *fields.AddressInformation)
	}
	if fields.Latitude != nil {
		add("latitude", *fields.Latitude)
	}
	if fields.Longitude != nil {
		add("longitude", *fields.Longitude)
	}
	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.Priority != nil {
		add("priority", *fields.Priority)
	}
	if fields.FurtherInspection != nil {
		add("further_inspection", *fields.FurtherInspection)
	}
	if fields.FurtherBilling != nil {
		add("further_billing", *fields.FurtherBilling)
	}
	return setParts, args
}

// SetJobStatus moves the job's canonical status.
func (s *RoutingStore) SetJobStatus(
	ctx context.Context,
	tx pgx.Tx,
	jobID string,
	status model.JobStatus,
	updatedBy string,
) error {
	ct, err := tx.Exec(ctx, `
		UPDATE jobs SET status = $2, updated_by = $3, updated_at = $4
		WHERE id = $1`,
		jobID, status, updatedBy, s.timeProvider.Now().UTC())
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundf("job %s not found", jobID)
	}
	return nil
}

// MarkJobClosed sets closed_at and closed_by only when closed_at is still
// unset. Reclosing never moves the original timestamp.
func (s *RoutingStore) MarkJobClosed(ctx context.Context, tx pgx.Tx, jobID, closedBy string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE jobs
		SET closed_at = COALESCE(closed_at, $2),
		    closed_by = CASE WHEN closed_at IS NULL THEN $3 ELSE closed_by END,
		    updated_at = $4
		WHERE id = $1`,
		jobID, at.UTC(), closedBy, s.timeProvider.Now().UTC())
	return apperrors.MapDBError(err)
}

// AppendDuplicateReference appends the merged job's external id to the
// comma-joined reference list.
func (s *RoutingStore) AppendDuplicateReference(ctx context.Context, tx pgx.Tx, jobID, externalID string) error {
	ct, err := tx.Exec(ctx, `
		UPDATE jobs
		SET duplicate_reference = CASE
			WHEN duplicate_reference = '' THEN $2
			ELSE duplicate_reference || ', ' || $2
		END,
		updated_at = $3
		WHERE id = $1`,
		jobID, externalID, s.timeProvider.Now().UTC())
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFoundf("job %s not found", jobID)
	}
	return nil
}

// DeleteJobGraph removes the job and every owned row in explicit dependency
// order. Child tables first so the deletes never depend on cascade behavior.
func (s *RoutingStore) DeleteJobGraph(ctx context.Context, tx pgx.Tx, jobID string) error {
	statements := []string{
		`DELETE FROM return_cases WHERE assignment_id IN (SELECT id FROM assignments WHERE job_id = $1)
			OR duplicate_assignment_id IN (SELECT id FROM assignments WHERE job_id = $1)`,
		`DELETE FROM notifications WHERE assignment_id IN (SELECT id FROM assignments WHERE job_id = $1)`,
		`DELETE FROM close_bills WHERE job_id = $1`,
		`DELETE FROM job_notes WHERE job_id = $1`,
		`DELETE FROM job_attachments WHERE job_id = $1`,
		`DELETE FROM job_logs WHERE job_id = $1`,
		`DELETE FROM assignments WHERE job_id = $1`,
		`DELETE FROM jobs WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, jobID); err != nil {
			return apperrors.MapDBError(err)
		}
	}
	return nil
}
