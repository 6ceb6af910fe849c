package data

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// UpsertBills applies submitted bill lines against a job:
//   - no bill id: insert a new row (resubmitting the same logical line
//     without an id inserts again; the upsert is keyed by id, not content)
//   - bill id with measurement 0: delete the row
//   - bill id with nonzero measurement: update measurement only
func (s *RoutingStore) UpsertBills(ctx context.Context, tx pgx.Tx, jobID string, lines []model.BillLine, actor string) error {
	now := s.timeProvider.Now().UTC()
	for i := range lines {
		line := &lines[i]
		switch {
		case line.BillID == nil:
			_, err := tx.Exec(ctx, `
				INSERT INTO close_bills (
					job_id, name, bill_type, type_counting, jumping_ratio,
					image, measurement, is_created, created_by, updated_by,
					created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8, $9, $9)`,
				jobID, line.Name, line.BillType, line.TypeCounting,
				line.JumpingRatio, line.Image, line.Measurement, actor, now)
			if err != nil {
				return apperrors.MapDBError(err)
			}
		case line.Measurement == 0:
			_, err := tx.Exec(ctx,
				`DELETE FROM close_bills WHERE id = $1 AND job_id = $2`,
				*line.BillID, jobID)
			if err != nil {
				return apperrors.MapDBError(err)
			}
		default:
			ct, err := tx.Exec(ctx, `
				UPDATE close_bills
				SET measurement = $3, updated_by = $4, updated_at = $5
				WHERE id = $1 AND job_id = $2`,
				*line.BillID, jobID, line.Measurement, actor, now)
			if err != nil {
				return apperrors.MapDBError(err)
			}
			if ct.RowsAffected() == 0 {
				return apperrors.NotFoundf("close bill %s not found", *line.BillID)
			}
		}
	}
	return nil
}

// InsertNotes appends free-text notes to a job. Blank notes are skipped.
func (s *RoutingStore) InsertNotes(ctx context.Context, tx pgx.Tx, jobID string, notes []string, actor string) error {
	now := s.timeProvider.Now().UTC()
	for _, note := range notes {
		if note == "" {
			continue
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO job_notes (job_id, note, created_by, created_at)
			VALUES ($1, $2, $3, $4)`,
			jobID, note, actor, now)
		if err != nil {
			return apperrors.MapDBError(err)
		}
	}
	return nil
}

// InsertAttachments records attachment references against a job.
func (s *RoutingStore) InsertAttachments(ctx context.Context, tx pgx.Tx, params core.InsertAttachmentsParams) error {
	now := s.timeProvider.Now().UTC()
	for i := range params.Attachments {
		a := &params.Attachments[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO job_attachments (
				job_id, kind, ref, close_attachment, created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			params.JobID, a.Kind, a.Ref, params.CloseAttachment,
			params.CreatedBy, now)
		if err != nil {
			return apperrors.MapDBError(err)
		}
	}
	return nil
}

// DeleteAttachments removes attachment rows by id, scoped to the job.
func (s *RoutingStore) DeleteAttachments(ctx context.Context, tx pgx.Tx, jobID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx,
		`DELETE FROM job_attachments WHERE job_id = $1 AND id = ANY($2)`,
		jobID, ids)
	return apperrors.MapDBError(err)
}
