package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// ResolveWrongInformation closes out a correction request: the submitted
// field fixes are applied, the job reopens, and the group that raised the
// return gets its assignment back as the active one. The home assignment
// stays active only when it is that same row.
func (s *RoutingService) ResolveWrongInformation(ctx context.Context, returnCaseID string, fields model.JobFields, actor string) (*model.JobRouting, error) {
	var (
		routing    *model.JobRouting
		f          fanout
		recipients []string
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		rc, err := s.store.GetReturnCase(ctx, tx, returnCaseID)
		if err != nil {
			return err
		}
		if rc.Reason != model.ReturnReasonWrongInformation {
			return apperrors.InvalidStatef("return case %s is a %s case", rc.ID, rc.Reason)
		}

		home, err := s.store.GetAssignment(ctx, tx, rc.AssignmentID)
		if err != nil {
			return err
		}
		job, err := s.store.LockJob(ctx, tx, home.JobID)
		if err != nil {
			return err
		}
		// Re-read under the job lock; a concurrent resolve deletes the case
		// before our lock is granted and this surfaces as not_found.
		if rc, err = s.store.GetReturnCase(ctx, tx, rc.ID); err != nil {
			return err
		}

		if !fields.Empty() {
			if err := s.store.UpdateJobFields(ctx, tx, job.ID, fields, actor); err != nil {
				return err
			}
		}

		target, err := s.store.FindAssignment(ctx, tx, job.ID, rc.GroupID)
		if err != nil {
			return err
		}
		if target == nil {
			// The raising group's assignment was removed since; reopen home.
			target = home
		}

		if target.ID == home.ID {
			if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
				ID:        home.ID,
				Status:    ptr(model.JobStatusOpen),
				IsActive:  ptr(true),
				UpdatedBy: actor,
			}); err != nil {
				return err
			}
		} else {
			if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
				ID:        home.ID,
				Status:    ptr(model.JobStatusOpen),
				IsActive:  ptr(false),
				UpdatedBy: actor,
			}); err != nil {
				return err
			}
			if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
				ID:        target.ID,
				Status:    ptr(model.JobStatusOpen),
				IsActive:  ptr(true),
				UpdatedBy: actor,
			}); err != nil {
				return err
			}
		}

		if err := s.store.SetJobStatus(ctx, tx, job.ID, model.JobStatusOpen, actor); err != nil {
			return err
		}
		if err := s.store.DeleteReturnCase(ctx, tx, rc.ID); err != nil {
			return err
		}
		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, model.LogActionUpdate, actor)); err != nil {
			return err
		}

		if routing, err = s.loadRouting(ctx, tx, job.ID); err != nil {
			return err
		}

		f = fanout{
			groupID:      rc.GroupID,
			assignmentID: target.ID,
			excludeRoles: []model.Role{model.RoleInspector},
			actor:        actor,
			message:      fmt.Sprintf("Job %s corrected and reopened", job.JobID),
			ntype:        model.NotificationOpen,
			status:       model.JobStatusOpen,
		}
		recipients, err = s.persistFanout(ctx, tx, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "wrong-information case resolved", "job_id", routing.Job.JobID)
	s.pushAfterCommit(ctx, recipients, f)
	return routing, nil
}

// ResolveDuplicate rejects a duplicate flag: the flagged job's home
// assignment reopens as active and the pending case is deleted. Nothing is
// merged.
func (s *RoutingService) ResolveDuplicate(ctx context.Context, returnCaseID, actor string) (*model.JobRouting, error) {
	var routing *model.JobRouting
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		rc, err := s.store.GetReturnCase(ctx, tx, returnCaseID)
		if err != nil {
			return err
		}
		if rc.Reason != model.ReturnReasonDuplicate {
			return apperrors.InvalidStatef("return case %s is a %s case", rc.ID, rc.Reason)
		}

		home, err := s.store.GetAssignment(ctx, tx, rc.AssignmentID)
		if err != nil {
			return err
		}
		job, err := s.store.LockJob(ctx, tx, home.JobID)
		if err != nil {
			return err
		}
		// Re-read under the job lock so a racing resolve on the same case
		// surfaces as not_found instead of a silent second success.
		if rc, err = s.store.GetReturnCase(ctx, tx, rc.ID); err != nil {
			return err
		}

		if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
			ID:        home.ID,
			Status:    ptr(model.JobStatusOpen),
			IsActive:  ptr(true),
			UpdatedBy: actor,
		}); err != nil {
			return err
		}
		if err := s.store.SetJobStatus(ctx, tx, job.ID, model.JobStatusOpen, actor); err != nil {
			return err
		}
		if err := s.store.DeleteReturnCase(ctx, tx, rc.ID); err != nil {
			return err
		}
		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, model.LogActionUpdate, actor)); err != nil {
			return err
		}

		routing, err = s.loadRouting(ctx, tx, job.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "duplicate flag rejected", "job_id", routing.Job.JobID)
	return routing, nil
}

// ConfirmDuplicate merges a flagged duplicate into its original: the
// duplicate's external job id is appended to the original's reference list
// and the duplicate's whole graph is hard-deleted. The merge is
// irreversible.
func (s *RoutingService) ConfirmDuplicate(ctx context.Context, originalAssignmentID, duplicateAssignmentID, actor string) (*model.JobRouting, error) {
	var routing *model.JobRouting
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		original, err := s.store.GetAssignment(ctx, tx, originalAssignmentID)
		if err != nil {
			return err
		}
		duplicate, err := s.store.GetAssignment(ctx, tx, duplicateAssignmentID)
		if err != nil {
			return err
		}
		if original.JobID == duplicate.JobID {
			return apperrors.ValidationField("duplicate_assignment_id", "a job cannot be merged into itself")
		}

		// Lock both jobs in a fixed order so two concurrent merges over the
		// same pair cannot deadlock.
		first, second := original.JobID, duplicate.JobID
		if second < first {
			first, second = second, first
		}
		if _, err := s.store.LockJob(ctx, tx, first); err != nil {
			return err
		}
		if _, err := s.store.LockJob(ctx, tx, second); err != nil {
			return err
		}

		duplicateJob, err := s.store.LockJob(ctx, tx, duplicate.JobID)
		if err != nil {
			return err
		}
		if err := s.store.AppendDuplicateReference(ctx, tx, original.JobID, duplicateJob.JobID); err != nil {
			return err
		}
		if err := s.store.InsertJobLog(ctx, tx, newLog(original.JobID, model.LogActionUpdate, actor)); err != nil {
			return err
		}
		if err := s.store.DeleteJobGraph(ctx, tx, duplicateJob.ID); err != nil {
			return err
		}

		routing, err = s.loadRouting(ctx, tx, original.JobID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "duplicate merged", "job_id", routing.Job.JobID)
	return routing, nil
}
