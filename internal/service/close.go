package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// Close fully closes a job: field updates, bill lines, notes and attachment
// changes apply in the same transaction; every non-home assignment goes
// close/inactive and the home assignment close/active. closed_at is set on
// the first close only; reclosing a closed job updates content but never
// moves the timestamp.
func (s *RoutingService) Close(ctx context.Context, req model.CloseRequest, actor string) (*model.JobRouting, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var (
		routing    *model.JobRouting
		f          fanout
		recipients []string
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		acted, err := s.store.GetAssignment(ctx, tx, req.AssignmentID)
		if err != nil {
			return err
		}
		job, err := s.store.LockJob(ctx, tx, acted.JobID)
		if err != nil {
			return err
		}
		wasClosed := job.Status == model.JobStatusClose

		if err := s.applyContent(ctx, tx, job.ID, req.Fields, req.Bills, req.Notes, req.Attachments, req.RemoveAttachmentIDs, true, actor); err != nil {
			return err
		}

		assignments, err := s.store.ListJobAssignments(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		home, err := homeOf(assignments)
		if err != nil {
			return err
		}

		if _, err := s.store.DeactivateSiblings(ctx, tx, core.DeactivateSiblingsParams{
			JobID:            job.ID,
			KeepAssignmentID: home.ID,
			Status:           model.JobStatusClose,
			UpdatedBy:        actor,
		}); err != nil {
			return err
		}
		if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
			ID:        home.ID,
			Status:    ptr(model.JobStatusClose),
			IsActive:  ptr(true),
			UpdatedBy: actor,
		}); err != nil {
			return err
		}

		if err := s.store.SetJobStatus(ctx, tx, job.ID, model.JobStatusClose, actor); err != nil {
			return err
		}
		if err := s.store.MarkJobClosed(ctx, tx, job.ID, actor, s.timeProvider.Now().UTC()); err != nil {
			return err
		}

		homeGroupID := home.GroupID
		homeAssignmentID := home.ID
		if req.HomeGroupID != "" && req.HomeGroupID != home.GroupID {
			if homeAssignmentID, err = s.reassignHome(ctx, tx, job.ID, home, req.HomeGroupID, actor); err != nil {
				return err
			}
			homeGroupID = req.HomeGroupID
		}

		action := model.LogActionClose
		if wasClosed {
			action = model.LogActionUpdate
		}
		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, action, actor)); err != nil {
			return err
		}

		if routing, err = s.loadRouting(ctx, tx, job.ID); err != nil {
			return err
		}

		f = fanout{
			groupID:      homeGroupID,
			assignmentID: homeAssignmentID,
			excludeRoles: []model.Role{model.RoleGroupManager},
			actor:        actor,
			message:      fmt.Sprintf("Job %s closed", job.JobID),
			ntype:        model.NotificationClose,
			status:       model.JobStatusClose,
		}
		recipients, err = s.persistFanout(ctx, tx, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "job closed", "job_id", routing.Job.JobID)
	s.pushAfterCommit(ctx, recipients, f)
	return routing, nil
}

// PartialClose marks one assignment's share of the work done. Only the
// acted-on assignment changes status; siblings, activity flags and closed_at
// are untouched. A repeat partial close on the same assignment is a metadata
// update and sends no notification.
func (s *RoutingService) PartialClose(ctx context.Context, req model.PartialCloseRequest, actor string) (*model.JobRouting, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var (
		routing    *model.JobRouting
		f          fanout
		recipients []string
	)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		acted, err := s.store.GetAssignment(ctx, tx, req.AssignmentID)
		if err != nil {
			return err
		}
		job, err := s.store.LockJob(ctx, tx, acted.JobID)
		if err != nil {
			return err
		}
		// Re-read under the job lock; a racing repeat would otherwise see the
		// stale pre-partial status and fan out twice.
		if acted, err = s.store.GetAssignment(ctx, tx, req.AssignmentID); err != nil {
			return err
		}
		flipped := acted.Status != model.JobStatusPartial

		if err := s.applyContent(ctx, tx, job.ID, req.Fields, req.Bills, req.Notes, req.Attachments, req.RemoveAttachmentIDs, true, actor); err != nil {
			return err
		}

		if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
			ID:        acted.ID,
			Status:    ptr(model.JobStatusPartial),
			UpdatedBy: actor,
		}); err != nil {
			return err
		}
		if err := s.store.SetJobStatus(ctx, tx, job.ID, model.JobStatusPartial, actor); err != nil {
			return err
		}

		action := model.LogActionPartial
		if !flipped {
			action = model.LogActionUpdate
		}
		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, action, actor)); err != nil {
			return err
		}

		if routing, err = s.loadRouting(ctx, tx, job.ID); err != nil {
			return err
		}

		if flipped {
			home, err := homeOf(routing.Assignments)
			if err != nil {
				return err
			}
			f = fanout{
				groupID:      home.GroupID,
				assignmentID: acted.ID,
				excludeRoles: []model.Role{model.RoleGroupManager},
				actor:        actor,
				message:      fmt.Sprintf("Job %s partially closed", job.JobID),
				ntype:        model.NotificationClose,
				status:       model.JobStatusPartial,
			}
			if recipients, err = s.persistFanout(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "job partially closed", "job_id", routing.Job.JobID)
	s.pushAfterCommit(ctx, recipients, f)
	return routing, nil
}

// UpdateJob applies a metadata-only edit: job fields, notes, attachment adds
// and deletes, and an optional home reassignment. No status transition and
// no notification fan-out happen here.
func (s *RoutingService) UpdateJob(ctx context.Context, req model.UpdateJobRequest, actor string) (*model.JobRouting, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var routing *model.JobRouting
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		acted, err := s.store.GetAssignment(ctx, tx, req.AssignmentID)
		if err != nil {
			return err
		}
		job, err := s.store.LockJob(ctx, tx, acted.JobID)
		if err != nil {
			return err
		}

		if !req.Fields.Empty() {
			if err := s.store.UpdateJobFields(ctx, tx, job.ID, req.Fields, actor); err != nil {
				return err
			}
		}
		if err := s.store.InsertNotes(ctx, tx, job.ID, req.Notes, actor); err != nil {
			return err
		}
		if err := s.store.InsertAttachments(ctx, tx, core.InsertAttachmentsParams{
			JobID:       job.ID,
			Attachments: req.Attachments,
			CreatedBy:   actor,
		}); err != nil {
			return err
		}
		if err := s.store.DeleteAttachments(ctx, tx, job.ID, req.RemoveAttachmentIDs); err != nil {
			return err
		}

		if req.HomeGroupID != "" {
			assignments, err := s.store.ListJobAssignments(ctx, tx, job.ID)
			if err != nil {
				return err
			}
			home, err := homeOf(assignments)
			if err != nil {
				return err
			}
			if req.HomeGroupID != home.GroupID {
				if _, err := s.reassignHome(ctx, tx, job.ID, home, req.HomeGroupID, actor); err != nil {
					return err
				}
			}
		}

		action := model.LogActionUpdate
		if acted.Status == model.JobStatusTransfer {
			action = model.LogActionTransfer
		}
		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, action, actor)); err != nil {
			return err
		}

		routing, err = s.loadRouting(ctx, tx, job.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "job updated", "job_id", routing.Job.JobID)
	return routing, nil
}

// applyContent writes the shared close/update payload: field updates, bill
// upserts, notes and attachment adds/deletes.
func (s *RoutingService) applyContent(ctx context.Context, tx pgx.Tx, jobID string, fields model.JobFields, bills []model.BillLine, notes []string, attachments []model.Attachment, removeAttachmentIDs []string, closeAttachment bool, actor string) error {
	if !fields.Empty() {
		if err := s.store.UpdateJobFields(ctx, tx, jobID, fields, actor); err != nil {
			return err
		}
	}
	if err := s.store.UpsertBills(ctx, tx, jobID, bills, actor); err != nil {
		return err
	}
	if err := s.store.InsertNotes(ctx, tx, jobID, notes, actor); err != nil {
		return err
	}
	if err := s.store.InsertAttachments(ctx, tx, core.InsertAttachmentsParams{
		JobID:           jobID,
		Attachments:     attachments,
		CloseAttachment: closeAttachment,
		CreatedBy:       actor,
	}); err != nil {
		return err
	}
	return s.store.DeleteAttachments(ctx, tx, jobID, removeAttachmentIDs)
}

// reassignHome moves the home marker to another group and returns the id of
// the assignment holding it afterwards. When that group already holds an
// assignment the marker flips to it; otherwise the current home assignment
// itself moves to the new group.
func (s *RoutingService) reassignHome(ctx context.Context, tx pgx.Tx, jobID string, home *model.Assignment, groupID, actor string) (string, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	if group.Archived {
		return "", apperrors.NotFoundf("group %s is archived", group.ID)
	}

	existing, err := s.store.FindAssignment(ctx, tx, jobID, group.ID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return home.ID, s.store.MoveAssignmentGroup(ctx, tx, home.ID, group.ID, actor)
	}
	if existing.ID == home.ID {
		return home.ID, nil
	}
	if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
		ID:        home.ID,
		IsHome:    ptr(false),
		UpdatedBy: actor,
	}); err != nil {
		return "", err
	}
	return existing.ID, s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
		ID:        existing.ID,
		IsHome:    ptr(true),
		UpdatedBy: actor,
	})
}
