package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// Transfer routes a job to another group. When the target group has held the
// job before, its existing assignment is reactivated and every sibling is
// bulk-deactivated; otherwise a new assignment row is created and the
// previously active one deactivated. Either way exactly one assignment is
// active afterwards.
func (s *RoutingService) Transfer(ctx context.Context, req model.TransferRequest, actor string) (*model.JobRouting, error) {
	if strings.TrimSpace(req.AssignmentID) == "" {
		return nil, apperrors.ValidationField("assignment_id", "assignment id is required")
	}
	if strings.TrimSpace(req.TargetGroupID) == "" {
		return nil, apperrors.ValidationField("target_group_id", "target group id is required")
	}
	if req.OverrideStatus != nil && !req.OverrideStatus.Valid() {
		return nil, apperrors.ValidationField("override_status", fmt.Sprintf("invalid status %q", *req.OverrideStatus))
	}

	group, err := s.groups.GetGroup(ctx, req.TargetGroupID)
	if err != nil {
		return nil, err
	}
	if group.Archived {
		return nil, apperrors.NotFoundf("group %s is archived", group.ID)
	}

	var (
		routing    *model.JobRouting
		f          fanout
		recipients []string
	)
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		acted, err := s.store.GetAssignment(ctx, tx, req.AssignmentID)
		if err != nil {
			return err
		}
		job, err := s.store.LockJob(ctx, tx, acted.JobID)
		if err != nil {
			return err
		}

		existing, err := s.store.FindAssignment(ctx, tx, job.ID, group.ID)
		if err != nil {
			return err
		}

		var targetAssignmentID string
		if existing != nil {
			targetAssignmentID, err = s.reactivateAssignment(ctx, tx, job, existing, req.OverrideStatus, actor)
		} else {
			targetAssignmentID, err = s.transferToNewGroup(ctx, tx, job, group.ID, req.OverrideStatus, actor)
		}
		if err != nil {
			return err
		}

		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, model.LogActionTransfer, actor)); err != nil {
			return err
		}

		if routing, err = s.loadRouting(ctx, tx, job.ID); err != nil {
			return err
		}

		f = fanout{
			groupID:      group.ID,
			assignmentID: targetAssignmentID,
			includeRoles: []model.Role{model.RoleGroupManager, model.RoleAdmin},
			actor:        actor,
			message:      fmt.Sprintf("Job %s transferred to %s", job.JobID, group.Name),
			ntype:        model.NotificationTransfer,
			status:       routing.Job.Status,
		}
		recipients, err = s.persistFanout(ctx, tx, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "job transferred", "job_id", routing.Job.JobID, "target_group_id", group.ID)
	s.pushAfterCommit(ctx, recipients, f)
	return routing, nil
}

// reactivateAssignment handles a transfer to a group that already holds an
// assignment for the job: siblings are bulk-deactivated with status transfer
// and the target row goes open and active. The job's status follows its home
// assignment afterwards.
func (s *RoutingService) reactivateAssignment(ctx context.Context, tx pgx.Tx, job *model.Job, target *model.Assignment, override *model.JobStatus, actor string) (string, error) {
	if _, err := s.store.DeactivateSiblings(ctx, tx, core.DeactivateSiblingsParams{
		JobID:            job.ID,
		KeepAssignmentID: target.ID,
		Status:           model.JobStatusTransfer,
		UpdatedBy:        actor,
	}); err != nil {
		return "", err
	}
	if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
		ID:        target.ID,
		Status:    ptr(model.JobStatusOpen),
		IsActive:  ptr(true),
		UpdatedBy: actor,
	}); err != nil {
		return "", err
	}

	// Job status mirrors the home assignment: open when the transfer lands
	// back home, transfer otherwise.
	jobStatus := model.JobStatusTransfer
	if target.IsHome {
		jobStatus = model.JobStatusOpen
	}
	if override != nil {
		jobStatus = *override
	}
	if err := s.store.SetJobStatus(ctx, tx, job.ID, jobStatus, actor); err != nil {
		return "", err
	}
	return target.ID, nil
}

// transferToNewGroup handles a transfer to a group that has never held the
// job: the active assignment is deactivated and a fresh row is inserted for
// the target group.
func (s *RoutingService) transferToNewGroup(ctx context.Context, tx pgx.Tx, job *model.Job, groupID string, override *model.JobStatus, actor string) (string, error) {
	assignments, err := s.store.ListJobAssignments(ctx, tx, job.ID)
	if err != nil {
		return "", err
	}
	for i := range assignments {
		if !assignments[i].IsActive {
			continue
		}
		if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
			ID:        assignments[i].ID,
			IsActive:  ptr(false),
			UpdatedBy: actor,
		}); err != nil {
			return "", err
		}
	}

	assignmentStatus := model.JobStatusOpen
	jobStatus := model.JobStatusTransfer
	if override != nil {
		assignmentStatus = *override
		jobStatus = *override
	}

	created, err := s.store.InsertAssignment(ctx, tx, &model.Assignment{
		JobID:             job.ID,
		GroupID:           groupID,
		Status:            assignmentStatus,
		IsActive:          true,
		FurtherInspection: job.FurtherInspection,
		FurtherBilling:    job.FurtherBilling,
		LockClosed:        job.LockClosed,
		CreatedBy:         &actor,
		UpdatedBy:         &actor,
	})
	if err != nil {
		return "", err
	}
	if err := s.store.SetJobStatus(ctx, tx, job.ID, jobStatus, actor); err != nil {
		return "", err
	}
	return created.ID, nil
}

// TransferMany routes a batch of assignments to the same target group, one
// transaction and one audit entry per job. The first failure stops the batch;
// already-transferred jobs stay transferred.
func (s *RoutingService) TransferMany(ctx context.Context, assignmentIDs []string, targetGroupID, actor string) ([]*model.JobRouting, error) {
	if len(assignmentIDs) == 0 {
		return nil, apperrors.ValidationField("assignment_ids", "at least one assignment id is required")
	}
	out := make([]*model.JobRouting, 0, len(assignmentIDs))
	for _, id := range assignmentIDs {
		routing, err := s.Transfer(ctx, model.TransferRequest{
			AssignmentID:  id,
			TargetGroupID: targetGroupID,
		}, actor)
		if err != nil {
			return out, apperrors.Wrapf(err, apperrors.GetCode(err), "transfer assignment %s", id)
		}
		out = append(out, routing)
	}
	return out, nil
}
