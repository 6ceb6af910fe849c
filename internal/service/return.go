package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// Return sends a job back to its home group, either as a correction request
// (wrong information, with a comment) or as a duplicate flag pointing at the
// original job's assignment. The pending case is routed to the home group's
// inspectors and admins, minus the actor.
func (s *RoutingService) Return(ctx context.Context, req model.ReturnRequest, actor string) (*model.JobRouting, error) {
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
		// Re-read under the job lock; a concurrent transition commits its
		// status before our lock is granted.
		if acted, err = s.store.GetAssignment(ctx, tx, req.AssignmentID); err != nil {
			return err
		}
		if acted.Status == model.JobStatusClose || acted.Status == model.JobStatusReturn {
			return apperrors.Conflictf("assignment %s is already %s", acted.ID, acted.Status)
		}
		assignments, err := s.store.ListJobAssignments(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		home, err := homeOf(assignments)
		if err != nil {
			return err
		}

		members, err := s.groups.ListMembers(ctx, home.GroupID)
		if err != nil {
			return err
		}
		returnTo := recipientIDs(members, []model.Role{model.RoleInspector, model.RoleAdmin}, nil, actor)

		rc := &model.ReturnCase{
			AssignmentID: home.ID,
			Reason:       req.Reason,
			Comment:      req.Comment,
			GroupID:      acted.GroupID,
			ReturnTo:     returnTo,
			CreatedBy:    &actor,
		}

		switch req.Reason {
		case model.ReturnReasonWrongInformation:
			// The acted-on assignment stays active only when it is the home
			// row itself; a non-home assignment goes return/inactive.
			if acted.ID != home.ID {
				if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
					ID:        acted.ID,
					Status:    ptr(model.JobStatusReturn),
					IsActive:  ptr(false),
					UpdatedBy: actor,
				}); err != nil {
					return err
				}
			}
		case model.ReturnReasonDuplicate:
			original, err := s.store.GetAssignment(ctx, tx, req.DuplicateOfAssignmentID)
			if err != nil {
				return err
			}
			if original.JobID == job.ID {
				return apperrors.ValidationField("duplicate_of_assignment_id", "a job cannot duplicate itself")
			}
			flagged, err := s.store.DuplicateCaseExists(ctx, tx, home.ID, original.ID)
			if err != nil {
				return err
			}
			if flagged {
				return apperrors.Conflictf("assignment %s is already flagged as a duplicate of %s", home.ID, original.ID)
			}
			rc.DuplicateAssignmentID = &original.ID
			if _, err := s.store.DeactivateSiblings(ctx, tx, core.DeactivateSiblingsParams{
				JobID:            job.ID,
				KeepAssignmentID: home.ID,
				Status:           model.JobStatusReturn,
				UpdatedBy:        actor,
			}); err != nil {
				return err
			}
		}

		if _, err := s.store.InsertReturnCase(ctx, tx, rc); err != nil {
			return err
		}
		if err := s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
			ID:        home.ID,
			Status:    ptr(model.JobStatusReturn),
			IsActive:  ptr(true),
			UpdatedBy: actor,
		}); err != nil {
			return err
		}
		if err := s.store.SetJobStatus(ctx, tx, job.ID, model.JobStatusReturn, actor); err != nil {
			return err
		}
		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, model.LogActionReturn, actor)); err != nil {
			return err
		}

		if routing, err = s.loadRouting(ctx, tx, job.ID); err != nil {
			return err
		}

		f = fanout{
			groupID:      home.GroupID,
			assignmentID: home.ID,
			includeRoles: []model.Role{model.RoleInspector},
			actor:        actor,
			message:      fmt.Sprintf("Job %s returned (%s)", job.JobID, req.Reason),
			ntype:        model.NotificationReturn,
			status:       model.JobStatusReturn,
		}
		recipients, err = s.persistFanout(ctx, tx, f)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "job returned", "job_id", routing.Job.JobID, "reason", req.Reason)
	s.pushAfterCommit(ctx, recipients, f)
	return routing, nil
}
