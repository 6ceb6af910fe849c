package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// CreateJob registers a new work order in a group. The group's assignment is
// both home and active; the job starts open. Priority jobs notify the
// group's field staff.
func (s *RoutingService) CreateJob(ctx context.Context, req model.CreateJobRequest, actor string) (*model.JobRouting, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	group, err := s.groups.GetGroup(ctx, req.GroupID)
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
		exists, err := s.store.ExternalIDExists(ctx, tx, req.JobID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.ValidationField("job_id", fmt.Sprintf("job %s already exists", req.JobID))
		}

		job, err := s.store.InsertJob(ctx, tx, &model.Job{
			JobID:              req.JobID,
			Address:            req.Address,
			AddressInformation: req.AddressInformation,
			Latitude:           req.Latitude,
			Longitude:          req.Longitude,
			Description:        req.Description,
			Status:             model.JobStatusOpen,
			Priority:           req.Priority,
			FurtherInspection:  req.FurtherInspection,
			LockClosed:         req.LockClosed,
			CreatedBy:          &actor,
			UpdatedBy:          &actor,
		})
		if err != nil {
			return err
		}

		assignment, err := s.store.InsertAssignment(ctx, tx, &model.Assignment{
			JobID:             job.ID,
			GroupID:           group.ID,
			Status:            model.JobStatusOpen,
			IsActive:          true,
			IsHome:            true,
			FurtherInspection: req.FurtherInspection,
			LockClosed:        req.LockClosed,
			CreatedBy:         &actor,
			UpdatedBy:         &actor,
		})
		if err != nil {
			return err
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
		if err := s.store.InsertJobLog(ctx, tx, newLog(job.ID, model.LogActionCreate, actor)); err != nil {
			return err
		}

		if req.Priority {
			f = fanout{
				groupID:      group.ID,
				assignmentID: assignment.ID,
				excludeRoles: []model.Role{model.RoleAdmin, model.RoleInspector},
				actor:        actor,
				message:      fmt.Sprintf("Priority job %s opened in %s", job.JobID, group.Name),
				ntype:        model.NotificationOpen,
				status:       model.JobStatusOpen,
			}
			if recipients, err = s.persistFanout(ctx, tx, f); err != nil {
				return err
			}
		}

		routing = &model.JobRouting{Job: *job, Assignments: []model.Assignment{*assignment}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.debug(ctx, "job created", "job_id", routing.Job.JobID, "group_id", group.ID)
	s.pushAfterCommit(ctx, recipients, f)
	return routing, nil
}
