package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
)

// DeleteJob removes a job and everything it owns: return cases,
// notifications, bills, notes, attachments, audit entries and assignments.
// The deletes are explicit and ordered inside one transaction.
func (s *RoutingService) DeleteJob(ctx context.Context, jobID, actor string) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		job, err := s.store.LockJob(ctx, tx, jobID)
		if err != nil {
			return err
		}
		return s.store.DeleteJobGraph(ctx, tx, job.ID)
	})
	if err != nil {
		return err
	}
	s.debug(ctx, "job deleted", "id", jobID, "actor", actor)
	return nil
}

// ReassignHomeGroup moves a job's home marker to another group without any
// other state change.
func (s *RoutingService) ReassignHomeGroup(ctx context.Context, jobID, groupID, actor string) (*model.JobRouting, error) {
	var routing *model.JobRouting
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		job, err := s.store.LockJob(ctx, tx, jobID)
		if err != nil {
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
		if home.GroupID != groupID {
			if _, err := s.reassignHome(ctx, tx, job.ID, home, groupID, actor); err != nil {
				return err
			}
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
	s.debug(ctx, "home group reassigned", "job_id", routing.Job.JobID, "group_id", groupID)
	return routing, nil
}

// MarkReviewed flags one assignment as reviewed.
func (s *RoutingService) MarkReviewed(ctx context.Context, assignmentID, actor string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		a, err := s.store.GetAssignment(ctx, tx, assignmentID)
		if err != nil {
			return err
		}
		if _, err := s.store.LockJob(ctx, tx, a.JobID); err != nil {
			return err
		}
		return s.store.UpdateAssignmentState(ctx, tx, core.UpdateAssignmentStateParams{
			ID:         a.ID,
			IsReviewed: ptr(true),
			UpdatedBy:  actor,
		})
	})
}
