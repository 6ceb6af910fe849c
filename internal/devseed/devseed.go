// Package devseed populates a development database with groups, members and
// a few jobs in representative states. Seeding is idempotent; rerunning it
// leaves existing rows alone.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fieldops/workorder-api/internal/data"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
	"github.com/fieldops/workorder-api/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB      *sql.DB
	routing *service.RoutingService
}

// NewServices constructs the required services for seeding using the
// provided DB.
func NewServices(db *sql.DB) Services {
	routing := service.MustNewRoutingService(service.RoutingServiceOptions{
		DB:     db,
		Store:  data.NewRoutingStore(),
		Groups: data.NewGroupDirectoryRepo(db),
	})
	return Services{DB: db, routing: routing}
}

type seedGroup struct {
	id   string
	name string
}

type seedMember struct {
	groupID string
	userID  string
	role    model.Role
}

// Stable ids so reseeding never duplicates rows and jobs land in the same
// groups every time.
var (
	groupNorth = seedGroup{id: "6a1f6f6e-0001-4a7e-9d5a-2b8c1a9e0001", name: "North District"}
	groupSouth = seedGroup{id: "6a1f6f6e-0002-4a7e-9d5a-2b8c1a9e0002", name: "South District"}
	groupDepot = seedGroup{id: "6a1f6f6e-0003-4a7e-9d5a-2b8c1a9e0003", name: "Central Depot"}

	seedActor = "f0e0d0c0-0000-4000-8000-000000000001"

	seedMembers = []seedMember{
		{groupNorth.id, seedActor, model.RoleAdmin},
		{groupNorth.id, "f0e0d0c0-0000-4000-8000-000000000002", model.RoleGroupManager},
		{groupNorth.id, "f0e0d0c0-0000-4000-8000-000000000003", model.RoleInspector},
		{groupNorth.id, "f0e0d0c0-0000-4000-8000-000000000004", model.RoleWorker},
		{groupSouth.id, "f0e0d0c0-0000-4000-8000-000000000005", model.RoleGroupManager},
		{groupSouth.id, "f0e0d0c0-0000-4000-8000-000000000006", model.RoleWorker},
		{groupDepot.id, "f0e0d0c0-0000-4000-8000-000000000007", model.RoleInspector},
	}
)

// Run executes the full development seeding workflow against the provided DB.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if err := seedGroups(ctx, svcs.DB); err != nil {
		return fmt.Errorf("seed groups: %w", err)
	}
	if err := seedMemberships(ctx, svcs.DB); err != nil {
		return fmt.Errorf("seed group members: %w", err)
	}
	if err := seedJobs(ctx, svcs, logger); err != nil {
		return fmt.Errorf("seed jobs: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "development seed complete")
	}
	return nil
}

func seedGroups(ctx context.Context, db *sql.DB) error {
	for _, g := range []seedGroup{groupNorth, groupSouth, groupDepot} {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO groups (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING`, g.id, g.name); err != nil {
			return err
		}
	}
	return nil
}

func seedMemberships(ctx context.Context, db *sql.DB) error {
	for _, m := range seedMembers {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)
			ON CONFLICT (group_id, user_id) DO NOTHING`,
			m.groupID, m.userID, m.role); err != nil {
			return err
		}
	}
	return nil
}

func seedJobs(ctx context.Context, svcs Services, logger *slog.Logger) error {
	jobs := []model.CreateJobRequest{
		{
			JobID:       "WO-2024-0001",
			GroupID:     groupNorth.id,
			Address:     "14 Harbor Rd",
			Description: "Leaking hydrant at the north corner",
			Priority:    true,
			Notes:       []string{"Caller reports standing water"},
		},
		{
			JobID:       "WO-2024-0002",
			GroupID:     groupNorth.id,
			Address:     "220 Mill Ave",
			Description: "Street light out",
		},
		{
			JobID:             "WO-2024-0003",
			GroupID:           groupSouth.id,
			Address:           "3 Quarry Ln",
			Description:       "Damaged guard rail",
			FurtherInspection: true,
		},
	}

	for _, req := range jobs {
		routing, err := svcs.routing.CreateJob(ctx, req, seedActor)
		if err != nil {
			if apperrors.IsValidation(err) {
				// Already seeded on a previous run.
				continue
			}
			return err
		}
		if logger != nil {
			logger.InfoContext(ctx, "seeded job", "job_id", routing.Job.JobID)
		}
	}

	// Put one job into a transferred state so list views show variety.
	return transferSeedJob(ctx, svcs, "WO-2024-0002", groupSouth.id)
}

// transferSeedJob routes the job's active assignment to the target group.
// Jobs already routed there are left alone.
func transferSeedJob(ctx context.Context, svcs Services, externalID, targetGroupID string) error {
	var assignmentID string
	err := svcs.DB.QueryRowContext(ctx, `
		SELECT a.id FROM assignments a
		JOIN jobs j ON j.id = a.job_id
		WHERE j.job_id = $1 AND a.is_active`, externalID).Scan(&assignmentID)
	if err != nil {
		return err
	}
	_, err = svcs.routing.Transfer(ctx, model.TransferRequest{
		AssignmentID:  assignmentID,
		TargetGroupID: targetGroupID,
	}, seedActor)
	if err != nil && !apperrors.IsConflict(err) {
		return err
	}
	return nil
}
