package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/workorder-api/internal/data"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
	"github.com/fieldops/workorder-api/internal/testutil"
)

type routingFixture struct {
	db         *sql.DB
	svc        *RoutingService
	clock      *data.FixedTimeProvider
	groupA     string
	groupB     string
	groupC     string
	actor      string
	workerA    string
	inspectorA string
}

func setupRoutingTest(t *testing.T) *routingFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	f := &routingFixture{
		db:     db,
		clock:  data.NewFixedTimeProvider(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)),
		groupA: testutil.SeedGroup(t, db, "Group A"),
		groupB: testutil.SeedGroup(t, db, "Group B"),
		groupC: testutil.SeedGroup(t, db, "Group C"),
	}
	f.actor = testutil.SeedMember(t, db, f.groupA, model.RoleAdmin)
	f.workerA = testutil.SeedMember(t, db, f.groupA, model.RoleWorker)
	f.inspectorA = testutil.SeedMember(t, db, f.groupA, model.RoleInspector)
	testutil.SeedMember(t, db, f.groupB, model.RoleGroupManager)

	f.svc = MustNewRoutingService(RoutingServiceOptions{
		DB:           db,
		Store:        data.NewRoutingStoreWithTimeProvider(f.clock),
		Groups:       data.NewGroupDirectoryRepo(db),
		TimeProvider: f.clock,
	})
	return f
}

func (f *routingFixture) createJob(t *testing.T, req model.CreateJobRequest) *model.JobRouting {
	t.Helper()
	routing, err := f.svc.CreateJob(context.Background(), req, f.actor)
	require.NoError(t, err)
	return routing
}

func (f *routingFixture) countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func (f *routingFixture) logActions(t *testing.T, jobID string) []string {
	t.Helper()
	rows, err := f.db.QueryContext(context.Background(),
		`SELECT action FROM job_logs WHERE job_id = $1 ORDER BY created_at, action`, jobID)
	require.NoError(t, err)
	defer rows.Close()
	var actions []string
	for rows.Next() {
		var a string
		require.NoError(t, rows.Scan(&a))
		actions = append(actions, a)
	}
	require.NoError(t, rows.Err())
	return actions
}

func activeCount(assignments []model.Assignment) int {
	n := 0
	for _, a := range assignments {
		if a.IsActive {
			n++
		}
	}
	return n
}

func TestCreateJob(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	routing := f.createJob(t, testutil.NewJobRequest(f.groupA).
		WithJobID("WO-1001").
		WithNotes("first note").
		Build())

	assert.Equal(t, model.JobStatusOpen, routing.Job.Status)
	require.Len(t, routing.Assignments, 1)
	a := routing.Assignments[0]
	assert.True(t, a.IsHome)
	assert.True(t, a.IsActive)
	assert.Equal(t, model.JobStatusOpen, a.Status)
	assert.Equal(t, f.groupA, a.GroupID)

	assert.Equal(t, []string{"create"}, f.logActions(t, routing.Job.ID))
	assert.Equal(t, 1, f.countRows(t, `SELECT COUNT(*) FROM job_notes WHERE job_id = $1`, routing.Job.ID))

	// A second job with the same external id is rejected.
	_, err := f.svc.CreateJob(ctx, testutil.NewJobRequest(f.groupA).WithJobID("WO-1001").Build(), f.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateJobPriorityFanout(t *testing.T) {
	f := setupRoutingTest(t)

	routing := f.createJob(t, testutil.NewJobRequest(f.groupA).WithPriority().Build())

	// Recipients are the group's field staff: the worker, but not the
	// admin actor or the inspector.
	rows, err := f.db.Query(
		`SELECT receiver_id FROM notifications WHERE assignment_id = $1`,
		routing.Assignments[0].ID)
	require.NoError(t, err)
	defer rows.Close()
	var receivers []string
	for rows.Next() {
		var r string
		require.NoError(t, rows.Scan(&r))
		receivers = append(receivers, r)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{f.workerA}, receivers)
}

func TestCreateJobArchivedGroup(t *testing.T) {
	f := setupRoutingTest(t)
	archived := testutil.SeedArchivedGroup(t, f.db, "Old Group")

	_, err := f.svc.CreateJob(context.Background(), testutil.NewJobRequest(archived).Build(), f.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransferToNewGroup(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).WithFurtherInspection().Build())
	homeID := created.Assignments[0].ID

	routing, err := f.svc.Transfer(ctx, model.TransferRequest{
		AssignmentID:  homeID,
		TargetGroupID: f.groupB,
	}, f.actor)
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusTransfer, routing.Job.Status)
	require.Len(t, routing.Assignments, 2)
	assert.Equal(t, 1, activeCount(routing.Assignments))

	home := routing.Home()
	require.NotNil(t, home)
	assert.Equal(t, f.groupA, home.GroupID)
	assert.False(t, home.IsActive)

	active := routing.Active()
	require.NotNil(t, active)
	assert.Equal(t, f.groupB, active.GroupID)
	assert.Equal(t, model.JobStatusOpen, active.Status)
	assert.False(t, active.IsHome)
	// The new assignment inherits the job's inspection flag.
	assert.True(t, active.FurtherInspection)

	assert.Equal(t, []string{"create", "transfer"}, f.logActions(t, routing.Job.ID))
}

func TestTransferReactivatesExistingAssignment(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	homeID := created.Assignments[0].ID

	r1, err := f.svc.Transfer(ctx, model.TransferRequest{AssignmentID: homeID, TargetGroupID: f.groupB}, f.actor)
	require.NoError(t, err)
	require.Len(t, r1.Assignments, 2)

	// Transfer back to the home group: the existing row is reused, no
	// third assignment appears.
	r2, err := f.svc.Transfer(ctx, model.TransferRequest{
		AssignmentID:  r1.Active().ID,
		TargetGroupID: f.groupA,
	}, f.actor)
	require.NoError(t, err)
	require.Len(t, r2.Assignments, 2)
	assert.Equal(t, 1, activeCount(r2.Assignments))

	home := r2.Home()
	require.NotNil(t, home)
	assert.Equal(t, homeID, home.ID)
	assert.True(t, home.IsActive)
	assert.Equal(t, model.JobStatusOpen, home.Status)
	// The job mirrors its home assignment again.
	assert.Equal(t, model.JobStatusOpen, r2.Job.Status)

	// The sibling went to transfer/inactive in bulk.
	for _, a := range r2.Assignments {
		if a.ID != home.ID {
			assert.False(t, a.IsActive)
			assert.Equal(t, model.JobStatusTransfer, a.Status)
		}
	}
}

func TestTransferToArchivedGroup(t *testing.T) {
	f := setupRoutingTest(t)
	archived := testutil.SeedArchivedGroup(t, f.db, "Closed Region")

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	_, err := f.svc.Transfer(context.Background(), model.TransferRequest{
		AssignmentID:  created.Assignments[0].ID,
		TargetGroupID: archived,
	}, f.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransferMany(t *testing.T) {
	f := setupRoutingTest(t)

	j1 := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	j2 := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())

	out, err := f.svc.TransferMany(context.Background(),
		[]string{j1.Assignments[0].ID, j2.Assignments[0].ID}, f.groupB, f.actor)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, routing := range out {
		assert.Equal(t, model.JobStatusTransfer, routing.Job.Status)
		assert.Equal(t, f.groupB, routing.Active().GroupID)
	}
}

func TestCloseCascadesAndSetsClosedAtOnce(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	homeID := created.Assignments[0].ID
	transferred, err := f.svc.Transfer(ctx, model.TransferRequest{AssignmentID: homeID, TargetGroupID: f.groupB}, f.actor)
	require.NoError(t, err)

	f.clock.AddTime(time.Minute)
	firstClose := f.clock.Now().UTC()
	routing, err := f.svc.Close(ctx, model.CloseRequest{
		AssignmentID: transferred.Active().ID,
		Notes:        []string{"repaired"},
	}, f.actor)
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusClose, routing.Job.Status)
	require.NotNil(t, routing.Job.ClosedAt)
	assert.True(t, routing.Job.ClosedAt.Equal(firstClose))
	assert.Equal(t, 1, activeCount(routing.Assignments))

	home := routing.Home()
	require.NotNil(t, home)
	assert.True(t, home.IsActive)
	assert.Equal(t, model.JobStatusClose, home.Status)
	for _, a := range routing.Assignments {
		if a.ID != home.ID {
			assert.False(t, a.IsActive)
			assert.Equal(t, model.JobStatusClose, a.Status)
		}
	}

	// Reclosing later updates content but never moves closed_at and logs
	// an update instead of a second close.
	f.clock.AddTime(48 * time.Hour)
	reclosed, err := f.svc.Close(ctx, model.CloseRequest{AssignmentID: home.ID}, f.actor)
	require.NoError(t, err)
	require.NotNil(t, reclosed.Job.ClosedAt)
	assert.True(t, reclosed.Job.ClosedAt.Equal(firstClose))
	assert.Equal(t, []string{"create", "transfer", "close", "update"}, f.logActions(t, routing.Job.ID))
}

func TestCloseWithHomeReassignment(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	workerB := testutil.SeedMember(t, f.db, f.groupB, model.RoleWorker)

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	transferred, err := f.svc.Transfer(ctx, model.TransferRequest{
		AssignmentID:  created.Assignments[0].ID,
		TargetGroupID: f.groupB,
	}, f.actor)
	require.NoError(t, err)

	// Group B already holds an assignment, so the home marker flips to it.
	routing, err := f.svc.Close(ctx, model.CloseRequest{
		AssignmentID: transferred.Active().ID,
		HomeGroupID:  f.groupB,
	}, f.actor)
	require.NoError(t, err)

	home := routing.Home()
	require.NotNil(t, home)
	assert.Equal(t, f.groupB, home.GroupID)
	require.Len(t, routing.Assignments, 2)

	// The close notification points at the assignment holding the home
	// marker after the reassignment, not the one that held it before.
	assert.Equal(t, 1, f.countRows(t,
		`SELECT COUNT(*) FROM notifications
		 WHERE receiver_id = $1 AND assignment_id = $2 AND notification_type = 'close'`,
		workerB, home.ID))
	assert.Equal(t, transferred.Active().ID, home.ID)
}

func TestCloseBillUpsertSemantics(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()
	bills := data.NewCloseBillRepo(f.db)

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	homeID := created.Assignments[0].ID

	// New lines insert, marked as created at close time.
	_, err := f.svc.Close(ctx, model.CloseRequest{
		AssignmentID: homeID,
		Bills: []model.BillLine{
			{Name: "Asphalt", BillType: model.BillTypeMaterial, Measurement: 2.5},
			{Name: "Stop sign", BillType: model.BillTypeSign, Measurement: 1},
		},
	}, f.actor)
	require.NoError(t, err)

	lines, err := bills.ListBills(ctx, created.Job.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, l.IsCreated)
	}

	// A line with an id updates measurement only; measurement zero deletes.
	var asphaltID string
	for _, l := range lines {
		if l.Name == "Asphalt" {
			asphaltID = l.ID
		} else {
			_, err = f.svc.Close(ctx, model.CloseRequest{
				AssignmentID: homeID,
				Bills:        []model.BillLine{{BillID: &l.ID, Name: l.Name, BillType: l.BillType, Measurement: 0}},
			}, f.actor)
			require.NoError(t, err)
		}
	}
	_, err = f.svc.Close(ctx, model.CloseRequest{
		AssignmentID: homeID,
		Bills:        []model.BillLine{{BillID: &asphaltID, Name: "Asphalt", BillType: model.BillTypeMaterial, Measurement: 4}},
	}, f.actor)
	require.NoError(t, err)

	lines, err = bills.ListBills(ctx, created.Job.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, asphaltID, lines[0].ID)
	assert.InDelta(t, 4, lines[0].Measurement, 0.0001)

	// Resubmitting a line without an id is a fresh insert, not a dedupe.
	_, err = f.svc.Close(ctx, model.CloseRequest{
		AssignmentID: homeID,
		Bills:        []model.BillLine{{Name: "Asphalt", BillType: model.BillTypeMaterial, Measurement: 4}},
	}, f.actor)
	require.NoError(t, err)
	lines, err = bills.ListBills(ctx, created.Job.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestPartialCloseTouchesOnlyActedAssignment(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	transferred, err := f.svc.Transfer(ctx, model.TransferRequest{
		AssignmentID:  created.Assignments[0].ID,
		TargetGroupID: f.groupB,
	}, f.actor)
	require.NoError(t, err)
	acted := transferred.Active()

	f.clock.AddTime(time.Minute)
	routing, err := f.svc.PartialClose(ctx, model.PartialCloseRequest{AssignmentID: acted.ID}, f.actor)
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusPartial, routing.Job.Status)
	assert.Nil(t, routing.Job.ClosedAt)
	for _, a := range routing.Assignments {
		if a.ID == acted.ID {
			assert.Equal(t, model.JobStatusPartial, a.Status)
			// Activity is untouched by a partial close.
			assert.True(t, a.IsActive)
		} else {
			assert.NotEqual(t, model.JobStatusPartial, a.Status)
		}
	}

	// A repeat partial close is a metadata update: no second notification
	// and an update log entry.
	before := f.countRows(t, `SELECT COUNT(*) FROM notifications`)
	_, err = f.svc.PartialClose(ctx, model.PartialCloseRequest{AssignmentID: acted.ID}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, before, f.countRows(t, `SELECT COUNT(*) FROM notifications`))
	assert.Equal(t, []string{"create", "transfer", "partial", "update"}, f.logActions(t, routing.Job.ID))
}

func TestUpdateJobIsMetadataOnly(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	homeID := created.Assignments[0].ID

	before := f.countRows(t, `SELECT COUNT(*) FROM notifications`)
	newAddr := "99 Revised Way"
	routing, err := f.svc.UpdateJob(ctx, model.UpdateJobRequest{
		AssignmentID: homeID,
		Fields:       model.JobFields{Address: &newAddr},
	}, f.actor)
	require.NoError(t, err)

	assert.Equal(t, "99 Revised Way", routing.Job.Address)
	assert.Equal(t, model.JobStatusOpen, routing.Job.Status)
	assert.Equal(t, before, f.countRows(t, `SELECT COUNT(*) FROM notifications`))
	assert.Equal(t, []string{"create", "update"}, f.logActions(t, routing.Job.ID))
}

func TestUpdateJobDuplicateExternalIDConflicts(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	f.createJob(t, testutil.NewJobRequest(f.groupA).WithJobID("WO-TAKEN").Build())
	other := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())

	taken := "WO-TAKEN"
	_, err := f.svc.UpdateJob(ctx, model.UpdateJobRequest{
		AssignmentID: other.Assignments[0].ID,
		Fields:       model.JobFields{JobID: &taken},
	}, f.actor)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// The rolled-back edit left the job untouched.
	assert.Equal(t, 1, f.countRows(t, `SELECT COUNT(*) FROM jobs WHERE job_id = $1`, "WO-TAKEN"))
}

func TestReassignHomeGroupMovesWhenTargetHasNoAssignment(t *testing.T) {
	f := setupRoutingTest(t)

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	routing, err := f.svc.ReassignHomeGroup(context.Background(), created.Job.ID, f.groupC, f.actor)
	require.NoError(t, err)

	// Group C never held the job, so the home assignment itself moved.
	require.Len(t, routing.Assignments, 1)
	home := routing.Home()
	require.NotNil(t, home)
	assert.Equal(t, f.groupC, home.GroupID)
	assert.Equal(t, created.Assignments[0].ID, home.ID)
}

func TestDeleteJobRemovesWholeGraph(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).
		WithPriority().
		WithNotes("to be deleted").
		Build())

	require.NoError(t, f.svc.DeleteJob(ctx, created.Job.ID, f.actor))

	for _, q := range []string{
		`SELECT COUNT(*) FROM jobs WHERE id = $1`,
		`SELECT COUNT(*) FROM assignments WHERE job_id = $1`,
		`SELECT COUNT(*) FROM job_logs WHERE job_id = $1`,
		`SELECT COUNT(*) FROM job_notes WHERE job_id = $1`,
	} {
		assert.Equal(t, 0, f.countRows(t, q, created.Job.ID))
	}
	assert.Equal(t, 0, f.countRows(t, `SELECT COUNT(*) FROM notifications`))
}

func TestMarkReviewed(t *testing.T) {
	f := setupRoutingTest(t)
	ctx := context.Background()

	created := f.createJob(t, testutil.NewJobRequest(f.groupA).Build())
	require.NoError(t, f.svc.MarkReviewed(ctx, created.Assignments[0].ID, f.actor))

	assert.Equal(t, 1, f.countRows(t,
		`SELECT COUNT(*) FROM assignments WHERE id = $1 AND is_reviewed`,
		created.Assignments[0].ID))
}
