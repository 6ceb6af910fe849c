package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/workorder-api/internal/domain/model"
	"github.com/fieldops/workorder-api/internal/testutil"
)

func seedListJob(t *testing.T, db *sql.DB, externalID, address string) string {
	t.Helper()
	var id string
	err := db.QueryRow(
		`INSERT INTO jobs (job_id, address) VALUES ($1, $2) RETURNING id`,
		externalID, address).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedListAssignment(
	t *testing.T,
	db *sql.DB,
	jobID, groupID string,
	status model.JobStatus,
	active, home bool,
	createdAt time.Time,
) string {
	t.Helper()
	var id string
	err := db.QueryRow(
		`INSERT INTO assignments (job_id, group_id, status, is_active, is_home, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		jobID, groupID, status, active, home, createdAt).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestListAssignmentsFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	ctx := context.Background()
	repo := NewAssignmentRepo(db)

	g1 := testutil.SeedGroup(t, db, "List G1")
	g2 := testutil.SeedGroup(t, db, "List G2")
	archived := testutil.SeedArchivedGroup(t, db, "List Archived")

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job1 := seedListJob(t, db, "WO-100", "10 Main St")
	job2 := seedListJob(t, db, "WO-200", "20 Oak Ave")
	job3 := seedListJob(t, db, "WO-300", "30 Hidden Rd")

	seedListAssignment(t, db, job1, g1, model.JobStatusOpen, true, true, base)
	seedListAssignment(t, db, job2, g1, model.JobStatusTransfer, false, true, base.Add(time.Hour))
	seedListAssignment(t, db, job2, g2, model.JobStatusOpen, true, false, base.Add(2*time.Hour))
	// Rows in archived groups never appear in list views.
	seedListAssignment(t, db, job3, archived, model.JobStatusOpen, true, true, base)

	t.Run("no filters excludes archived groups", func(t *testing.T) {
		rows, err := repo.ListAssignments(ctx, model.AssignmentListOptions{})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		// Default order is newest first.
		assert.Equal(t, "WO-200", rows[0].ExternalJobID)
		assert.Equal(t, g2, rows[0].GroupID)
		assert.Equal(t, "WO-100", rows[2].ExternalJobID)
	})

	t.Run("group filter", func(t *testing.T) {
		rows, err := repo.ListAssignments(ctx, model.AssignmentListOptions{GroupID: &g1})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("active only", func(t *testing.T) {
		rows, err := repo.ListAssignments(ctx, model.AssignmentListOptions{ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.True(t, row.IsActive)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		status := model.JobStatusTransfer
		rows, err := repo.ListAssignments(ctx, model.AssignmentListOptions{Status: &status})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "WO-200", rows[0].ExternalJobID)
		assert.Equal(t, g1, rows[0].GroupID)
	})

	t.Run("search matches external id and address", func(t *testing.T) {
		term := "oak"
		rows, err := repo.ListAssignments(ctx, model.AssignmentListOptions{Search: &term})
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		term = "WO-100"
		rows, err = repo.ListAssignments(ctx, model.AssignmentListOptions{Search: &term})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "10 Main St", rows[0].Address)
	})

	t.Run("date window and ascending sort", func(t *testing.T) {
		from := base.Add(30 * time.Minute)
		rows, err := repo.ListAssignments(ctx, model.AssignmentListOptions{
			From:    &from,
			SortAsc: true,
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, g1, rows[0].GroupID)
		assert.Equal(t, g2, rows[1].GroupID)
	})

	t.Run("pagination", func(t *testing.T) {
		rows, err := repo.ListAssignments(ctx, model.AssignmentListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, g1, rows[0].GroupID)
	})
}

func TestStatusCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })
	ctx := context.Background()
	repo := NewAssignmentRepo(db)

	g1 := testutil.SeedGroup(t, db, "Counts G1")
	g2 := testutil.SeedGroup(t, db, "Counts G2")
	archived := testutil.SeedArchivedGroup(t, db, "Counts Archived")

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	open := seedListJob(t, db, "WO-C1", "1 Count St")
	moved := seedListJob(t, db, "WO-C2", "2 Count St")
	returned := seedListJob(t, db, "WO-C3", "3 Count St")
	hidden := seedListJob(t, db, "WO-C4", "4 Count St")

	seedListAssignment(t, db, open, g1, model.JobStatusOpen, true, true, now)
	seedListAssignment(t, db, moved, g1, model.JobStatusTransfer, false, true, now)
	seedListAssignment(t, db, moved, g2, model.JobStatusOpen, true, false, now)
	// A returned job keeps return status on more than one row; only the
	// home row may count so the job is not reported twice.
	seedListAssignment(t, db, returned, g1, model.JobStatusReturn, true, true, now)
	seedListAssignment(t, db, returned, g2, model.JobStatusReturn, true, false, now)
	seedListAssignment(t, db, hidden, archived, model.JobStatusOpen, true, true, now)

	counts, err := repo.StatusCounts(ctx, model.AssignmentListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Open)
	assert.Equal(t, 1, counts.Return)
	assert.Equal(t, 0, counts.Transfer)
	assert.Equal(t, 0, counts.Partial)

	counts, err = repo.StatusCounts(ctx, model.AssignmentListOptions{GroupID: &g2})
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Open)
	assert.Equal(t, 0, counts.Return)
}
