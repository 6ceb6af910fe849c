package testutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldops/workorder-api/internal/domain/model"
)

// SeedGroup inserts a group and returns its id.
func SeedGroup(t TestingTB, db *sql.DB, name string) string {
	t.Helper()
	var id string
	err := db.QueryRowContext(context.Background(),
		`INSERT INTO groups (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed group %s: %v", name, err)
	}
	return id
}

// SeedArchivedGroup inserts an archived group and returns its id.
func SeedArchivedGroup(t TestingTB, db *sql.DB, name string) string {
	t.Helper()
	var id string
	err := db.QueryRowContext(context.Background(),
		`INSERT INTO groups (name, archived) VALUES ($1, TRUE) RETURNING id`, name).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed archived group %s: %v", name, err)
	}
	return id
}

// SeedMember adds a user to a group with a role and returns the user id.
func SeedMember(t TestingTB, db *sql.DB, groupID string, role model.Role) string {
	t.Helper()
	userID := uuid.NewString()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO group_members (group_id, user_id, role) VALUES ($1, $2, $3)`,
		groupID, userID, role)
	if err != nil {
		t.Fatalf("Failed to seed member in group %s: %v", groupID, err)
	}
	return userID
}

// NewUserID returns a fresh user id for use as an actor in tests.
func NewUserID() string {
	return uuid.NewString()
}

// JobRequestBuilder provides a fluent interface for building
// CreateJobRequest values for tests.
type JobRequestBuilder struct {
	req model.CreateJobRequest
}

var jobSeq int

// NewJobRequest creates a JobRequestBuilder with sensible defaults and a
// unique external job id.
func NewJobRequest(groupID string) *JobRequestBuilder {
	jobSeq++
	return &JobRequestBuilder{
		req: model.CreateJobRequest{
			JobID:   fmt.Sprintf("WO-TEST-%04d", jobSeq),
			GroupID: groupID,
			Address: "1 Test St",
		},
	}
}

// WithJobID sets the external job id.
func (b *JobRequestBuilder) WithJobID(id string) *JobRequestBuilder {
	b.req.JobID = id
	return b
}

// WithAddress sets the address.
func (b *JobRequestBuilder) WithAddress(address string) *JobRequestBuilder {
	b.req.Address = address
	return b
}

// WithPriority marks the job as priority.
func (b *JobRequestBuilder) WithPriority() *JobRequestBuilder {
	b.req.Priority = true
	return b
}

// WithFurtherInspection sets the further inspection flag.
func (b *JobRequestBuilder) WithFurtherInspection() *JobRequestBuilder {
	b.req.FurtherInspection = true
	return b
}

// WithNotes sets the initial notes.
func (b *JobRequestBuilder) WithNotes(notes ...string) *JobRequestBuilder {
	b.req.Notes = notes
	return b
}

// Build returns the assembled request.
func (b *JobRequestBuilder) Build() model.CreateJobRequest {
	return b.req
}
