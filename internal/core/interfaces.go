package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/domain/model"
)

// This file contains the port definitions between the service layer and its
// collaborators (hexagonal architecture). Service implementations depend on
// these interfaces, not concrete implementations.

// GroupDirectory resolves groups and role-scoped membership. It backs all
// notification recipient math and transfer target validation.
type GroupDirectory interface {
	// GetGroup returns the group, including archived ones. Missing groups
	// return a not_found error.
	GetGroup(ctx context.Context, id string) (*model.Group, error)
	// ListMembers returns all memberships of a group.
	ListMembers(ctx context.Context, groupID string) ([]model.Member, error)
}

// PushMessage is one push delivery request. Recipients are user ids; the
// sender chunks them per downstream limits.
type PushMessage struct {
	Title      string
	Body       string
	Data       map[string]string
	Recipients []string
}

// PushSender delivers push notifications. Delivery is best-effort; callers
// never fail an operation on a send error.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) error
}

// UpdateAssignmentStateParams groups the optional per-assignment state
// changes for RoutingStore.UpdateAssignmentState. Nil fields are left
// untouched.
type UpdateAssignmentStateParams struct {
	ID                string
	Status            *model.JobStatus
	IsActive          *bool
	IsHome            *bool
	IsReviewed        *bool
	FurtherInspection *bool
	FurtherBilling    *bool
	LockClosed        *bool
	UpdatedBy         string
}

// DeactivateSiblingsParams groups parameters for RoutingStore.DeactivateSiblings.
type DeactivateSiblingsParams struct {
	JobID            string
	KeepAssignmentID string
	Status           model.JobStatus
	UpdatedBy        string
}

// InsertAttachmentsParams groups parameters for RoutingStore.InsertAttachments.
type InsertAttachmentsParams struct {
	JobID           string
	Attachments     []model.Attachment
	CloseAttachment bool
	CreatedBy       string
}

// RoutingStore is the transactional write surface for job routing. Every
// method runs against the caller's transaction; operations lock the job row
// first so concurrent transitions serialize per job.
type RoutingStore interface {
	// LockJob reads the job row FOR UPDATE.
	LockJob(ctx context.Context, tx pgx.Tx, jobID string) (*model.Job, error)
	ExternalIDExists(ctx context.Context, tx pgx.Tx, externalID string) (bool, error)
	InsertJob(ctx context.Context, tx pgx.Tx, job *model.Job) (*model.Job, error)
	UpdateJobFields(ctx context.Context, tx pgx.Tx, jobID string, fields model.JobFields, updatedBy string) error
	SetJobStatus(ctx context.Context, tx pgx.Tx, jobID string, status model.JobStatus, updatedBy string) error
	// MarkJobClosed sets closed_at and closed_by only when closed_at is
	// still unset. Reclosing never moves the original timestamp.
	MarkJobClosed(ctx context.Context, tx pgx.Tx, jobID, closedBy string, at time.Time) error
	AppendDuplicateReference(ctx context.Context, tx pgx.Tx, jobID, externalID string) error
	// DeleteJobGraph removes the job and every owned row in explicit
	// dependency order.
	DeleteJobGraph(ctx context.Context, tx pgx.Tx, jobID string) error

	GetAssignment(ctx context.Context, tx pgx.Tx, id string) (*model.Assignment, error)
	ListJobAssignments(ctx context.Context, tx pgx.Tx, jobID string) ([]model.Assignment, error)
	// FindAssignment returns the (job, group) assignment or nil when the
	// group has never held the job.
	FindAssignment(ctx context.Context, tx pgx.Tx, jobID, groupID string) (*model.Assignment, error)
	InsertAssignment(ctx context.Context, tx pgx.Tx, a *model.Assignment) (*model.Assignment, error)
	UpdateAssignmentState(ctx context.Context, tx pgx.Tx, params UpdateAssignmentStateParams) error
	// MoveAssignmentGroup repoints an assignment at another group. Used when
	// the home group changes and the new group has no assignment to flip to.
	MoveAssignmentGroup(ctx context.Context, tx pgx.Tx, assignmentID, groupID, updatedBy string) error
	// DeactivateSiblings deactivates every other assignment of the job and
	// sets their status. Returns the number of rows touched.
	DeactivateSiblings(ctx context.Context, tx pgx.Tx, params DeactivateSiblingsParams) (int64, error)

	InsertReturnCase(ctx context.Context, tx pgx.Tx, rc *model.ReturnCase) (*model.ReturnCase, error)
	GetReturnCase(ctx context.Context, tx pgx.Tx, id string) (*model.ReturnCase, error)
	DuplicateCaseExists(ctx context.Context, tx pgx.Tx, assignmentID, duplicateAssignmentID string) (bool, error)
	DeleteReturnCase(ctx context.Context, tx pgx.Tx, id string) error

	InsertJobLog(ctx context.Context, tx pgx.Tx, log *model.JobLog) error
	InsertNotifications(ctx context.Context, tx pgx.Tx, notifications []model.Notification) error

	// UpsertBills applies submitted bill lines: lines without a bill id
	// insert, lines with an id update measurement only, and an id with
	// measurement 0 deletes the row.
	UpsertBills(ctx context.Context, tx pgx.Tx, jobID string, lines []model.BillLine, actor string) error
	InsertNotes(ctx context.Context, tx pgx.Tx, jobID string, notes []string, actor string) error
	InsertAttachments(ctx context.Context, tx pgx.Tx, params InsertAttachmentsParams) error
	DeleteAttachments(ctx context.Context, tx pgx.Tx, jobID string, ids []string) error
}

// AssignmentReader is the list/report read surface over assignments.
type AssignmentReader interface {
	ListAssignments(ctx context.Context, opts model.AssignmentListOptions) ([]*model.AssignmentWithJob, error)
	StatusCounts(ctx context.Context, opts model.AssignmentListOptions) (*model.JobStatusCounts, error)
}

// ReturnCaseReader lists pending return cases.
type ReturnCaseReader interface {
	ListReturnCases(ctx context.Context, opts model.ReturnCaseListOptions) ([]*model.ReturnCase, error)
}

// NotificationReader lists persisted notifications for a user.
type NotificationReader interface {
	ListNotifications(ctx context.Context, userID string, since time.Time) ([]*model.Notification, error)
}

// RecentSearchRepository stores per-user recent search terms.
type RecentSearchRepository interface {
	// PushSearch records a search term, keeping the newest entries up to the
	// repository's cap.
	PushSearch(ctx context.Context, userID, term string) error
	RecentSearches(ctx context.Context, userID string) ([]string, error)
}
