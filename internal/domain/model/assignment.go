package model

import "time"

// Assignment is one (job, group) routing record. It carries the per-group
// status independently from the job's canonical status; the two may diverge
// briefly inside a multi-step transition.
//
// Exactly one assignment per job is the home assignment (IsHome) and, outside
// a transition's transactional window, exactly one is active (IsActive). The
// home assignment is authoritative for close/return targeting and reporting.
type Assignment struct {
	ID                string    `json:"id"                 db:"id"`
	JobID             string    `json:"job_id"             db:"job_id"`
	GroupID           string    `json:"group_id"           db:"group_id"`
	Status            JobStatus `json:"status"             db:"status"`
	IsActive          bool      `json:"is_active"          db:"is_active"`
	IsHome            bool      `json:"is_home"            db:"is_home"`
	IsReviewed        bool      `json:"is_reviewed"        db:"is_reviewed"`
	FurtherInspection bool      `json:"further_inspection" db:"further_inspection"`
	FurtherBilling    bool      `json:"further_billing"    db:"further_billing"`
	LockClosed        bool      `json:"lock_closed"        db:"lock_closed"`
	CreatedBy         *string   `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy         *string   `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt         time.Time `json:"created_at"         db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"         db:"updated_at"`
}

// JobRouting is the read model returned by routing operations: the job
// together with its full assignment set.
type JobRouting struct {
	Job         Job          `json:"job"`
	Assignments []Assignment `json:"assignments"`
}

// Home returns the home assignment, or nil if the set is empty.
func (r *JobRouting) Home() *Assignment {
	for i := range r.Assignments {
		if r.Assignments[i].IsHome {
			return &r.Assignments[i]
		}
	}
	return nil
}

// Active returns the active assignment, or nil if none is active.
func (r *JobRouting) Active() *Assignment {
	for i := range r.Assignments {
		if r.Assignments[i].IsActive {
			return &r.Assignments[i]
		}
	}
	return nil
}

// TransferRequest represents a request to route a job to another group.
type TransferRequest struct {
	AssignmentID  string `json:"assignment_id"`
	TargetGroupID string `json:"target_group_id"`
	// OverrideStatus replaces the default statuses written on a new-row
	// transfer: the job's transfer status and the new assignment's open
	// status.
	OverrideStatus *JobStatus `json:"override_status,omitempty"`
}

// AssignmentListOptions holds request-scoped filters for assignment listing.
// The group filter is always explicit; there is no ambient per-session
// "previous group" state.
type AssignmentListOptions struct {
	GroupID    *string    `json:"group_id,omitempty"`
	Status     *JobStatus `json:"status,omitempty"`
	ActiveOnly bool       `json:"active_only,omitempty"`
	Search     *string    `json:"search,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	ClosedFrom *time.Time `json:"closed_from,omitempty"`
	ClosedTo   *time.Time `json:"closed_to,omitempty"`
	SortAsc    bool       `json:"sort_asc,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// AssignmentWithJob pairs an assignment row with its job for list views.
type AssignmentWithJob struct {
	Assignment
	ExternalJobID string    `json:"external_job_id" db:"external_job_id"`
	Address       string    `json:"address"         db:"address"`
	JobPriority   bool      `json:"job_priority"    db:"job_priority"`
	JobStatus     JobStatus `json:"job_status"      db:"canonical_status"`
}
