package model

import (
	"fmt"
	"strings"
	"time"
)

// ReturnReason categorizes why a job was sent back.
type ReturnReason string

const (
	// ReturnReasonWrongInformation marks a correction request with a comment.
	ReturnReasonWrongInformation ReturnReason = "wrong_information"
	// ReturnReasonDuplicate flags the job as a duplicate of another job.
	ReturnReasonDuplicate ReturnReason = "duplicate"
)

// Valid returns true if the ReturnReason is valid.
func (r ReturnReason) Valid() bool {
	return r == ReturnReasonWrongInformation || r == ReturnReasonDuplicate
}

// UnmarshalText implements encoding.TextUnmarshaler for ReturnReason.
func (r *ReturnReason) UnmarshalText(text []byte) error {
	v := ReturnReason(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*r = v
		return nil
	}
	return fmt.Errorf("invalid ReturnReason: %q", string(text))
}

// ReturnCase is a pending correction request or duplicate flag awaiting
// resolution. AssignmentID points at the flagged job's home assignment (the
// record that routes the exception); DuplicateAssignmentID is set only for
// the duplicate reason and points at the assignment of the original job the
// flagged one duplicates.
//
// A case is deleted when resolved on either path, or when the duplicate is
// confirmed and merged.
type ReturnCase struct {
	ID                    string       `json:"id"                      db:"id"`
	AssignmentID          string       `json:"assignment_id"           db:"assignment_id"`
	DuplicateAssignmentID *string      `json:"duplicate_assignment_id,omitempty" db:"duplicate_assignment_id"`
	Reason                ReturnReason `json:"reason"                  db:"reason"`
	Comment               string       `json:"comment"                 db:"comment"`
	GroupID               string       `json:"group_id"                db:"group_id"`
	ReturnTo              []string     `json:"return_to"               db:"return_to"`
	CreatedBy             *string      `json:"created_by,omitempty"    db:"created_by"`
	CreatedAt             time.Time    `json:"created_at"              db:"created_at"`
}

// ReturnRequest represents a request to return or duplicate-flag a job.
type ReturnRequest struct {
	AssignmentID string       `json:"assignment_id"`
	Reason       ReturnReason `json:"reason"`
	// Comment is required for wrong-information returns.
	Comment string `json:"comment,omitempty"`
	// DuplicateOfAssignmentID names the original job's assignment when the
	// reason is duplicate.
	DuplicateOfAssignmentID string `json:"duplicate_of_assignment_id,omitempty"`
}

// Validate validates the ReturnRequest fields.
func (r *ReturnRequest) Validate() error {
	if strings.TrimSpace(r.AssignmentID) == "" {
		return fmt.Errorf("assignment id is required")
	}
	if !r.Reason.Valid() {
		return fmt.Errorf("invalid return reason: %q", r.Reason)
	}
	if r.Reason == ReturnReasonWrongInformation && strings.TrimSpace(r.Comment) == "" {
		return fmt.Errorf("comment is required for wrong-information returns")
	}
	if r.Reason == ReturnReasonDuplicate && strings.TrimSpace(r.DuplicateOfAssignmentID) == "" {
		return fmt.Errorf("duplicate-of assignment id is required for duplicate returns")
	}
	return nil
}

// ReturnCaseListOptions holds filters for listing pending return cases.
type ReturnCaseListOptions struct {
	// ResolverID limits results to cases the user may resolve (member of the
	// case's return_to set). Empty lists all cases.
	ResolverID string `json:"resolver_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}
