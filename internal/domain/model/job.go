// Package model defines the core data types and structures used throughout the workorder routing system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the canonical lifecycle state of a job. The job's
// status mirrors its home assignment's status.
type JobStatus string

const (
	// JobStatusOpen indicates a job is open and actionable in its active group.
	JobStatusOpen JobStatus = "open"
	// JobStatusTransfer indicates a job has been routed away from the group.
	JobStatusTransfer JobStatus = "transfer"
	// JobStatusClose indicates a job has been fully closed.
	JobStatusClose JobStatus = "close"
	// JobStatusPartial indicates a job has been partially closed.
	JobStatusPartial JobStatus = "partial"
	// JobStatusReturn indicates a job has been sent back for correction or
	// flagged as a duplicate and awaits resolution.
	JobStatusReturn JobStatus = "return"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*s = v
		return nil
	}
	return fmt.Errorf("invalid JobStatus: %q", string(text))
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusTransfer, JobStatusClose, JobStatusPartial, JobStatusReturn:
		return true
	default:
		return false
	}
}

// Job represents one work order's durable identity and content.
type Job struct {
	ID                 string     `json:"id"                  db:"id"`
	JobID              string     `json:"job_id"              db:"job_id"`
	Address            string     `json:"address"             db:"address"`
	AddressInformation string     `json:"address_information" db:"address_information"`
	Latitude           *float64   `json:"latitude,omitempty"  db:"latitude"`
	Longitude          *float64   `json:"longitude,omitempty" db:"longitude"`
	Description        string     `json:"description"         db:"description"`
	Status             JobStatus  `json:"status"              db:"status"`
	Priority           bool       `json:"priority"            db:"priority"`
	FurtherInspection  bool       `json:"further_inspection"  db:"further_inspection"`
	FurtherBilling     bool       `json:"further_billing"     db:"further_billing"`
	LockClosed         bool       `json:"lock_closed"         db:"lock_closed"`
	ClosedAt           *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	DuplicateReference string     `json:"duplicate_reference" db:"duplicate_reference"`
	CreatedBy          *string    `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy          *string    `json:"updated_by,omitempty" db:"updated_by"`
	ClosedBy           *string    `json:"closed_by,omitempty"  db:"closed_by"`
	CreatedAt          time.Time  `json:"created_at"          db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"          db:"updated_at"`
}

// DuplicateReferences returns the external job ids merged into this job.
func (j *Job) DuplicateReferences() []string {
	if strings.TrimSpace(j.DuplicateReference) == "" {
		return nil
	}
	parts := strings.Split(j.DuplicateReference, ",")
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			refs = append(refs, v)
		}
	}
	return refs
}

// CreateJobRequest represents a request to create a new work order.
type CreateJobRequest struct {
	JobID              string       `json:"job_id"`
	GroupID            string       `json:"group_id"`
	Address            string       `json:"address"`
	AddressInformation string       `json:"address_information,omitempty"`
	Latitude           *float64     `json:"latitude,omitempty"`
	Longitude          *float64     `json:"longitude,omitempty"`
	Description        string       `json:"description,omitempty"`
	Priority           bool         `json:"priority,omitempty"`
	FurtherInspection  bool         `json:"further_inspection,omitempty"`
	LockClosed         bool         `json:"lock_closed,omitempty"`
	Notes              []string     `json:"notes,omitempty"`
	Attachments        []Attachment `json:"attachments,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(r.GroupID) == "" {
		return errors.New("group id is required")
	}
	if strings.TrimSpace(r.Address) == "" {
		return errors.New("address is required")
	}
	for i := range r.Attachments {
		if err := r.Attachments[i].Validate(); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
	}
	return nil
}

// JobFields holds the mutable job content fields applied during close,
// metadata edits, and wrong-information resolution.
type JobFields struct {
	JobID              *string  `json:"job_id,omitempty"`
	Address            *string  `json:"address,omitempty"`
	AddressInformation *string  `json:"address_information,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Priority           *bool    `json:"priority,omitempty"`
	FurtherInspection  *bool    `json:"further_inspection,omitempty"`
	FurtherBilling     *bool    `json:"further_billing,omitempty"`
}

// Empty returns true when no field update is present.
func (f JobFields) Empty() bool {
	return f.JobID == nil && f.Address == nil && f.AddressInformation == nil &&
		f.Latitude == nil && f.Longitude == nil && f.Description == nil &&
		f.Priority == nil && f.FurtherInspection == nil && f.FurtherBilling == nil
}

// JobStatusCounts represents per-status counts over active assignments.
type JobStatusCounts struct {
	Open     int `json:"open"     db:"open"`
	Partial  int `json:"partial"  db:"partial"`
	Return   int `json:"return"   db:"return"`
	Transfer int `json:"transfer" db:"transfer"`
}
