package model

import (
	"fmt"
	"strings"
)

// CloseRequest represents a request to fully close a job from one of its
// assignments. Field updates, bill lines and attachment changes ride along
// in the same transaction.
type CloseRequest struct {
	AssignmentID string       `json:"assignment_id"`
	Fields       JobFields    `json:"fields"`
	Bills        []BillLine   `json:"bills,omitempty"`
	Notes        []string     `json:"notes,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	// RemoveAttachmentIDs deletes previously uploaded attachments by id.
	RemoveAttachmentIDs []string `json:"remove_attachment_ids,omitempty"`
	// HomeGroupID optionally reassigns the home group as part of the close.
	HomeGroupID string `json:"home_group_id,omitempty"`
}

// Validate validates the CloseRequest fields.
func (r *CloseRequest) Validate() error {
	if strings.TrimSpace(r.AssignmentID) == "" {
		return fmt.Errorf("assignment id is required")
	}
	for i := range r.Bills {
		if err := r.Bills[i].Validate(); err != nil {
			return fmt.Errorf("bill %d: %w", i, err)
		}
	}
	for i := range r.Attachments {
		if err := r.Attachments[i].Validate(); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
	}
	return nil
}

// PartialCloseRequest represents a partial close of one assignment. Billing
// and attachments are handled as in a full close, but only the acted-on
// assignment changes state and closed_at stays untouched.
type PartialCloseRequest struct {
	AssignmentID        string       `json:"assignment_id"`
	Fields              JobFields    `json:"fields"`
	Bills               []BillLine   `json:"bills,omitempty"`
	Notes               []string     `json:"notes,omitempty"`
	Attachments         []Attachment `json:"attachments,omitempty"`
	RemoveAttachmentIDs []string     `json:"remove_attachment_ids,omitempty"`
}

// Validate validates the PartialCloseRequest fields.
func (r *PartialCloseRequest) Validate() error {
	c := CloseRequest{
		AssignmentID: r.AssignmentID,
		Bills:        r.Bills,
		Attachments:  r.Attachments,
	}
	return c.Validate()
}

// UpdateJobRequest represents a metadata-only edit: no status transition, no
// notification fan-out.
type UpdateJobRequest struct {
	AssignmentID        string       `json:"assignment_id"`
	Fields              JobFields    `json:"fields"`
	Notes               []string     `json:"notes,omitempty"`
	Attachments         []Attachment `json:"attachments,omitempty"`
	RemoveAttachmentIDs []string     `json:"remove_attachment_ids,omitempty"`
	HomeGroupID         string       `json:"home_group_id,omitempty"`
}

// Validate validates the UpdateJobRequest fields.
func (r *UpdateJobRequest) Validate() error {
	if strings.TrimSpace(r.AssignmentID) == "" {
		return fmt.Errorf("assignment id is required")
	}
	for i := range r.Attachments {
		if err := r.Attachments[i].Validate(); err != nil {
			return fmt.Errorf("attachment %d: %w", i, err)
		}
	}
	return nil
}
