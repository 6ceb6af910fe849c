package model

import (
	"errors"
	"strings"
	"time"
)

// AttachmentKind classifies an attachment as media (photo, video) or a
// document (report, form).
type AttachmentKind string

const (
	AttachmentMedia    AttachmentKind = "media"
	AttachmentDocument AttachmentKind = "document"
)

// Valid returns true if the AttachmentKind is valid.
func (k AttachmentKind) Valid() bool {
	return k == AttachmentMedia || k == AttachmentDocument
}

// Attachment is a file reference attached to a job. CloseAttachment marks
// files uploaded at close time rather than at creation.
type Attachment struct {
	ID              string         `json:"id"      db:"id"`
	JobID           string         `json:"job_id"  db:"job_id"`
	Kind            AttachmentKind `json:"kind"    db:"kind"`
	Ref             string         `json:"ref"     db:"ref"`
	CloseAttachment bool           `json:"close_attachment" db:"close_attachment"`
	CreatedBy       *string        `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// Validate validates the attachment fields.
func (a *Attachment) Validate() error {
	if !a.Kind.Valid() {
		return errors.New("invalid attachment kind")
	}
	if strings.TrimSpace(a.Ref) == "" {
		return errors.New("attachment ref is required")
	}
	return nil
}

// JobNote is a free-text note on a job.
type JobNote struct {
	ID        string    `json:"id"         db:"id"`
	JobID     string    `json:"job_id"     db:"job_id"`
	Note      string    `json:"note"       db:"note"`
	CreatedBy *string   `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
