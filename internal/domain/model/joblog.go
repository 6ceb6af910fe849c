package model

import "time"

// LogAction labels one audit log entry.
type LogAction string

const (
	// LogActionCreate records job creation.
	LogActionCreate LogAction = "create"
	// LogActionUpdate records a metadata edit or a reclose.
	LogActionUpdate LogAction = "update"
	// LogActionTransfer records a routing change.
	LogActionTransfer LogAction = "transfer"
	// LogActionReturn records a return or duplicate flag.
	LogActionReturn LogAction = "return"
	// LogActionClose records a full close.
	LogActionClose LogAction = "close"
	// LogActionPartial records a partial close.
	LogActionPartial LogAction = "partial"
)

// Valid returns true if the LogAction is valid.
func (a LogAction) Valid() bool {
	switch a {
	case LogActionCreate, LogActionUpdate, LogActionTransfer,
		LogActionReturn, LogActionClose, LogActionPartial:
		return true
	default:
		return false
	}
}

// JobLog is one append-only audit entry. Exactly one actor column is set per
// row, matching the action: create→CreatedBy, update→UpdatedBy,
// transfer→TransferredBy, return→ReturnedBy, close→ClosedBy,
// partial→PartiallyClosedBy. Entries are never updated or deleted.
type JobLog struct {
	ID                string    `json:"id"                            db:"id"`
	JobID             string    `json:"job_id"                        db:"job_id"`
	Action            LogAction `json:"action"                        db:"action"`
	CreatedBy         *string   `json:"created_by,omitempty"          db:"created_by"`
	UpdatedBy         *string   `json:"updated_by,omitempty"          db:"updated_by"`
	TransferredBy     *string   `json:"transferred_by,omitempty"      db:"transferred_by"`
	ReturnedBy        *string   `json:"returned_by,omitempty"         db:"returned_by"`
	ClosedBy          *string   `json:"closed_by,omitempty"           db:"closed_by"`
	PartiallyClosedBy *string   `json:"partially_closed_by,omitempty" db:"partially_closed_by"`
	CreatedAt         time.Time `json:"created_at"                    db:"created_at"`
}

// Actor returns the single actor id recorded for this entry.
func (l *JobLog) Actor() string {
	for _, p := range []*string{
		l.CreatedBy, l.UpdatedBy, l.TransferredBy,
		l.ReturnedBy, l.ClosedBy, l.PartiallyClosedBy,
	} {
		if p != nil {
			return *p
		}
	}
	return ""
}
