package model

import (
	"errors"
	"strings"
	"time"
)

// BillType distinguishes material bills from sign bills.
type BillType string

const (
	// BillTypeMaterial is a material quantity line.
	BillTypeMaterial BillType = "material"
	// BillTypeSign is a signage line.
	BillTypeSign BillType = "sign"
)

// Valid returns true if the BillType is valid.
func (t BillType) Valid() bool {
	return t == BillTypeMaterial || t == BillTypeSign
}

// CloseBill is one quantity line item attached to a job at close or
// partial-close time. Reporting consumes these read-only.
type CloseBill struct {
	ID           string    `json:"id"            db:"id"`
	JobID        string    `json:"job_id"        db:"job_id"`
	Name         string    `json:"name"          db:"name"`
	BillType     BillType  `json:"bill_type"     db:"bill_type"`
	TypeCounting string    `json:"type_counting" db:"type_counting"`
	JumpingRatio *float64  `json:"jumping_ratio,omitempty" db:"jumping_ratio"`
	Image        *string   `json:"image,omitempty"         db:"image"`
	Measurement  float64   `json:"measurement"   db:"measurement"`
	IsCreated    bool      `json:"is_created"    db:"is_created"`
	CreatedBy    *string   `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy    *string   `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"    db:"updated_at"`
}

// BillLine is one submitted billing line. A line without a BillID is an
// insert; a line with one updates only the measurement of the existing row;
// a line with a BillID and measurement 0 deletes the row.
//
// The upsert is keyed by the client-supplied BillID, not by content, so
// resubmitting the same logical "new" line without an id produces duplicate
// rows. That is the recorded product behavior; do not dedupe here.
type BillLine struct {
	BillID       *string  `json:"bill_id,omitempty"`
	Name         string   `json:"name"`
	BillType     BillType `json:"bill_type"`
	TypeCounting string   `json:"type_counting,omitempty"`
	JumpingRatio *float64 `json:"jumping_ratio,omitempty"`
	Image        *string  `json:"image,omitempty"`
	Measurement  float64  `json:"measurement"`
}

// Validate validates the BillLine fields.
func (l *BillLine) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("bill name is required")
	}
	if !l.BillType.Valid() {
		return errors.New("invalid bill type")
	}
	if l.Measurement < 0 {
		return errors.New("measurement must be >= 0")
	}
	return nil
}
