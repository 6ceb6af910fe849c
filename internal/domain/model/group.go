package model

import (
	"time"
)

// Role is a member's function within a group.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleGroupManager Role = "group_manager"
	RoleInspector    Role = "inspector"
	RoleWorker       Role = "worker"
)

// Valid returns true if the Role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGroupManager, RoleInspector, RoleWorker:
		return true
	}
	return false
}

// Group is an organizational unit that jobs are assigned to. Archived
// groups are retained for history but cannot receive new work.
type Group struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Archived  bool      `json:"archived"   db:"archived"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Member is a user's membership in a group with a role.
type Member struct {
	ID        string    `json:"id"         db:"id"`
	GroupID   string    `json:"group_id"   db:"group_id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Role      Role      `json:"role"       db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
