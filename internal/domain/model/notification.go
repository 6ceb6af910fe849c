package model

import "time"

// NotificationType labels the transition that produced a notification.
type NotificationType string

const (
	// NotificationOpen is sent when a priority job is opened or reopened.
	NotificationOpen NotificationType = "open"
	// NotificationTransfer is sent to the receiving group on transfer.
	NotificationTransfer NotificationType = "transfer"
	// NotificationReturn is sent to the home group's inspectors on return.
	NotificationReturn NotificationType = "return"
	// NotificationClose is sent to the home group on close.
	NotificationClose NotificationType = "close"
)

// Notification is one persisted per-recipient notification row. Status is
// the job status snapshot at send time; it is not updated when the job moves
// on.
type Notification struct {
	ID           string           `json:"id"            db:"id"`
	SenderID     string           `json:"sender_id"     db:"sender_id"`
	ReceiverID   string           `json:"receiver_id"   db:"receiver_id"`
	AssignmentID string           `json:"assignment_id" db:"assignment_id"`
	Message      string           `json:"message"       db:"message"`
	Type         NotificationType `json:"type"          db:"notification_type"`
	Status       JobStatus        `json:"status"        db:"status"`
	CreatedAt    time.Time        `json:"created_at"    db:"created_at"`
}
