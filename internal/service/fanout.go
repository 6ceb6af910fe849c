package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/domain/model"
)

// fanout describes one notification broadcast: which group to resolve
// recipients from, which roles to include or exclude, and the persisted
// notification content. Exactly one of includeRoles / excludeRoles is set.
type fanout struct {
	groupID      string
	assignmentID string
	includeRoles []model.Role
	excludeRoles []model.Role
	// actor is always excluded from the recipient set.
	actor   string
	message string
	ntype   model.NotificationType
	status  model.JobStatus
}

// recipientIDs filters group members down to notification recipients. With
// includeRoles set, only those roles receive; otherwise everyone except the
// excluded roles. The excluded user never receives.
func recipientIDs(members []model.Member, includeRoles, excludeRoles []model.Role, excludeUser string) []string {
	include := make(map[model.Role]bool, len(includeRoles))
	for _, r := range includeRoles {
		include[r] = true
	}
	exclude := make(map[model.Role]bool, len(excludeRoles))
	for _, r := range excludeRoles {
		exclude[r] = true
	}

	seen := make(map[string]bool, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m.UserID == excludeUser || seen[m.UserID] {
			continue
		}
		if len(includeRoles) > 0 && !include[m.Role] {
			continue
		}
		if exclude[m.Role] {
			continue
		}
		seen[m.UserID] = true
		out = append(out, m.UserID)
	}
	return out
}

// persistFanout resolves the recipient set and writes one notification row
// per recipient inside the operation's transaction. It returns the recipient
// ids for the post-commit push.
func (s *RoutingService) persistFanout(ctx context.Context, tx pgx.Tx, f fanout) ([]string, error) {
	members, err := s.groups.ListMembers(ctx, f.groupID)
	if err != nil {
		return nil, err
	}
	recipients := recipientIDs(members, f.includeRoles, f.excludeRoles, f.actor)
	if len(recipients) == 0 {
		return nil, nil
	}

	rows := make([]model.Notification, 0, len(recipients))
	for _, userID := range recipients {
		rows = append(rows, model.Notification{
			SenderID:     f.actor,
			ReceiverID:   userID,
			AssignmentID: f.assignmentID,
			Message:      f.message,
			Type:         f.ntype,
			Status:       f.status,
		})
	}
	if err := s.store.InsertNotifications(ctx, tx, rows); err != nil {
		return nil, err
	}
	return recipients, nil
}

// pushAfterCommit delivers the push for a committed transition. Delivery is
// best-effort: failures are logged and swallowed, the transition stands.
func (s *RoutingService) pushAfterCommit(ctx context.Context, recipients []string, f fanout) {
	if s.push == nil || len(recipients) == 0 {
		return
	}
	msg := core.PushMessage{
		Title: f.message,
		Body:  f.message,
		Data: map[string]string{
			"assignment_id": f.assignmentID,
			"type":          string(f.ntype),
			"status":        string(f.status),
		},
		Recipients: recipients,
	}
	if err := s.push.Send(ctx, msg); err != nil {
		s.warn(ctx, "push delivery failed",
			"type", f.ntype, "recipients", len(recipients), "error", err)
	}
}
