package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/data/pgxutil"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// NotificationRepo reads persisted notifications. Writes happen inside the
// routing transaction through RoutingStore.
type NotificationRepo struct {
	DB *sql.DB
}

var _ core.NotificationReader = (*NotificationRepo)(nil)

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{DB: db}
}

const notificationListQuery = `
	SELECT id, sender_id, receiver_id, assignment_id, message,
	       notification_type, status, created_at
	FROM notifications
	WHERE receiver_id = $1 AND created_at >= $2
	ORDER BY created_at DESC`

// ListNotifications retrieves a user's notifications newer than since,
// newest first.
func (r *NotificationRepo) ListNotifications(
	ctx context.Context,
	userID string,
	since time.Time,
) ([]*model.Notification, error) {
	var rowsOut []model.Notification
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, notificationListQuery, userID, since.UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Notification])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", apperrors.MapDBError(err))
	}

	res := make([]*model.Notification, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}
