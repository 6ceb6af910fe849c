package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/workorder-api/internal/core"
	"github.com/fieldops/workorder-api/internal/data/pgxutil"
	"github.com/fieldops/workorder-api/internal/domain/model"
	apperrors "github.com/fieldops/workorder-api/internal/errors"
)

// GroupDirectoryRepo implements core.GroupDirectory over the groups and
// group_members tables.
type GroupDirectoryRepo struct {
	DB *sql.DB
}

var _ core.GroupDirectory = (*GroupDirectoryRepo)(nil)

// NewGroupDirectoryRepo creates a new GroupDirectoryRepo.
func NewGroupDirectoryRepo(db *sql.DB) *GroupDirectoryRepo {
	return &GroupDirectoryRepo{DB: db}
}

// GetGroup retrieves a group by id, including archived ones.
func (r *GroupDirectoryRepo) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, name, archived, created_at, updated_at
			FROM groups WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		group, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Group])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("group %s not found", id)
		}
		return nil, fmt.Errorf("failed to get group: %w", apperrors.MapDBError(err))
	}
	return &group, nil
}

// ListMembers returns all memberships of a group.
func (r *GroupDirectoryRepo) ListMembers(ctx context.Context, groupID string) ([]model.Member, error) {
	var members []model.Member
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, group_id, user_id, role, created_at
			FROM group_members
			WHERE group_id = $1
			ORDER BY created_at`, groupID)
		if err != nil {
			return err
		}
		defer rows.Close()
		members, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Member])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", apperrors.MapDBError(err))
	}
	return members, nil
}
