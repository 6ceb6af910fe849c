package errors

import (
	"context"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError_Nil(t *testing.T) {
	assert.NoError(t, MapDBError(nil))
}

func TestMapDBError_ContextErrors(t *testing.T) {
	assert.True(t, IsTimeout(MapDBError(context.DeadlineExceeded)))
	assert.True(t, IsCanceled(MapDBError(context.Canceled)))
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	assert.True(t, IsNotFound(err), "pgx.ErrNoRows should map to NotFound, got %v", GetCode(err))
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{
			name: "with column name",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "jobs_job_id_key",
				ColumnName:     "job_id",
			},
			wantField: "job_id",
		},
		{
			name: "field from detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: `Key (job_id)=(J-1001) already exists.`,
			},
			wantField: "job_id",
		},
		{
			name: "multi-column detail",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "assignments_job_id_group_id_key",
				Detail:         `Key (job_id, group_id)=(j1, g1) already exists.`,
			},
			wantField: "job_id, group_id",
		},
		{
			name: "field inferred from constraint",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "groups_name_key",
			},
			wantField: "name",
		},
		{
			name: "ambiguous constraint",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "assignments_job_id_group_id_key",
			},
			wantField: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			assert.True(t, IsConflict(err))
			assert.Equal(t, tt.wantField, GetField(err))
		})
	}
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	missing := MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (group_id)=(g1) is not present in table "groups".`,
	})
	assert.True(t, IsForeignKey(missing))
	assert.Contains(t, missing.Error(), "referenced Group does not exist")

	inUse := MapDBError(&pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (id)=(g1) is still referenced from table "assignments".`,
	})
	assert.True(t, IsForeignKey(inUse))
	assert.Contains(t, inUse.Error(), "in use by Assignment")
}

func TestMapDBError_ValidationViolations(t *testing.T) {
	notNull := MapDBError(&pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "address",
	})
	assert.True(t, IsValidation(notNull))
	assert.Equal(t, "address", GetField(notNull))

	check := MapDBError(&pgconn.PgError{
		Code: pgerrcode.CheckViolation,
	})
	assert.True(t, IsValidation(check))
}

func TestMapDBError_Unrecognized(t *testing.T) {
	err := MapDBError(assert.AnError)
	assert.Equal(t, assert.AnError, err)

	internal := MapDBError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	assert.True(t, IsInternal(internal))
}
