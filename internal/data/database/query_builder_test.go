package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQuery_Basic(t *testing.T) {
	opts := NewListQueryOptions("jobs",
		WithColumns("id", "job_id", "status"),
		WithCondition(WhereCond("status", Equal, "open")),
		WithOrderBy("created_at", "DESC"),
		WithLimit(10),
		WithOffset(20),
	)

	query, args := BuildListQuery(opts)
	assert.Equal(t,
		`SELECT "id", "job_id", "status" FROM "jobs" WHERE "status" = $1 ORDER BY "created_at" DESC LIMIT $2 OFFSET $3`,
		query)
	assert.Equal(t, []any{"open", 10, 20}, args)
}

func TestBuildListQuery_JoinsAndQualifiedColumns(t *testing.T) {
	opts := NewListQueryOptions("assignments",
		WithTableAlias("a"),
		WithJoin("JOIN jobs j ON j.id = a.job_id"),
		WithColumns("a.id", "j.address AS address"),
		WithCondition(WhereCond("a.group_id", Equal, "g1")),
		WithCondition(WhereCond("a.is_active", Equal, true)),
	)

	query, args := BuildListQuery(opts)
	assert.Equal(t,
		`SELECT "a"."id", "j"."address" AS "address" FROM "assignments" "a" JOIN jobs j ON j.id = a.job_id WHERE "a"."group_id" = $1 AND "a"."is_active" = $2`,
		query)
	assert.Equal(t, []any{"g1", true}, args)
}

func TestBuildListQuery_CountOnly(t *testing.T) {
	opts := NewListQueryOptions("assignments",
		WithCountOnly(),
		WithCondition(WhereCond("status", Equal, "open")),
		WithLimit(10),
	)

	query, args := BuildListQuery(opts)
	assert.Equal(t, `SELECT COUNT(*) FROM "assignments" WHERE "status" = $1`, query)
	assert.Equal(t, []any{"open"}, args)
}

func TestBuildListQuery_InAndAnyConditions(t *testing.T) {
	opts := NewListQueryOptions("assignments",
		WithColumns("id"),
		WithCondition(WhereCond("status", In, []string{"open", "partial"})),
	)
	query, args := BuildListQuery(opts)
	assert.Equal(t, `SELECT "id" FROM "assignments" WHERE "status" IN ($1, $2)`, query)
	assert.Equal(t, []any{"open", "partial"}, args)

	opts = NewListQueryOptions("return_cases",
		WithColumns("id"),
		WithCondition(WhereCond("id", Any, []string{"r1", "r2"})),
	)
	query, args = BuildListQuery(opts)
	assert.Equal(t, `SELECT "id" FROM "return_cases" WHERE "id" = ANY (ARRAY[$1, $2])`, query)
	assert.Equal(t, []any{"r1", "r2"}, args)

	// Empty slices drop the condition entirely.
	opts = NewListQueryOptions("assignments",
		WithColumns("id"),
		WithCondition(WhereCond("status", In, []string{})),
	)
	query, args = BuildListQuery(opts)
	assert.Equal(t, `SELECT "id" FROM "assignments"`, query)
	assert.Empty(t, args)
}

func TestBuildListQuery_RawCondition(t *testing.T) {
	opts := NewListQueryOptions("return_cases",
		WithColumns("id"),
		WithCondition(WhereCond("group_id", Equal, "g1")),
		WithCondition(WhereRawCond("$1 = ANY(return_to)", "u1")),
	)

	query, args := BuildListQuery(opts)
	assert.Equal(t,
		`SELECT "id" FROM "return_cases" WHERE "group_id" = $1 AND $2 = ANY(return_to)`,
		query)
	assert.Equal(t, []any{"g1", "u1"}, args)
}

func TestBuildListQuery_SanitizesIdentifiers(t *testing.T) {
	opts := NewListQueryOptions("jobs",
		WithColumns(`id"; DROP TABLE jobs; --`),
	)
	query, _ := BuildListQuery(opts)
	// The whole spec stays inside one quoted identifier.
	assert.Equal(t, `SELECT "id""; DROP TABLE jobs; --" FROM "jobs"`, query)
}

func TestBuildListQuery_InvalidOrderDirIgnored(t *testing.T) {
	opts := NewListQueryOptions("jobs",
		WithColumns("id"),
		WithOrderBy("created_at", "SIDEWAYS"),
	)
	query, _ := BuildListQuery(opts)
	assert.Equal(t, `SELECT "id" FROM "jobs" ORDER BY "created_at"`, query)
}
