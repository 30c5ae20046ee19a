package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SelectAllColumns(t *testing.T) {
	stmt := From("propagation_runs").Build()

	assert.Equal(t, "SELECT * FROM propagation_runs", stmt.SQL)
	assert.Empty(t, stmt.Params)
}

func TestBuilder_KeysetPage(t *testing.T) {
	stmt := From("definition_references").
		Select("product_id", "referencer_type").
		Where(Eq("definition_id", "gid://shopify/Metaobject/1")).
		Where(Gt("product_id", "gid://shopify/Product/10")).
		OrderBy("product_id", Asc).
		Limit(251).
		Build()

	assert.Equal(t,
		"SELECT product_id, referencer_type FROM definition_references WHERE definition_id = @p0 AND product_id > @p1 ORDER BY product_id ASC LIMIT @limit",
		stmt.SQL)
	assert.Equal(t, map[string]interface{}{
		"p0":    "gid://shopify/Metaobject/1",
		"p1":    "gid://shopify/Product/10",
		"limit": int64(251),
	}, stmt.Params)
}

func TestBuilder_MultipleOrderTerms(t *testing.T) {
	stmt := From("propagation_runs").
		Select("run_id").
		OrderBy("started_at", Desc).
		OrderBy("run_id", Asc).
		Build()

	assert.Equal(t, "SELECT run_id FROM propagation_runs ORDER BY started_at DESC, run_id ASC", stmt.SQL)
}

func TestBuilder_LimitAndOffset(t *testing.T) {
	stmt := From("propagation_runs").
		Select("run_id").
		Limit(10).
		Offset(20).
		Build()

	assert.Equal(t, "SELECT run_id FROM propagation_runs LIMIT @limit OFFSET @offset", stmt.SQL)
	assert.Equal(t, map[string]interface{}{
		"limit":  int64(10),
		"offset": int64(20),
	}, stmt.Params)
}

func TestBuilder_Count(t *testing.T) {
	builder := From("propagation_runs").
		Select("run_id", "state").
		Where(Eq("definition_id", "def-1")).
		Where(Eq("state", "done")).
		OrderBy("started_at", Desc).
		Limit(50)

	countStmt := builder.Count().Build()
	assert.Equal(t, "SELECT COUNT(*) FROM propagation_runs WHERE definition_id = @p0 AND state = @p1", countStmt.SQL)
	assert.Equal(t, map[string]interface{}{
		"p0": "def-1",
		"p1": "done",
	}, countStmt.Params)

	// the original builder keeps its pagination
	assert.Contains(t, builder.Build().SQL, "LIMIT @limit")
}

func TestBuilder_Immutability(t *testing.T) {
	base := From("propagation_runs").Select("run_id")

	stmt1 := base.Where(Eq("state", "aborted")).Build()
	stmt2 := base.Where(Eq("category", "brand")).Build()

	assert.Contains(t, stmt1.SQL, "state = @p0")
	assert.NotContains(t, stmt1.SQL, "category")
	assert.Contains(t, stmt2.SQL, "category = @p0")
	assert.NotContains(t, stmt2.SQL, "state")
}

func TestBuilder_BuildDelete(t *testing.T) {
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	stmt := From("propagation_runs").
		Where(Eq("state", "done")).
		Where(Lt("finished_at", cutoff)).
		BuildDelete()

	assert.Equal(t, "DELETE FROM propagation_runs WHERE state = @p0 AND finished_at < @p1", stmt.SQL)
	assert.Equal(t, map[string]interface{}{
		"p0": "done",
		"p1": cutoff,
	}, stmt.Params)
}

func TestBuilder_BuildDeleteWithoutConditions(t *testing.T) {
	stmt := From("propagation_runs").BuildDelete()

	assert.Equal(t, "DELETE FROM propagation_runs WHERE true", stmt.SQL)
	assert.Empty(t, stmt.Params)
}

func TestCondition_Comparisons(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		sql  string
	}{
		{"eq", Eq("state", "done"), "state = @p3"},
		{"gt", Gt("product_id", "p"), "product_id > @p3"},
		{"lt", Lt("finished_at", "t"), "finished_at < @p3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := tt.cond.SQL(3)
			assert.Equal(t, tt.sql, sql)
			assert.Len(t, params, 1)
			assert.Contains(t, params, "p3")
		})
	}
}

func TestBuilder_String(t *testing.T) {
	str := From("propagation_runs").Select("run_id").Where(Eq("state", "done")).String()

	require.NotEmpty(t, str)
	assert.Contains(t, str, "SQL:")
	assert.Contains(t, str, "Params:")
}
