package query

import (
	"fmt"
	"strings"

	"cloud.google.com/go/spanner"
)

// Direction represents ORDER BY direction.
type Direction int

const (
	// Asc represents ascending order.
	Asc Direction = iota
	// Desc represents descending order.
	Desc
)

type orderTerm struct {
	column    string
	direction Direction
}

// Builder constructs Spanner SQL statements with a fluent, immutable API.
// Parameter names are generated, so callers never keep them in sync by hand.
type Builder struct {
	table        string
	selectCols   []string
	whereClauses []Condition
	orderBy      []orderTerm
	limitVal     int64
	offsetVal    int64
}

// From creates a new Builder for the specified table.
func From(table string) *Builder {
	return &Builder{table: table}
}

// Select specifies the columns to retrieve.
func (b *Builder) Select(columns ...string) *Builder {
	nb := b.clone()
	nb.selectCols = append(nb.selectCols, columns...)
	return nb
}

// Where adds a condition. Multiple conditions are combined with AND.
func (b *Builder) Where(condition Condition) *Builder {
	nb := b.clone()
	nb.whereClauses = append(nb.whereClauses, condition)
	return nb
}

// OrderBy appends a sort key. Calls accumulate, so keyset pagination can add a tiebreaker.
func (b *Builder) OrderBy(column string, direction Direction) *Builder {
	nb := b.clone()
	nb.orderBy = append(nb.orderBy, orderTerm{column: column, direction: direction})
	return nb
}

// Limit sets the maximum number of rows to return.
func (b *Builder) Limit(limit int64) *Builder {
	nb := b.clone()
	nb.limitVal = limit
	return nb
}

// Offset sets the number of rows to skip.
func (b *Builder) Offset(offset int64) *Builder {
	nb := b.clone()
	nb.offsetVal = offset
	return nb
}

// Count returns a builder producing COUNT(*) over the same table and conditions.
func (b *Builder) Count() *Builder {
	nb := b.clone()
	nb.selectCols = []string{"COUNT(*)"}
	nb.limitVal = 0
	nb.offsetVal = 0
	nb.orderBy = nil
	return nb
}

// Build constructs the SELECT statement.
func (b *Builder) Build() spanner.Statement {
	var sql strings.Builder
	sql.WriteString("SELECT ")
	if len(b.selectCols) == 0 {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(b.selectCols, ", "))
	}
	sql.WriteString(" FROM ")
	sql.WriteString(b.table)

	params := b.writeWhere(&sql)

	if len(b.orderBy) > 0 {
		terms := make([]string, 0, len(b.orderBy))
		for _, t := range b.orderBy {
			dir := "ASC"
			if t.direction == Desc {
				dir = "DESC"
			}
			terms = append(terms, t.column+" "+dir)
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(terms, ", "))
	}

	if b.limitVal > 0 {
		sql.WriteString(" LIMIT @limit")
		params["limit"] = b.limitVal
	}
	if b.offsetVal > 0 {
		sql.WriteString(" OFFSET @offset")
		params["offset"] = b.offsetVal
	}

	return spanner.Statement{SQL: sql.String(), Params: params}
}

// BuildDelete constructs a DML DELETE with the builder's conditions. Spanner rejects
// DELETE without WHERE, so an unconditioned builder deletes with "WHERE true".
func (b *Builder) BuildDelete() spanner.Statement {
	var sql strings.Builder
	sql.WriteString("DELETE FROM ")
	sql.WriteString(b.table)

	params := b.writeWhere(&sql)
	if len(b.whereClauses) == 0 {
		sql.WriteString(" WHERE true")
	}
	return spanner.Statement{SQL: sql.String(), Params: params}
}

func (b *Builder) writeWhere(sql *strings.Builder) map[string]interface{} {
	params := make(map[string]interface{})
	if len(b.whereClauses) == 0 {
		return params
	}

	parts := make([]string, 0, len(b.whereClauses))
	paramIndex := 0
	for _, condition := range b.whereClauses {
		fragment, condParams := condition.SQL(paramIndex)
		parts = append(parts, fragment)
		for k, v := range condParams {
			params[k] = v
		}
		paramIndex += len(condParams)
	}
	sql.WriteString(" WHERE ")
	sql.WriteString(strings.Join(parts, " AND "))
	return params
}

func (b *Builder) clone() *Builder {
	nb := &Builder{
		table:        b.table,
		selectCols:   make([]string, len(b.selectCols)),
		whereClauses: make([]Condition, len(b.whereClauses)),
		orderBy:      make([]orderTerm, len(b.orderBy)),
		limitVal:     b.limitVal,
		offsetVal:    b.offsetVal,
	}
	copy(nb.selectCols, b.selectCols)
	copy(nb.whereClauses, b.whereClauses)
	copy(nb.orderBy, b.orderBy)
	return nb
}

// String returns a human-readable representation for debugging.
func (b *Builder) String() string {
	stmt := b.Build()
	return fmt.Sprintf("SQL: %s\nParams: %v", stmt.SQL, stmt.Params)
}
