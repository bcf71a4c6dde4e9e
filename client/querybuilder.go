package client

import (
	"fmt"
	"strings"

	"github.com/quantadb/quanta-go/dberr"
)

// queryKind is the statement family a builder produces.
type queryKind uint8

const (
	kindSelect queryKind = iota
	kindInsert
	kindUpdate
	kindDelete
)

// QueryBuilder assembles SQL text and bound parameters. Builders are
// single-use and not safe for concurrent mutation; Build validates the
// assembled statement and reports problems as syntax errors.
type QueryBuilder struct {
	kind    queryKind
	table   string
	columns []string

	// where clauses with their AND/OR connectors
	wheres     []string
	connectors []string
	whereArgs  []Value

	// insert/update payload
	values  []Value
	sets    []string
	setArgs []Value

	orderBy   string
	orderDesc bool
	limit     int
	offset    int

	err error
}

// Select starts a SELECT builder for the given columns; no columns means *.
func Select(columns ...string) *QueryBuilder {
	return &QueryBuilder{kind: kindSelect, columns: columns, limit: -1, offset: -1}
}

// InsertInto starts an INSERT builder.
func InsertInto(table string) *QueryBuilder {
	return &QueryBuilder{kind: kindInsert, table: table, limit: -1, offset: -1}
}

// Update starts an UPDATE builder.
func Update(table string) *QueryBuilder {
	return &QueryBuilder{kind: kindUpdate, table: table, limit: -1, offset: -1}
}

// DeleteFrom starts a DELETE builder.
func DeleteFrom(table string) *QueryBuilder {
	return &QueryBuilder{kind: kindDelete, table: table, limit: -1, offset: -1}
}

// From sets the table of a SELECT.
func (q *QueryBuilder) From(table string) *QueryBuilder {
	q.table = table
	return q
}

// Columns sets the column list of an INSERT.
func (q *QueryBuilder) Columns(columns ...string) *QueryBuilder {
	q.columns = columns
	return q
}

// Values binds the inserted values, in column order.
func (q *QueryBuilder) Values(params ...any) *QueryBuilder {
	values, err := toValues(params)
	if err != nil {
		q.fail(err)
		return q
	}
	q.values = values
	return q
}

// Set adds one column assignment to an UPDATE.
func (q *QueryBuilder) Set(column string, param any) *QueryBuilder {
	v, err := NewValue(param)
	if err != nil {
		q.fail(err)
		return q
	}
	q.sets = append(q.sets, column+" = ?")
	q.setArgs = append(q.setArgs, v)
	return q
}

// Where adds the first filter condition. The condition uses ? placeholders.
func (q *QueryBuilder) Where(condition string, params ...any) *QueryBuilder {
	return q.addWhere("", condition, params)
}

// And adds a condition joined with AND.
func (q *QueryBuilder) And(condition string, params ...any) *QueryBuilder {
	return q.addWhere("AND", condition, params)
}

// Or adds a condition joined with OR.
func (q *QueryBuilder) Or(condition string, params ...any) *QueryBuilder {
	return q.addWhere("OR", condition, params)
}

func (q *QueryBuilder) addWhere(connector, condition string, params []any) *QueryBuilder {
	if len(q.wheres) == 0 && connector != "" {
		q.fail(dberr.Syntax(condition, 0, connector+" before any WHERE condition"))
		return q
	}
	if len(q.wheres) > 0 && connector == "" {
		connector = "AND"
	}
	if strings.Count(condition, "?") != len(params) {
		q.fail(dberr.Syntax(condition, 0,
			fmt.Sprintf("condition has %d placeholders but %d parameters",
				strings.Count(condition, "?"), len(params))))
		return q
	}
	values, err := toValues(params)
	if err != nil {
		q.fail(err)
		return q
	}
	q.wheres = append(q.wheres, condition)
	q.connectors = append(q.connectors, connector)
	q.whereArgs = append(q.whereArgs, values...)
	return q
}

// OrderBy sorts ascending by the given column.
func (q *QueryBuilder) OrderBy(column string) *QueryBuilder {
	q.orderBy = column
	q.orderDesc = false
	return q
}

// OrderByDesc sorts descending by the given column.
func (q *QueryBuilder) OrderByDesc(column string) *QueryBuilder {
	q.orderBy = column
	q.orderDesc = true
	return q
}

// Limit caps the number of returned rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

// Offset skips the first n rows.
func (q *QueryBuilder) Offset(n int) *QueryBuilder {
	q.offset = n
	return q
}

func (q *QueryBuilder) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

func (q *QueryBuilder) returnsRows() bool { return q.kind == kindSelect }

// Build assembles the SQL text and its parameters.
func (q *QueryBuilder) Build() (string, []Value, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if q.table == "" {
		return "", nil, dberr.Syntax("", 0, "no table specified")
	}

	var sb strings.Builder
	var params []Value

	switch q.kind {
	case kindSelect:
		sb.WriteString("SELECT ")
		if len(q.columns) == 0 {
			sb.WriteString("*")
		} else {
			sb.WriteString(strings.Join(q.columns, ", "))
		}
		sb.WriteString(" FROM ")
		sb.WriteString(q.table)

	case kindInsert:
		if len(q.columns) == 0 {
			return "", nil, dberr.Syntax("", 0, "insert without columns")
		}
		if len(q.values) != len(q.columns) {
			return "", nil, dberr.Syntax("", 0,
				fmt.Sprintf("insert has %d columns but %d values", len(q.columns), len(q.values)))
		}
		sb.WriteString("INSERT INTO ")
		sb.WriteString(q.table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(q.columns, ", "))
		sb.WriteString(") VALUES (")
		sb.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(q.values)), ", "))
		sb.WriteString(")")
		params = append(params, q.values...)

	case kindUpdate:
		if len(q.sets) == 0 {
			return "", nil, dberr.Syntax("", 0, "update without assignments")
		}
		sb.WriteString("UPDATE ")
		sb.WriteString(q.table)
		sb.WriteString(" SET ")
		sb.WriteString(strings.Join(q.sets, ", "))
		params = append(params, q.setArgs...)

	case kindDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(q.table)
	}

	if len(q.wheres) > 0 {
		sb.WriteString(" WHERE ")
		for i, cond := range q.wheres {
			if i > 0 {
				sb.WriteString(" ")
				sb.WriteString(q.connectors[i])
				sb.WriteString(" ")
			}
			sb.WriteString(cond)
		}
		params = append(params, q.whereArgs...)
	}

	if q.orderBy != "" {
		if q.kind != kindSelect {
			return "", nil, dberr.Syntax("", 0, "ORDER BY outside a SELECT")
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
		if q.orderDesc {
			sb.WriteString(" DESC")
		}
	}
	if q.limit >= 0 {
		if q.kind != kindSelect {
			return "", nil, dberr.Syntax("", 0, "LIMIT outside a SELECT")
		}
		fmt.Fprintf(&sb, " LIMIT %d", q.limit)
	}
	if q.offset >= 0 {
		if q.kind != kindSelect {
			return "", nil, dberr.Syntax("", 0, "OFFSET outside a SELECT")
		}
		fmt.Fprintf(&sb, " OFFSET %d", q.offset)
	}

	return sb.String(), params, nil
}
