package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantadb/quanta-go/dberr"
)

func TestQueryBuilderSelect(t *testing.T) {
	tests := []struct {
		name       string
		build      func() *QueryBuilder
		wantSQL    string
		wantParams []Value
	}{
		{
			name:    "all columns",
			build:   func() *QueryBuilder { return Select().From("users") },
			wantSQL: "SELECT * FROM users",
		},
		{
			name:    "column list",
			build:   func() *QueryBuilder { return Select("id", "name").From("users") },
			wantSQL: "SELECT id, name FROM users",
		},
		{
			name: "where condition",
			build: func() *QueryBuilder {
				return Select("id").From("users").Where("age > ?", 18)
			},
			wantSQL:    "SELECT id FROM users WHERE age > ?",
			wantParams: []Value{IntValue(18)},
		},
		{
			name: "and or chain",
			build: func() *QueryBuilder {
				return Select().From("users").
					Where("age > ?", 18).
					And("city = ?", "Ulm").
					Or("admin = ?", true)
			},
			wantSQL: "SELECT * FROM users WHERE age > ? AND city = ? OR admin = ?",
			wantParams: []Value{
				IntValue(18), StringValue("Ulm"), BoolValue(true),
			},
		},
		{
			name: "order limit offset",
			build: func() *QueryBuilder {
				return Select().From("users").OrderByDesc("name").Limit(10).Offset(5)
			},
			wantSQL: "SELECT * FROM users ORDER BY name DESC LIMIT 10 OFFSET 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := tt.build().Build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestQueryBuilderInsert(t *testing.T) {
	sql, params, err := InsertInto("users").
		Columns("name", "age").
		Values("bob", 42).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name, age) VALUES (?, ?)", sql)
	assert.Equal(t, []Value{StringValue("bob"), IntValue(42)}, params)
}

func TestQueryBuilderUpdate(t *testing.T) {
	sql, params, err := Update("users").
		Set("name", "bob").
		Set("age", 43).
		Where("id = ?", 7).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = ?, age = ? WHERE id = ?", sql)
	assert.Equal(t, []Value{StringValue("bob"), IntValue(43), IntValue(7)}, params)
}

func TestQueryBuilderDelete(t *testing.T) {
	sql, params, err := DeleteFrom("users").Where("id = ?", 7).Build()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE id = ?", sql)
	assert.Equal(t, []Value{IntValue(7)}, params)
}

func TestQueryBuilderValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *QueryBuilder
	}{
		{"no table", func() *QueryBuilder { return Select("id") }},
		{"and before where", func() *QueryBuilder { return Select().From("t").And("x = ?", 1) }},
		{"placeholder mismatch", func() *QueryBuilder {
			return Select().From("t").Where("x = ? AND y = ?", 1)
		}},
		{"insert without columns", func() *QueryBuilder { return InsertInto("t").Values(1) }},
		{"insert value count mismatch", func() *QueryBuilder {
			return InsertInto("t").Columns("a", "b").Values(1)
		}},
		{"update without set", func() *QueryBuilder { return Update("t").Where("id = ?", 1) }},
		{"limit on delete", func() *QueryBuilder { return DeleteFrom("t").Limit(1) }},
		{"order by on update", func() *QueryBuilder { return Update("t").Set("a", 1).OrderBy("a") }},
		{"unsupported parameter", func() *QueryBuilder {
			return Select().From("t").Where("x = ?", struct{}{})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.build().Build()
			require.Error(t, err)
			kind := dberr.KindOf(err)
			assert.Contains(t, []dberr.Kind{dberr.KindSyntaxError, dberr.KindSerialization}, kind)
		})
	}
}
