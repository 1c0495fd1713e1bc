package namedsql_test

import (
	"testing"

	"github.com/pgfluent/pgfluent/internal/namedsql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for i, tt := range []struct {
		sql      string
		expected []namedsql.Part
	}{
		{
			sql:      "select 1",
			expected: []namedsql.Part{"select 1"},
		},
		{
			sql:      "select :a",
			expected: []namedsql.Part{"select ", namedsql.Placeholder("a")},
		},
		{
			sql:      "select :a, :b_2::int4 from t",
			expected: []namedsql.Part{"select ", namedsql.Placeholder("a"), ", ", namedsql.Placeholder("b_2"), "::int4 from t"},
		},
		{
			sql:      "select ':a', 'it''s :b', \"col:c\" from t",
			expected: []namedsql.Part{"select ':a', 'it''s :b', \"col:c\" from t"},
		},
		{
			sql:      `select e'\' :a', :b`,
			expected: []namedsql.Part{`select e'\' :a', `, namedsql.Placeholder("b")},
		},
		{
			sql:      "select $tag$ :a $tag$, $1, :b",
			expected: []namedsql.Part{"select $tag$ :a $tag$, $1, ", namedsql.Placeholder("b")},
		},
		{
			sql:      "select 1 -- :a\n, :b",
			expected: []namedsql.Part{"select 1 -- :a\n, ", namedsql.Placeholder("b")},
		},
		{
			sql:      "select /* :a /* nested :b */ :c */ :d",
			expected: []namedsql.Part{"select /* :a /* nested :b */ :c */ ", namedsql.Placeholder("d")},
		},
		{
			sql:      "select x::text, y :: text, a[1:2]",
			expected: []namedsql.Part{"select x::text, y :: text, a[1:2]"},
		},
		{
			sql:      "select :a:b",
			expected: []namedsql.Part{"select ", namedsql.Placeholder("a"), namedsql.Placeholder("b")},
		},
		{
			sql:      "select 'unterminated :a",
			expected: []namedsql.Part{"select 'unterminated :a"},
		},
	} {
		q := namedsql.Parse(tt.sql)
		assert.Equalf(t, tt.expected, q.Parts, "%d: %s", i, tt.sql)
		assert.Equalf(t, tt.sql, q.String(), "%d", i)
	}
}

func TestNames(t *testing.T) {
	q := namedsql.Parse("select :b, :a, :b, ':c'")
	assert.Equal(t, []string{"b", "a"}, q.Names())
}

func TestRebind(t *testing.T) {
	q := namedsql.Parse("select * from t where a = :a and b = any(:b) or a > :a")

	sql, args, err := q.Rebind(map[string]any{"a": 1, "b": "x", "unused": true})
	require.NoError(t, err)
	assert.Equal(t, "select * from t where a = $1 and b = any($2) or a > $1", sql)
	assert.Equal(t, []any{1, "x"}, args)

	_, _, err = q.Rebind(map[string]any{"a": 1})
	var missing *namedsql.MissingParamError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "b", missing.Name)
	assert.EqualError(t, err, "no value for placeholder :b")
}

func TestRebindNilValue(t *testing.T) {
	sql, args, err := namedsql.Parse("select :a").Rebind(map[string]any{"a": nil})
	require.NoError(t, err)
	assert.Equal(t, "select $1", sql)
	assert.Equal(t, []any{nil}, args)
}

func TestParseCached(t *testing.T) {
	q1 := namedsql.ParseCached("select :cached")
	q2 := namedsql.ParseCached("select :cached")
	assert.Same(t, q1, q2)
	assert.Equal(t, []string{"cached"}, q1.Names())
}
