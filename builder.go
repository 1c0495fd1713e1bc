package pgfluent

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Query is anything that renders to SQL with named parameters. All builders
// are Queries and can be used as common table expressions or INSERT sources.
type Query interface {
	SQL() (string, map[string]any)
}

type cte struct {
	name  string
	query Query
}

// statement holds the state shared by all builders. B is the builder type
// returned by the fluent methods.
type statement[B any] struct {
	self      B
	recursive bool
	ctes      []cte
	params    map[string]any
}

// With adds the common table expression name AS (q). The parameters of q are
// merged into the statement's parameters.
func (s *statement[B]) With(name string, q Query) B {
	s.ctes = append(s.ctes, cte{name: name, query: q})
	return s.self
}

// WithRecursive is With that marks the WITH clause RECURSIVE.
func (s *statement[B]) WithRecursive(name string, q Query) B {
	s.recursive = true
	return s.With(name, q)
}

// Param binds the value of the placeholder :name.
func (s *statement[B]) Param(name string, v any) B {
	if s.params == nil {
		s.params = make(map[string]any)
	}
	s.params[name] = v
	return s.self
}

// Params binds several placeholders at once.
func (s *statement[B]) Params(params map[string]any) B {
	if s.params == nil {
		s.params = make(map[string]any, len(params))
	}
	maps.Copy(s.params, params)
	return s.self
}

// render prefixes body with the WITH clause and returns the merged
// parameters. Parameters bound on the statement take precedence over those of
// its common table expressions.
func (s *statement[B]) render(body string, params map[string]any) (string, map[string]any) {
	merged := make(map[string]any)

	var sb strings.Builder
	if len(s.ctes) > 0 {
		sb.WriteString("WITH ")
		if s.recursive {
			sb.WriteString("RECURSIVE ")
		}
		for i, c := range s.ctes {
			if i > 0 {
				sb.WriteString(", ")
			}
			sql, cteParams := c.query.SQL()
			maps.Copy(merged, cteParams)
			sb.WriteString(c.name)
			sb.WriteString(" AS (")
			sb.WriteString(sql)
			sb.WriteString(")")
		}
		sb.WriteString(" ")
	}
	sb.WriteString(body)

	maps.Copy(merged, params)
	maps.Copy(merged, s.params)
	return sb.String(), merged
}

// conditions is a list of predicates joined by AND.
type conditions []string

func (c conditions) write(sb *strings.Builder, keyword string) {
	if len(c) == 0 {
		return
	}
	sb.WriteString(" ")
	sb.WriteString(keyword)
	sb.WriteString(" ")
	if len(c) == 1 {
		sb.WriteString(c[0])
		return
	}
	for i, cond := range c {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		sb.WriteString("(")
		sb.WriteString(cond)
		sb.WriteString(")")
	}
}

func writeList(sb *strings.Builder, keyword string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(" ")
	sb.WriteString(keyword)
	sb.WriteString(" ")
	sb.WriteString(strings.Join(items, ", "))
}

// SelectBuilder builds a SELECT statement.
type SelectBuilder struct {
	statement[*SelectBuilder]
	terminals

	distinct  bool
	columns   []string
	from      []string
	joins     []string
	where     conditions
	groupBy   []string
	having    conditions
	orderBy   []string
	limit     *int64
	offset    *int64
	forUpdate bool
}

// Distinct makes the statement SELECT DISTINCT.
func (b *SelectBuilder) Distinct() *SelectBuilder {
	b.distinct = true
	return b
}

// From adds tables or subqueries to the FROM clause.
func (b *SelectBuilder) From(tables ...string) *SelectBuilder {
	b.from = append(b.from, tables...)
	return b
}

// Join adds JOIN table ON on.
func (b *SelectBuilder) Join(table, on string) *SelectBuilder {
	b.joins = append(b.joins, "JOIN "+table+" ON "+on)
	return b
}

// LeftJoin adds LEFT JOIN table ON on.
func (b *SelectBuilder) LeftJoin(table, on string) *SelectBuilder {
	b.joins = append(b.joins, "LEFT JOIN "+table+" ON "+on)
	return b
}

// Where adds a predicate. Predicates are joined by AND.
func (b *SelectBuilder) Where(cond string) *SelectBuilder {
	b.where = append(b.where, cond)
	return b
}

func (b *SelectBuilder) GroupBy(exprs ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, exprs...)
	return b
}

// Having adds a predicate on groups. Predicates are joined by AND.
func (b *SelectBuilder) Having(cond string) *SelectBuilder {
	b.having = append(b.having, cond)
	return b
}

func (b *SelectBuilder) OrderBy(exprs ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, exprs...)
	return b
}

func (b *SelectBuilder) Limit(n int64) *SelectBuilder {
	b.limit = &n
	return b
}

func (b *SelectBuilder) Offset(n int64) *SelectBuilder {
	b.offset = &n
	return b
}

// ForUpdate locks the selected rows.
func (b *SelectBuilder) ForUpdate() *SelectBuilder {
	b.forUpdate = true
	return b
}

// SQL renders the statement and its parameters.
func (b *SelectBuilder) SQL() (string, map[string]any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.columns, ", "))
	}
	writeList(&sb, "FROM", b.from)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	b.where.write(&sb, "WHERE")
	writeList(&sb, "GROUP BY", b.groupBy)
	b.having.write(&sb, "HAVING")
	writeList(&sb, "ORDER BY", b.orderBy)
	if b.limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.FormatInt(*b.limit, 10))
	}
	if b.offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.FormatInt(*b.offset, 10))
	}
	if b.forUpdate {
		sb.WriteString(" FOR UPDATE")
	}
	return b.render(sb.String(), nil)
}

// InsertBuilder builds an INSERT statement. Rows come either from Value and
// Values or from a query set with Select.
type InsertBuilder struct {
	statement[*InsertBuilder]
	terminals

	table      string
	columns    []string
	values     []any
	source     Query
	onConflict string
	returning  []string
}

// Value inserts v into column.
func (b *InsertBuilder) Value(column string, v any) *InsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, v)
	return b
}

// Values inserts the values of row. Columns are added in sorted order.
func (b *InsertBuilder) Values(row map[string]any) *InsertBuilder {
	for _, column := range slices.Sorted(maps.Keys(row)) {
		b.Value(column, row[column])
	}
	return b
}

// Columns sets the columns filled by the query set with Select.
func (b *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Select inserts the rows returned by q.
func (b *InsertBuilder) Select(q Query) *InsertBuilder {
	b.source = q
	return b
}

// OnConflict adds ON CONFLICT action, e.g. "(id) DO NOTHING".
func (b *InsertBuilder) OnConflict(action string) *InsertBuilder {
	b.onConflict = action
	return b
}

func (b *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	b.returning = append(b.returning, columns...)
	return b
}

// SQL renders the statement and its parameters. Inserted values are bound to
// the placeholders :value_1, :value_2 and so on.
func (b *InsertBuilder) SQL() (string, map[string]any) {
	params := make(map[string]any, len(b.values))

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	if len(b.columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(")")
	}

	switch {
	case b.source != nil:
		sql, sourceParams := b.source.SQL()
		maps.Copy(params, sourceParams)
		sb.WriteString(" ")
		sb.WriteString(sql)
	case len(b.values) > 0:
		sb.WriteString(" VALUES (")
		for i, v := range b.values {
			if i > 0 {
				sb.WriteString(", ")
			}
			name := "value_" + strconv.Itoa(i+1)
			params[name] = v
			sb.WriteString(":")
			sb.WriteString(name)
		}
		sb.WriteString(")")
	default:
		sb.WriteString(" DEFAULT VALUES")
	}

	if b.onConflict != "" {
		sb.WriteString(" ON CONFLICT ")
		sb.WriteString(b.onConflict)
	}
	writeList(&sb, "RETURNING", b.returning)
	return b.render(sb.String(), params)
}

// UpdateBuilder builds an UPDATE statement.
type UpdateBuilder struct {
	statement[*UpdateBuilder]
	terminals

	table     string
	sets      []string
	values    map[string]any
	from      []string
	where     conditions
	returning []string
}

// Set assigns v to column.
func (b *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	name := "set_" + strconv.Itoa(len(b.values)+1)
	b.values[name] = v
	b.sets = append(b.sets, column+" = :"+name)
	return b
}

// SetExpr assigns the SQL expression expr to column.
func (b *UpdateBuilder) SetExpr(column, expr string) *UpdateBuilder {
	b.sets = append(b.sets, column+" = "+expr)
	return b
}

func (b *UpdateBuilder) From(tables ...string) *UpdateBuilder {
	b.from = append(b.from, tables...)
	return b
}

// Where adds a predicate. Predicates are joined by AND.
func (b *UpdateBuilder) Where(cond string) *UpdateBuilder {
	b.where = append(b.where, cond)
	return b
}

func (b *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	b.returning = append(b.returning, columns...)
	return b
}

// SQL renders the statement and its parameters. Values assigned with Set are
// bound to the placeholders :set_1, :set_2 and so on.
func (b *UpdateBuilder) SQL() (string, map[string]any) {
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	writeList(&sb, "SET", b.sets)
	writeList(&sb, "FROM", b.from)
	b.where.write(&sb, "WHERE")
	writeList(&sb, "RETURNING", b.returning)
	return b.render(sb.String(), b.values)
}

// DeleteBuilder builds a DELETE statement.
type DeleteBuilder struct {
	statement[*DeleteBuilder]
	terminals

	table     string
	using     []string
	where     conditions
	returning []string
}

func (b *DeleteBuilder) Using(tables ...string) *DeleteBuilder {
	b.using = append(b.using, tables...)
	return b
}

// Where adds a predicate. Predicates are joined by AND.
func (b *DeleteBuilder) Where(cond string) *DeleteBuilder {
	b.where = append(b.where, cond)
	return b
}

func (b *DeleteBuilder) Returning(columns ...string) *DeleteBuilder {
	b.returning = append(b.returning, columns...)
	return b
}

// SQL renders the statement and its parameters.
func (b *DeleteBuilder) SQL() (string, map[string]any) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.table)
	writeList(&sb, "USING", b.using)
	b.where.write(&sb, "WHERE")
	writeList(&sb, "RETURNING", b.returning)
	return b.render(sb.String(), nil)
}

// RawBuilder passes SQL through unchanged apart from parameter expansion.
type RawBuilder struct {
	statement[*RawBuilder]
	terminals

	sql string
}

// SQL renders the statement and its parameters.
func (b *RawBuilder) SQL() (string, map[string]any) {
	return b.render(b.sql, nil)
}
