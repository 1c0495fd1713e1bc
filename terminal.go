package pgfluent

import (
	"context"
	"fmt"
	"time"
)

// Statement is a builder that can be run. All builders returned by DB are
// Statements.
type Statement interface {
	Query
	database() *DB
}

// terminals implements the methods that run a statement. Every terminal method
// renders and expands the statement once and runs exactly one query.
type terminals struct {
	db    *DB
	build func() (string, map[string]any)
}

func (t terminals) database() *DB { return t.db }

// ToList returns all rows.
func (t terminals) ToList(ctx context.Context) Result[[]Row] {
	var rows []Row
	_, err := t.db.query(ctx, t.build, func(columns []Column, values []any) error {
		rows = append(rows, makeRow(columns, values))
		return nil
	})
	if err != nil {
		return fail[[]Row](err)
	}
	return succeed(rows)
}

// ToSingle returns the only row. It fails with ErrNoRows or ErrTooManyRows
// when the statement did not return exactly one row.
func (t terminals) ToSingle(ctx context.Context) Result[Row] {
	var row Row
	n, err := t.db.query(ctx, t.build, func(columns []Column, values []any) error {
		if row != nil {
			return ErrTooManyRows
		}
		row = makeRow(columns, values)
		return nil
	})
	if err == nil && n == 0 {
		err = ErrNoRows
	}
	if err != nil {
		return fail[Row](err)
	}
	return succeed(row)
}

// ToField returns the only column of the only row.
func (t terminals) ToField(ctx context.Context) Result[any] {
	var (
		field any
		found bool
	)
	_, err := t.db.query(ctx, t.build, func(columns []Column, values []any) error {
		if len(values) != 1 {
			return fmt.Errorf("expected 1 column, got %d", len(values))
		}
		if found {
			return ErrTooManyRows
		}
		field, found = values[0], true
		return nil
	})
	if err == nil && !found {
		err = ErrNoRows
	}
	if err != nil {
		return fail[any](err)
	}
	return succeed(field)
}

// ToColumn returns the first column of every row.
func (t terminals) ToColumn(ctx context.Context) Result[[]any] {
	var column []any
	_, err := t.db.query(ctx, t.build, func(columns []Column, values []any) error {
		if len(values) == 0 {
			return fmt.Errorf("expected at least 1 column, got 0")
		}
		column = append(column, values[0])
		return nil
	})
	if err != nil {
		return fail[[]any](err)
	}
	return succeed(column)
}

// Exec runs the statement and returns the number of rows affected.
func (t terminals) Exec(ctx context.Context) Result[int64] {
	n, err := t.db.exec(ctx, t.build)
	if err != nil {
		return fail[int64](err)
	}
	return succeed(n)
}

// Stream calls fn for each row as it is read and returns the number of rows
// read. Iteration stops at the first error returned by fn.
func (t terminals) Stream(ctx context.Context, fn func(Row) error) Result[int64] {
	n, err := t.db.query(ctx, t.build, func(columns []Column, values []any) error {
		return fn(makeRow(columns, values))
	})
	if err != nil {
		return fail[int64](err)
	}
	return succeed(n)
}

// ToObject maps the only row of s to a T. A T that is not a struct receives
// the only column.
func ToObject[T any](ctx context.Context, s Statement) Result[T] {
	var (
		obj   T
		found bool
	)
	m, err := newMapper[T]()
	if err != nil {
		return fail[T](err)
	}

	db := s.database()
	_, err = db.query(ctx, s.SQL, func(columns []Column, values []any) error {
		if found {
			return ErrTooManyRows
		}
		found = true
		return m.scan(columns, values, &obj)
	})
	if err == nil && !found {
		err = ErrNoRows
	}
	if err != nil {
		return fail[T](err)
	}
	return succeed(obj)
}

// ToObjects maps every row of s to a T.
func ToObjects[T any](ctx context.Context, s Statement) Result[[]T] {
	m, err := newMapper[T]()
	if err != nil {
		return fail[[]T](err)
	}

	var objs []T
	_, err = s.database().query(ctx, s.SQL, func(columns []Column, values []any) error {
		var obj T
		if err := m.scan(columns, values, &obj); err != nil {
			return err
		}
		objs = append(objs, obj)
		return nil
	})
	if err != nil {
		return fail[[]T](err)
	}
	return succeed(objs)
}

// StreamObjects maps each row of s to a T and calls fn with it as it is read.
// It returns the number of rows read.
func StreamObjects[T any](ctx context.Context, s Statement, fn func(T) error) Result[int64] {
	m, err := newMapper[T]()
	if err != nil {
		return fail[int64](err)
	}

	n, err := s.database().query(ctx, s.SQL, func(columns []Column, values []any) error {
		var obj T
		if err := m.scan(columns, values, &obj); err != nil {
			return err
		}
		return fn(obj)
	})
	if err != nil {
		return fail[int64](err)
	}
	return succeed(n)
}

func makeRow(columns []Column, values []any) Row {
	row := make(Row, len(columns))
	for i, c := range columns {
		row[c.Name] = values[i]
	}
	return row
}

// query renders, expands and runs a statement and calls fn with the decoded
// values of each row. values is reused between rows. It returns the number of
// rows read.
func (db *DB) query(ctx context.Context, build func() (string, map[string]any), fn func(columns []Column, values []any) error) (int64, error) {
	sql, params := build()
	query, args, err := db.prepare(sql, params)
	if err != nil {
		db.logPrepareError(ctx, sql, params, err)
		return 0, err
	}

	start := time.Now()
	n, err := db.run(ctx, query, args, fn)
	db.logResult(ctx, query, args, start, n, err)
	return n, err
}

func (db *DB) run(ctx context.Context, query string, args []any, fn func(columns []Column, values []any) error) (n int64, err error) {
	rows, err := db.executor.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := rows.Close(); err == nil {
			err = closeErr
		}
	}()

	columns := rows.Columns(db.registry)
	if err := rows.Err(); err != nil {
		return 0, err
	}

	values := make([]any, len(columns))
	for rows.Next() {
		raw, err := rows.RawValues()
		if err != nil {
			return n, err
		}
		if len(raw) != len(columns) {
			return n, fmt.Errorf("expected %d values, got %d", len(columns), len(raw))
		}
		for i, c := range columns {
			values[i], err = db.registry.Decode(raw[i], c.TypeName)
			if err != nil {
				return n, fmt.Errorf("column %s: %w", c.Name, err)
			}
		}
		n++
		if err := fn(columns, values); err != nil {
			return n, err
		}
	}
	return n, rows.Err()
}

// exec renders, expands and runs a statement that returns no rows.
func (db *DB) exec(ctx context.Context, build func() (string, map[string]any)) (int64, error) {
	sql, params := build()
	query, args, err := db.prepare(sql, params)
	if err != nil {
		db.logPrepareError(ctx, sql, params, err)
		return 0, err
	}

	start := time.Now()
	n, err := db.executor.Exec(ctx, query, args...)
	db.logResult(ctx, query, args, start, n, err)
	return n, err
}
