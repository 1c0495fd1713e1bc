package pgfluent

import (
	"errors"
)

var (
	// ErrNoRows is returned by single row terminals when the query returned no
	// rows.
	ErrNoRows = errors.New("no rows in result set")

	// ErrTooManyRows is returned by single row terminals when the query
	// returned more than one row.
	ErrTooManyRows = errors.New("too many rows in result set")
)

// Result is the outcome of a terminal method. Exactly one of Value and Err is
// meaningful: Value is the zero value when Err is set.
type Result[T any] struct {
	Value T
	Err   error
}

func succeed[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// Ok reports whether the statement succeeded.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

// Row is one decoded result row keyed by column name.
type Row map[string]any
