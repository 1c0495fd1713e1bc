package pgfluent

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/pgcodec"
)

// DB builds and runs queries against an Executor. Parameters are expanded and
// results decoded with the types of a pgcodec.Registry.
//
// A DB is safe for concurrent use if its Executor is.
type DB struct {
	executor Executor
	registry *pgcodec.Registry
	expander *pgcodec.Expander

	logger   tracelog.Logger
	logLevel tracelog.LogLevel
}

// Option configures a DB.
type Option func(*DB)

// WithLogger logs every statement with logger. Failures are logged at error
// level, successful statements at info level.
func WithLogger(logger tracelog.Logger) Option {
	return func(db *DB) {
		db.logger = logger
	}
}

// WithLogLevel sets the minimum level logged. The default is
// tracelog.LogLevelInfo.
func WithLogLevel(level tracelog.LogLevel) Option {
	return func(db *DB) {
		db.logLevel = level
	}
}

// New returns a DB running statements on exec.
func New(exec Executor, registry *pgcodec.Registry, opts ...Option) *DB {
	db := &DB{
		executor: exec,
		registry: registry,
		expander: pgcodec.NewExpander(registry),
		logLevel: tracelog.LogLevelInfo,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Registry returns the registry used to expand parameters and decode results.
func (db *DB) Registry() *pgcodec.Registry {
	return db.registry
}

// Select starts a SELECT of cols. No columns selects *.
func (db *DB) Select(cols ...string) *SelectBuilder {
	b := &SelectBuilder{columns: cols}
	b.self = b
	b.terminals = terminals{db: db, build: b.SQL}
	return b
}

// InsertInto starts an INSERT into table.
func (db *DB) InsertInto(table string) *InsertBuilder {
	b := &InsertBuilder{table: table}
	b.self = b
	b.terminals = terminals{db: db, build: b.SQL}
	return b
}

// Update starts an UPDATE of table.
func (db *DB) Update(table string) *UpdateBuilder {
	b := &UpdateBuilder{table: table}
	b.self = b
	b.terminals = terminals{db: db, build: b.SQL}
	return b
}

// DeleteFrom starts a DELETE from table.
func (db *DB) DeleteFrom(table string) *DeleteBuilder {
	b := &DeleteBuilder{table: table}
	b.self = b
	b.terminals = terminals{db: db, build: b.SQL}
	return b
}

// Raw runs sql as written. Named parameters are still expanded.
func (db *DB) Raw(sql string) *RawBuilder {
	b := &RawBuilder{sql: sql}
	b.self = b
	b.terminals = terminals{db: db, build: b.SQL}
	return b
}

// prepare expands named parameters into positional arguments.
func (db *DB) prepare(sql string, params map[string]any) (string, []any, error) {
	return db.expander.ExpandPositional(sql, params)
}

func (db *DB) shouldLog(level tracelog.LogLevel) bool {
	return db.logger != nil && db.logLevel >= level
}

func (db *DB) log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	if !db.shouldLog(level) {
		return
	}
	db.logger.Log(ctx, level, msg, data)
}

// logResult logs the outcome of running sql. rows is the number of rows read
// or affected.
func (db *DB) logResult(ctx context.Context, sql string, args []any, start time.Time, rows int64, err error) {
	if err != nil {
		if db.shouldLog(tracelog.LogLevelError) {
			db.log(ctx, tracelog.LogLevelError, "Query", map[string]any{
				"sql":  sql,
				"args": logQueryArgs(args),
				"err":  err,
				"time": time.Since(start),
			})
		}
		return
	}

	if db.shouldLog(tracelog.LogLevelInfo) {
		db.log(ctx, tracelog.LogLevelInfo, "Query", map[string]any{
			"sql":  sql,
			"args": logQueryArgs(args),
			"time": time.Since(start),
			"rows": rows,
		})
	}
}

// logPrepareError logs a statement whose parameters could not be expanded.
// The named parameters are logged as given since there are no positional
// arguments yet.
func (db *DB) logPrepareError(ctx context.Context, sql string, params map[string]any, err error) {
	if !db.shouldLog(tracelog.LogLevelError) {
		return
	}

	logParams := make(map[string]any, len(params))
	for name, v := range params {
		switch v.(type) {
		case nil, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64,
			[]byte, string, pgcodec.Blob:
			logParams[name] = logQueryArg(v)
		default:
			logParams[name] = truncate(fmt.Sprintf("%v", v))
		}
	}

	db.log(ctx, tracelog.LogLevelError, "Query", map[string]any{
		"sql":  sql,
		"args": logParams,
		"err":  err,
	})
}

// logQueryArgs shortens long arguments so a large parameter does not flood
// the log.
func logQueryArgs(args []any) []any {
	logArgs := make([]any, 0, len(args))
	for _, a := range args {
		logArgs = append(logArgs, logQueryArg(a))
	}
	return logArgs
}

func logQueryArg(a any) any {
	switch v := a.(type) {
	case []byte:
		if len(v) < 64 {
			return fmt.Sprintf("%x", v)
		}
		return fmt.Sprintf("%x (truncated %d bytes)", v[:64], len(v)-64)
	case string:
		return truncate(v)
	case pgcodec.Blob:
		return truncate(v.Text)
	}
	return a
}

func truncate(s string) string {
	if len(s) <= 64 {
		return s
	}
	l := 0
	for w := 0; l < 64; l += w {
		_, w = utf8.DecodeRuneInString(s[l:])
	}
	if len(s) == l {
		return s
	}
	return fmt.Sprintf("%s (truncated %d bytes)", s[:l], len(s)-l)
}
