package pgfluent

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgfluent/pgfluent/pgcodec"
)

// Executor runs SQL with positional arguments. Result values are returned in
// the PostgreSQL text format.
type Executor interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Rows is a forward only cursor over the rows of a result.
type Rows interface {
	// Columns returns the columns of the result. The type name of a column is
	// resolved with registry.
	Columns(registry *pgcodec.Registry) []Column

	Next() bool

	// RawValues returns the text of each column of the current row. A NULL is
	// nil. The slices are only valid until the next call to Next.
	RawValues() ([][]byte, error)

	Err() error
	Close() error
}

// Column describes one column of a result.
type Column struct {
	Name     string
	TypeName string
}

// PgxQuerier is implemented by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Pgx returns an Executor for a pgx connection, pool or transaction.
func Pgx(q PgxQuerier) Executor {
	return &pgxExecutor{q: q, typeMap: pgtype.NewMap()}
}

type pgxExecutor struct {
	q       PgxQuerier
	typeMap *pgtype.Map
}

func (e *pgxExecutor) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	queryArgs := make([]any, 0, len(args)+1)
	queryArgs = append(queryArgs, pgx.QueryResultFormats{pgx.TextFormatCode})
	queryArgs = append(queryArgs, args...)

	rows, err := e.q.Query(ctx, sql, queryArgs...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows, typeMap: e.typeMap}, nil
}

func (e *pgxExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := e.q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgxRows struct {
	rows    pgx.Rows
	typeMap *pgtype.Map
}

func (r *pgxRows) Columns(registry *pgcodec.Registry) []Column {
	fds := r.rows.FieldDescriptions()
	columns := make([]Column, len(fds))
	for i, fd := range fds {
		columns[i] = Column{Name: fd.Name, TypeName: r.typeName(registry, fd.DataTypeOID)}
	}
	return columns
}

// typeName resolves oid with the registry first as it knows user defined
// types. The builtin pgx type map covers registries that were not loaded from
// the catalog.
func (r *pgxRows) typeName(registry *pgcodec.Registry, oid uint32) string {
	if ti, ok := registry.TypeByOID(oid); ok {
		return ti.Name
	}
	if t, ok := r.typeMap.TypeForOID(oid); ok {
		return t.Name
	}
	return strconv.FormatUint(uint64(oid), 10)
}

func (r *pgxRows) Next() bool                   { return r.rows.Next() }
func (r *pgxRows) RawValues() ([][]byte, error) { return r.rows.RawValues(), nil }
func (r *pgxRows) Err() error                   { return r.rows.Err() }

func (r *pgxRows) Close() error {
	r.rows.Close()
	return r.rows.Err()
}

// SQLQuerier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type SQLQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQL returns an Executor for a database/sql handle using a PostgreSQL driver
// such as github.com/lib/pq or github.com/jackc/pgx/v5/stdlib.
//
// Drivers convert some values before they reach the Executor, e.g. timestamps
// arrive as time.Time and are formatted as RFC 3339. lib/pq does not report
// the type of user defined types; such columns are read as text.
func SQL(q SQLQuerier) Executor {
	return &sqlExecutor{q: q}
}

type sqlExecutor struct {
	q SQLQuerier
}

func (e *sqlExecutor) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := e.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRows{rows: rows}, nil
}

func (e *sqlExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := e.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type sqlRows struct {
	rows    *sql.Rows
	scanned []sql.NullString
	dest    []any
	values  [][]byte
	err     error
}

func (r *sqlRows) Columns(registry *pgcodec.Registry) []Column {
	types, err := r.rows.ColumnTypes()
	if err != nil {
		r.err = err
		return nil
	}

	columns := make([]Column, len(types))
	for i, ct := range types {
		columns[i] = Column{Name: ct.Name(), TypeName: sqlTypeName(registry, ct.DatabaseTypeName())}
	}
	return columns
}

// sqlTypeName maps a driver reported type name to a registry name. Drivers
// report upper case names, an oid for types they do not know or nothing.
func sqlTypeName(registry *pgcodec.Registry, name string) string {
	if name == "" {
		return "text"
	}
	if oid, err := strconv.ParseUint(name, 10, 32); err == nil {
		if ti, ok := registry.TypeByOID(uint32(oid)); ok {
			return ti.Name
		}
		return name
	}
	return pgcodec.CanonicalTypeName(strings.ToLower(name))
}

func (r *sqlRows) Next() bool {
	if r.err != nil {
		return false
	}
	return r.rows.Next()
}

func (r *sqlRows) RawValues() ([][]byte, error) {
	if r.dest == nil {
		columns, err := r.rows.Columns()
		if err != nil {
			return nil, err
		}
		r.scanned = make([]sql.NullString, len(columns))
		r.dest = make([]any, len(columns))
		for i := range r.scanned {
			r.dest[i] = &r.scanned[i]
		}
		r.values = make([][]byte, len(columns))
	}

	if err := r.rows.Scan(r.dest...); err != nil {
		return nil, err
	}

	for i, s := range r.scanned {
		if s.Valid {
			r.values[i] = []byte(s.String)
		} else {
			r.values[i] = nil
		}
	}
	return r.values, nil
}

func (r *sqlRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}
