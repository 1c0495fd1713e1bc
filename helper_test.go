package pgfluent_test

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent"
	"github.com/pgfluent/pgfluent/pgcodec"
	"github.com/stretchr/testify/require"
)

type UserStatus int

const (
	StatusActive UserStatus = iota + 1
	StatusPendingReview
)

type Person struct {
	Name string
	Age  int32
}

func testRegistry(t testing.TB) *pgcodec.Registry {
	t.Helper()

	reg, err := pgcodec.NewBuilder().
		WithBuiltins().
		AddEnum("user_status", nil, "active", "pending_review").
		AddComposite("person",
			pgcodec.Attribute{Name: "name", Type: "text"},
			pgcodec.Attribute{Name: "age", Type: "int4"},
		).
		Register(
			pgcodec.NewEnumCodec("user_status", map[string]UserStatus{
				"Active":        StatusActive,
				"PendingReview": StatusPendingReview,
			}),
			pgcodec.NewCompositeCodec("person",
				func(p Person) []any { return []any{p.Name, p.Age} },
				func(fields []any) (Person, error) {
					name, err := pgcodec.Field[string](fields, 0)
					if err != nil {
						return Person{}, err
					}
					age, err := pgcodec.Field[int32](fields, 1)
					return Person{Name: name, Age: age}, err
				}),
		).
		Build()
	require.NoError(t, err)
	return reg
}

type logEntry struct {
	level tracelog.LogLevel
	msg   string
	data  map[string]any
}

type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, data: data})
}

func (l *testLogger) last() logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[len(l.entries)-1]
}

// newMockDB returns a DB backed by go-sqlmock. Queries are matched exactly.
func newMockDB(t *testing.T, opts ...pgfluent.Option) (*pgfluent.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})

	return pgfluent.New(pgfluent.SQL(sqlDB), testRegistry(t), opts...), mock
}

func column(name, dbType string) *sqlmock.Column {
	return sqlmock.NewColumn(name).OfType(dbType, "")
}
