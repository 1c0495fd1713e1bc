package pgfluent_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent"
	"github.com/pgfluent/pgfluent/pgcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToList(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT id, name, tags FROM users WHERE id = ANY(ARRAY[$1, $2])").
		WithArgs(1, 2).
		WillReturnRows(mock.NewRowsWithColumnDefinition(
			column("id", "INT4"),
			column("name", "TEXT"),
			column("tags", "_TEXT"),
		).
			AddRow("1", "alice", `{a,"b c"}`).
			AddRow("2", nil, "{}"))

	rows, err := db.Select("id", "name", "tags").
		From("users").
		Where("id = ANY(:ids)").
		Param("ids", []int{1, 2}).
		ToList(context.Background()).
		Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []pgfluent.Row{
		{"id": int32(1), "name": "alice", "tags": []any{"a", "b c"}},
		{"id": int32(2), "name": nil, "tags": []any{}},
	}, rows)
}

func TestToListEmptyStringIsNotNull(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT name FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("name", "TEXT")).AddRow(""))

	res := db.Select("name").From("users").ToList(context.Background())
	require.True(t, res.Ok())
	assert.Equal(t, []pgfluent.Row{{"name": ""}}, res.Value)
}

func TestToSingle(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT name, status FROM users WHERE id = $1").
		WithArgs(7).
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("name", "TEXT"), column("status", "USER_STATUS")).
			AddRow("alice", "pending_review"))

	row, err := db.Select("name", "status").From("users").Where("id = :id").Param("id", 7).
		ToSingle(context.Background()).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, pgfluent.Row{"name": "alice", "status": StatusPendingReview}, row)
}

func TestToSingleRowCount(t *testing.T) {
	logger := &testLogger{}
	db, mock := newMockDB(t, pgfluent.WithLogger(logger))

	mock.ExpectQuery("SELECT name FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("name", "TEXT")))
	res := db.Select("name").From("users").ToSingle(context.Background())
	assert.ErrorIs(t, res.Err, pgfluent.ErrNoRows)
	assert.Nil(t, res.Value)

	mock.ExpectQuery("SELECT name FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("name", "TEXT")).AddRow("a").AddRow("b"))
	res = db.Select("name").From("users").ToSingle(context.Background())
	assert.ErrorIs(t, res.Err, pgfluent.ErrTooManyRows)

	entry := logger.last()
	assert.Equal(t, tracelog.LogLevelError, entry.level)
	assert.Equal(t, "SELECT name FROM users", entry.data["sql"])
	assert.ErrorIs(t, entry.data["err"].(error), pgfluent.ErrTooManyRows)
}

func TestToField(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT ROW($1, $2)::person").
		WithArgs("bob", int32(52)).
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("row", "PERSON")).AddRow(`(bob,52)`))

	v, err := db.Raw("SELECT :p").Param("p", Person{Name: "bob", Age: 52}).ToField(context.Background()).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, Person{Name: "bob", Age: 52}, v)

	mock.ExpectQuery("SELECT 1, 2").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("a", "INT4"), column("b", "INT4")).AddRow("1", "2"))
	res := db.Raw("SELECT 1, 2").ToField(context.Background())
	assert.ErrorContains(t, res.Err, "expected 1 column, got 2")
}

func TestToColumn(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT id, name FROM users ORDER BY id").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("id", "INT8"), column("name", "TEXT")).
			AddRow("1", "a").
			AddRow("2", "b").
			AddRow("3", "c"))

	ids, err := db.Select("id", "name").From("users").OrderBy("id").ToColumn(context.Background()).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids)
}

func TestExec(t *testing.T) {
	logger := &testLogger{}
	db, mock := newMockDB(t, pgfluent.WithLogger(logger))

	mock.ExpectExec("UPDATE users SET name = $1, status = $2 WHERE id = $3").
		WithArgs("bob", "active", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := db.Update("users").
		Set("name", "bob").
		Set("status", StatusActive).
		Where("id = :id").
		Param("id", 7).
		Exec(context.Background()).
		Unwrap()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entry := logger.last()
	assert.Equal(t, tracelog.LogLevelInfo, entry.level)
	assert.Equal(t, "Query", entry.msg)
	assert.EqualValues(t, 1, entry.data["rows"])
}

func TestExecInsertComposite(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO people (person, nicknames) VALUES (ROW($1, $2)::person, '{}')").
		WithArgs("alice", int32(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	res := db.InsertInto("people").
		Value("person", Person{Name: "alice", Age: 30}).
		Value("nicknames", []string{}).
		Exec(context.Background())
	require.NoError(t, res.Err)
}

func TestExecError(t *testing.T) {
	logger := &testLogger{}
	db, mock := newMockDB(t, pgfluent.WithLogger(logger))

	mock.ExpectExec("DELETE FROM users WHERE id = $1").
		WithArgs(strings.Repeat("x", 100)).
		WillReturnError(errors.New("connection reset"))

	res := db.DeleteFrom("users").Where("id = :id").Param("id", strings.Repeat("x", 100)).Exec(context.Background())
	assert.EqualError(t, res.Err, "connection reset")
	assert.False(t, res.Ok())

	entry := logger.last()
	assert.Equal(t, tracelog.LogLevelError, entry.level)
	assert.Equal(t, []any{strings.Repeat("x", 64) + " (truncated 36 bytes)"}, entry.data["args"])
}

func TestLogLevel(t *testing.T) {
	logger := &testLogger{}
	db, mock := newMockDB(t, pgfluent.WithLogger(logger), pgfluent.WithLogLevel(tracelog.LogLevelError))

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, db.DeleteFrom("users").Exec(context.Background()).Err)
	assert.Empty(t, logger.entries)
}

func TestStream(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT n FROM generate_series(1, 3) n").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("n", "INT4")).AddRow("1").AddRow("2").AddRow("3"))

	var sum int32
	n, err := db.Raw("SELECT n FROM generate_series(1, 3) n").Stream(context.Background(), func(row pgfluent.Row) error {
		sum += row["n"].(int32)
		return nil
	}).Unwrap()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.EqualValues(t, 6, sum)

	stop := errors.New("stop")
	mock.ExpectQuery("SELECT n FROM generate_series(1, 3) n").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("n", "INT4")).AddRow("1").AddRow("2").AddRow("3"))

	res := db.Raw("SELECT n FROM generate_series(1, 3) n").Stream(context.Background(), func(row pgfluent.Row) error {
		if row["n"] == int32(2) {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, res.Err, stop)
}

func TestDecodeError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("id", "INT4")).AddRow("abc"))

	res := db.Select("id").From("users").ToList(context.Background())
	var convErr *pgcodec.ConversionError
	require.ErrorAs(t, res.Err, &convErr)
	assert.ErrorContains(t, res.Err, "column id")
}

func TestMissingParam(t *testing.T) {
	logger := &testLogger{}
	db, _ := newMockDB(t, pgfluent.WithLogger(logger))

	res := db.Select().From("users").Where("id = :id AND name = :name").
		Param("name", strings.Repeat("x", 70)).
		ToList(context.Background())
	var missing *pgcodec.MissingParamError
	require.ErrorAs(t, res.Err, &missing)
	assert.Equal(t, "id", missing.Name)

	entry := logger.last()
	assert.Equal(t, tracelog.LogLevelError, entry.level)
	assert.Equal(t, "SELECT * FROM users WHERE id = :id AND name = :name", entry.data["sql"])
	assert.Equal(t, map[string]any{"name": strings.Repeat("x", 64) + " (truncated 6 bytes)"}, entry.data["args"])
	assert.Equal(t, res.Err, entry.data["err"])
}

func TestExpandErrorLogsParams(t *testing.T) {
	logger := &testLogger{}
	db, _ := newMockDB(t, pgfluent.WithLogger(logger))

	res := db.Update("users").
		Set("status", UserStatus(99)).
		Where("id = :id").
		Param("id", 7).
		Param("team", []Person{{Name: "ann", Age: 30}}).
		Exec(context.Background())
	var enumErr *pgcodec.EnumConversionError
	require.ErrorAs(t, res.Err, &enumErr)

	entry := logger.last()
	assert.Equal(t, tracelog.LogLevelError, entry.level)
	assert.Equal(t, map[string]any{
		"set_1": "99",
		"id":    7,
		"team":  "[{ann 30}]",
	}, entry.data["args"])
}

type User struct {
	ID      int64 `db:"id"`
	Name    string
	Tags    []string
	Status  UserStatus
	Manager *string
	Ignored string `db:"-"`
}

func TestToObjects(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT * FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(
			column("id", "INT4"),
			column("name", "TEXT"),
			column("tags", "_TEXT"),
			column("status", "USER_STATUS"),
			column("manager", "TEXT"),
			column("ignored", "TEXT"),
		).
			AddRow("1", "alice", "{a,b}", "active", nil, "x").
			AddRow("2", "bob", "{}", "pending_review", "alice", "y"))

	users, err := pgfluent.ToObjects[User](context.Background(), db.Select().From("users")).Unwrap()
	require.NoError(t, err)

	manager := "alice"
	assert.Equal(t, []User{
		{ID: 1, Name: "alice", Tags: []string{"a", "b"}, Status: StatusActive},
		{ID: 2, Name: "bob", Tags: []string{}, Status: StatusPendingReview, Manager: &manager},
	}, users)
}

func TestToObjectsDigitFieldNames(t *testing.T) {
	type Address struct {
		Address2 string
		Line3    string
	}
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT * FROM addresses").
		WillReturnRows(mock.NewRowsWithColumnDefinition(
			column("address_2", "TEXT"),
			column("line3", "TEXT"),
		).AddRow("unit 4", "floor 2"))

	addrs, err := pgfluent.ToObjects[Address](context.Background(), db.Select().From("addresses")).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, []Address{{Address2: "unit 4", Line3: "floor 2"}}, addrs)
}

func TestToObject(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT count(*) FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("count", "INT8")).AddRow("42"))
	count, err := pgfluent.ToObject[int](context.Background(), db.Select("count(*)").From("users")).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 42, count)

	mock.ExpectQuery("SELECT person FROM people").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("person", "PERSON")).AddRow(`("Smith, J",40)`))
	person, err := pgfluent.ToObject[Person](context.Background(), db.Select("person").From("people")).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, Person{Name: "Smith, J", Age: 40}, person)

	mock.ExpectQuery("SELECT * FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("id", "INT4")))
	res := pgfluent.ToObject[User](context.Background(), db.Select().From("users"))
	assert.ErrorIs(t, res.Err, pgfluent.ErrNoRows)
}

func TestStreamObjects(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(mock.NewRowsWithColumnDefinition(column("id", "INT4"), column("name", "TEXT")).
			AddRow("1", "alice").
			AddRow("2", "bob"))

	var names []string
	n, err := pgfluent.StreamObjects(context.Background(), db.Select("id", "name").From("users"), func(u User) error {
		names = append(names, u.Name)
		return nil
	}).Unwrap()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, []string{"alice", "bob"}, names)
}
