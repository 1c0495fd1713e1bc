package pgcodec_test

import (
	"testing"

	"github.com/pgfluent/pgfluent/pgcodec"
	"github.com/stretchr/testify/require"
)

type UserStatus int

const (
	StatusActive UserStatus = iota + 1
	StatusPendingReview
	StatusBanned
)

var statusCodec = pgcodec.NewEnumCodec("user_status", map[string]UserStatus{
	"Active":        StatusActive,
	"PendingReview": StatusPendingReview,
	"Banned":        StatusBanned,
})

type Person struct {
	Name   string
	Age    int32
	Email  *string
	Active bool
	Roles  []string
}

func encodePerson(p Person) []any {
	return []any{p.Name, p.Age, p.Email, p.Active, p.Roles}
}

func decodePerson(fields []any) (Person, error) {
	var p Person
	var err error
	if p.Name, err = pgcodec.Field[string](fields, 0); err != nil {
		return p, err
	}
	if p.Age, err = pgcodec.Field[int32](fields, 1); err != nil {
		return p, err
	}
	if p.Email, err = pgcodec.Field[*string](fields, 2); err != nil {
		return p, err
	}
	if p.Active, err = pgcodec.Field[bool](fields, 3); err != nil {
		return p, err
	}
	if p.Roles, err = pgcodec.Field[[]string](fields, 4); err != nil {
		return p, err
	}
	return p, nil
}

type Team struct {
	Name    string
	Members []Person
	Lead    Person
	Status  UserStatus
}

func encodeTeam(t Team) []any {
	return []any{t.Name, t.Members, t.Lead, t.Status}
}

func decodeTeam(fields []any) (Team, error) {
	var t Team
	var err error
	if t.Name, err = pgcodec.Field[string](fields, 0); err != nil {
		return t, err
	}
	if t.Members, err = pgcodec.Field[[]Person](fields, 1); err != nil {
		return t, err
	}
	if t.Lead, err = pgcodec.Field[Person](fields, 2); err != nil {
		return t, err
	}
	if t.Status, err = pgcodec.Field[UserStatus](fields, 3); err != nil {
		return t, err
	}
	return t, nil
}

func personAttributes() []pgcodec.Attribute {
	return []pgcodec.Attribute{
		{Name: "name", Type: "text"},
		{Name: "age", Type: "int4"},
		{Name: "email", Type: "text"},
		{Name: "active", Type: "bool"},
		{Name: "roles", Type: "text[]"},
	}
}

func newTestBuilder() *pgcodec.Builder {
	return pgcodec.NewBuilder().
		WithBuiltins().
		AddEnum("user_status", nil, "active", "pending_review", "banned").
		AddComposite("test_person", personAttributes()...).
		AddComposite("team",
			pgcodec.Attribute{Name: "name", Type: "text"},
			pgcodec.Attribute{Name: "members", Type: "test_person[]"},
			pgcodec.Attribute{Name: "lead", Type: "test_person"},
			pgcodec.Attribute{Name: "status", Type: "user_status"},
		)
}

func mustRegistry(t testing.TB) *pgcodec.Registry {
	t.Helper()

	reg, err := newTestBuilder().
		Register(
			statusCodec,
			pgcodec.NewCompositeCodec("test_person", encodePerson, decodePerson),
			pgcodec.NewCompositeCodec("team", encodeTeam, decodeTeam),
		).
		Build()
	require.NoError(t, err)
	return reg
}

func ptr[T any](v T) *T {
	return &v
}
