package catalog

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/pgcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTypes() []typeRow {
	return []typeRow{
		{OID: 16, Schema: "pg_catalog", Name: "bool", TypType: "b"},
		{OID: 23, Schema: "pg_catalog", Name: "int4", TypType: "b"},
		{OID: 25, Schema: "pg_catalog", Name: "text", TypType: "b"},
		{OID: 1000, Schema: "pg_catalog", Name: "_bool", TypType: "b", Elem: 16, IsArray: true},
		{OID: 1007, Schema: "pg_catalog", Name: "_int4", TypType: "b", Elem: 23, IsArray: true},
		{OID: 1009, Schema: "pg_catalog", Name: "_text", TypType: "b", Elem: 25, IsArray: true},
		// name has a typelem but is not an array.
		{OID: 19, Schema: "pg_catalog", Name: "name", TypType: "b", Elem: 18},
		{OID: 3904, Schema: "pg_catalog", Name: "int4range", TypType: "r"},
		{OID: 4451, Schema: "pg_catalog", Name: "int4multirange", TypType: "m"},
		{OID: 16400, Schema: "public", Name: "user_status", TypType: "e"},
		{OID: 16401, Schema: "public", Name: "_user_status", TypType: "b", Elem: 16400, IsArray: true},
		{OID: 16410, Schema: "public", Name: "person", TypType: "c", RelID: 16409, RelKind: "c"},
		{OID: 16411, Schema: "public", Name: "_person", TypType: "b", Elem: 16410, IsArray: true},
		{OID: 16420, Schema: "app", Name: "account", TypType: "c", RelID: 16419, RelKind: "r"},
		{OID: 16421, Schema: "app", Name: "_account", TypType: "b", Elem: 16420, IsArray: true},
		{OID: 16430, Schema: "app", Name: "empty", TypType: "c", RelID: 16429, RelKind: "c"},
		{OID: 16440, Schema: "public", Name: "positive_int", TypType: "d"},
	}
}

func testEnums() []enumRow {
	return []enumRow{
		{TypeOID: 16400, Label: "active"},
		{TypeOID: 16400, Label: "pending_review"},
	}
}

func testAttributes() []attributeRow {
	return []attributeRow{
		{RelID: 16409, Name: "name", TypeOID: 25},
		{RelID: 16409, Name: "status", TypeOID: 16400},
		{RelID: 16409, Name: "tags", TypeOID: 1009},
		{RelID: 16419, Name: "id", TypeOID: 23},
		{RelID: 16419, Name: "owner", TypeOID: 16410},
	}
}

func TestAssemble(t *testing.T) {
	l := newLoader([]Option{WithNaming("user_status", pgcodec.Verbatim)})
	reg, err := l.assemble(context.Background(), testTypes(), testEnums(), testAttributes()).Build()
	require.NoError(t, err)

	ti, ok := reg.Type("user_status")
	require.True(t, ok)
	assert.Equal(t, pgcodec.CategoryEnum, ti.Category)
	assert.Equal(t, []string{"active", "pending_review"}, ti.Labels)
	assert.Equal(t, pgcodec.Verbatim, ti.Naming)
	assert.EqualValues(t, 16400, ti.OID)

	ti, ok = reg.Type("person")
	require.True(t, ok)
	assert.Equal(t, pgcodec.CategoryComposite, ti.Category)
	assert.Equal(t, []pgcodec.Attribute{
		{Name: "name", Type: "text"},
		{Name: "status", Type: "user_status"},
		{Name: "tags", Type: "_text"},
	}, ti.Attributes)

	ti, ok = reg.TypeByOID(16411)
	require.True(t, ok)
	assert.Equal(t, "_person", ti.Name)
	assert.Equal(t, "person", ti.Elem)

	ti, ok = reg.Type("name")
	require.True(t, ok)
	assert.Equal(t, pgcodec.CategoryStandard, ti.Category)

	for _, name := range []string{"int4range", "int4multirange", "positive_int"} {
		ti, ok = reg.Type(name)
		require.True(t, ok, name)
		assert.Equal(t, pgcodec.CategoryStandard, ti.Category, name)
	}

	// Table row types are not loaded by default and neither are their arrays.
	// Composites without attributes are skipped.
	for _, oid := range []uint32{16420, 16421, 16430} {
		_, ok = reg.TypeByOID(oid)
		assert.False(t, ok, oid)
	}
}

func TestAssembleTableRowTypes(t *testing.T) {
	l := newLoader([]Option{WithTableRowTypes()})
	reg, err := l.assemble(context.Background(), testTypes(), testEnums(), testAttributes()).Build()
	require.NoError(t, err)

	ti, ok := reg.Type("app.account")
	require.True(t, ok)
	assert.Equal(t, []pgcodec.Attribute{{Name: "id", Type: "int4"}, {Name: "owner", Type: "person"}}, ti.Attributes)

	ti, ok = reg.Type("app.account[]")
	require.True(t, ok)
	assert.Equal(t, "app._account", ti.Name)
	assert.Equal(t, "app.account", ti.Elem)
}

func TestAssembleSkipsCompositeWithUnknownAttributeType(t *testing.T) {
	var logged []string
	logger := tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		logged = append(logged, msg+" "+data["type"].(string))
	})

	attributes := append(testAttributes(), attributeRow{RelID: 16409, Name: "extra", TypeOID: 99999})
	l := newLoader([]Option{WithLogger(logger, tracelog.LogLevelWarn)})
	reg, err := l.assemble(context.Background(), testTypes(), testEnums(), attributes).Build()
	require.NoError(t, err)

	_, ok := reg.Type("person")
	assert.False(t, ok)
	_, ok = reg.Type("_person")
	assert.False(t, ok)
	assert.Contains(t, logged, "skipping composite type person")
}

func TestAssembleWithCodecs(t *testing.T) {
	type Status string
	codec := pgcodec.NewEnumCodec("user_status", map[string]Status{"Active": "a", "PendingReview": "p"})

	l := newLoader([]Option{WithCodecs(codec)})
	reg, err := l.assemble(context.Background(), testTypes(), testEnums(), testAttributes()).Build()
	require.NoError(t, err)

	v, err := reg.DecodeText("{active,pending_review}", "_user_status")
	require.NoError(t, err)
	assert.Equal(t, []any{Status("a"), Status("p")}, v)

	l = newLoader([]Option{WithCodecs(codec), WithRequiredCodecs()})
	_, err = l.assemble(context.Background(), testTypes(), testEnums(), testAttributes()).Build()
	assert.ErrorContains(t, err, "person")
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "int4", qualifiedName("pg_catalog", "int4"))
	assert.Equal(t, "user_status", qualifiedName("public", "user_status"))
	assert.Equal(t, "app.account", qualifiedName("app", "account"))
}

func TestParseServerVersion(t *testing.T) {
	for _, tt := range []struct {
		s        string
		expected string
	}{
		{s: "16.2", expected: "16.2.0"},
		{s: "16.2 (Debian 16.2-1.pgdg120+2)", expected: "16.2.0"},
		{s: "17beta1", expected: "17.0.0"},
		{s: "9.6.24", expected: "9.6.0"},
	} {
		v, err := ParseServerVersion(tt.s)
		require.NoError(t, err, tt.s)
		assert.Equal(t, tt.expected, v.String(), tt.s)
	}

	_, err := ParseServerVersion("unknown")
	assert.Error(t, err)

	v, _ := ParseServerVersion("9.6.24")
	assert.False(t, minimumVersion.Check(v))
	v, _ = ParseServerVersion("10.1")
	assert.True(t, minimumVersion.Check(v))
}
