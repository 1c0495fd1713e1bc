// Package pgcodec converts between the PostgreSQL text format and Go values.
//
// A Registry describes every type of a database: standard scalars, enums,
// composite types and arrays of any of them. It is built once, usually by the
// catalog package, and is immutable afterwards.
//
// Go types are bound to enum and composite types with codecs registered on the
// Builder:
//
//	reg, err := pgcodec.NewBuilder().
//		WithBuiltins().
//		AddEnum("user_status", pgcodec.SnakePascal, "active", "pending_review").
//		AddComposite("person",
//			pgcodec.Attribute{Name: "name", Type: "text"},
//			pgcodec.Attribute{Name: "roles", Type: "text[]"},
//		).
//		Register(
//			pgcodec.NewEnumCodec("user_status", map[string]UserStatus{
//				"Active":        StatusActive,
//				"PendingReview": StatusPendingReview,
//			}),
//			pgcodec.NewCompositeCodec("person", encodePerson, decodePerson),
//		).
//		Build()
//
// Registry.Decode turns the text of a column into a Go value. Standard types
// decode as follows:
//
//	int2, int4, int8           int16, int32, int64
//	oid, xid, cid              uint32
//	float4, float8             float32, float64
//	bool                       bool
//	numeric                    decimal.Decimal
//	date, time, timestamp(tz)  time.Time
//	interval                   time.Duration
//	json, jsonb                any, as produced by encoding/json
//	uuid                       uuid.UUID
//	bytea                      []byte
//	anything else              string
//
// Arrays decode to []any. Multi-dimensional arrays decode to nested []any.
//
// An Expander rewrites :name placeholders bound to lists and composite values
// into ARRAY[...] and ROW(...)::type expressions over flat parameters.
package pgcodec
