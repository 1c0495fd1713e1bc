package pgcodec

import (
	"database/sql/driver"
	"encoding/json"
	"reflect"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Value is a Go value lifted into one of the shapes the Expander and the text
// encoder understand: NullValue, ScalarValue, ArrayValue, CompositeValue or
// Blob.
type Value interface {
	isValue()
}

// NullValue is SQL NULL.
type NullValue struct{}

// ScalarValue is a value with no structural decomposition. It is bound as is.
type ScalarValue struct {
	V any
}

// ArrayValue is a list of values, possibly nested.
type ArrayValue struct {
	Elems []Value
}

// CompositeValue holds the fields of a composite type in attribute order.
type CompositeValue struct {
	TypeName string
	Fields   []Value
}

// Blob is an opaque value already in its wire text form, tagged with the
// database type it must be read as. Enum values and JSON documents become
// Blobs.
type Blob struct {
	TypeName string
	Text     string
}

func (NullValue) isValue()      {}
func (ScalarValue) isValue()    {}
func (ArrayValue) isValue()     {}
func (CompositeValue) isValue() {}
func (Blob) isValue()           {}

// Value implements the database/sql/driver Valuer interface. pgx also uses it
// when binding a Blob.
func (b Blob) Value() (driver.Value, error) {
	return b.Text, nil
}

// JSON marks V to be bound as a jsonb document rather than decomposed, e.g. a
// slice that is meant to be a JSON array instead of a PostgreSQL array.
type JSON struct {
	V any
}

var byteSliceType = reflect.TypeOf([]byte(nil))

// ValueOf lifts v into a Value. Values of Go types bound to an enum or
// composite codec are converted through the codec. Slices and arrays (other than
// byte slices) become ArrayValue, maps become jsonb Blobs and pointers are
// followed. Everything else is a ScalarValue. A nil slice is NULL while an empty
// non-nil slice is an empty array.
func (r *Registry) ValueOf(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return NullValue{}, nil
	case Value:
		return v, nil
	case JSON:
		return jsonBlob(v.V)
	case json.RawMessage:
		if v == nil {
			return NullValue{}, nil
		}
		return Blob{TypeName: "jsonb", Text: string(v)}, nil
	case []byte:
		if v == nil {
			return NullValue{}, nil
		}
		return ScalarValue{V: v}, nil
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64,
		time.Time, time.Duration, decimal.Decimal, uuid.UUID:
		if _, bound := r.hostTypes[reflect.TypeOf(v)]; !bound {
			return ScalarValue{V: v}, nil
		}
	}

	rv := reflect.ValueOf(v)
	if typeName, ok := r.hostTypes[rv.Type()]; ok {
		return r.structuredValue(typeName, v)
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return NullValue{}, nil
		}
		return r.ValueOf(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return NullValue{}, nil
		}
		if rv.Type().ConvertibleTo(byteSliceType) {
			return ScalarValue{V: rv.Convert(byteSliceType).Interface()}, nil
		}
		return r.arrayValue(rv)
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return ScalarValue{V: v}, nil
		}
		return r.arrayValue(rv)
	case reflect.Map:
		if rv.IsNil() {
			return NullValue{}, nil
		}
		return jsonBlob(v)
	}

	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		if dv == nil {
			return NullValue{}, nil
		}
	}

	return ScalarValue{V: v}, nil
}

func (r *Registry) arrayValue(rv reflect.Value) (Value, error) {
	elems := make([]Value, rv.Len())
	for i := range elems {
		ev, err := r.ValueOf(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		elems[i] = ev
	}
	return ArrayValue{Elems: elems}, nil
}

func (r *Registry) structuredValue(typeName string, v any) (Value, error) {
	if codec, ok := r.enums[typeName]; ok {
		ti := r.types[typeName]
		ident, ok := codec.identifier(v)
		if !ok {
			return nil, &EnumConversionError{TypeName: typeName, Value: v, Reason: "value is not a registered constant"}
		}
		return Blob{TypeName: typeName, Text: r.enumLabel(ti, ident)}, nil
	}

	codec := r.composites[typeName]
	ti := r.types[typeName]

	fields, err := codec.encode(v)
	if err != nil {
		return nil, &CompositeConstructionError{TypeName: typeName, Err: err}
	}
	if len(fields) != len(ti.Attributes) {
		return nil, &ArityError{TypeName: typeName, Expected: len(ti.Attributes), Got: len(fields)}
	}

	cv := CompositeValue{TypeName: typeName, Fields: make([]Value, len(fields))}
	for i, f := range fields {
		fv, err := r.ValueOf(f)
		if err != nil {
			return nil, err
		}
		cv.Fields[i] = fv
	}
	return cv, nil
}

func jsonBlob(v any) (Value, error) {
	if v == nil {
		return NullValue{}, nil
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, &ConversionError{TypeName: "jsonb", Text: "", Err: err}
	}
	return Blob{TypeName: "jsonb", Text: string(buf)}, nil
}
