package pgcodec

import (
	"fmt"
	"reflect"
)

// Codec binds a Go type to an enum or composite database type. Codecs are
// registered with Builder.Register and checked against the catalog when the
// Registry is built.
type Codec interface {
	// TypeName returns the database type name the codec is bound to.
	TypeName() string

	// HostType returns the Go type the codec produces and accepts.
	HostType() reflect.Type

	category() TypeCategory
}

// EnumCodec converts between enum labels and Go constants. The label is first
// mapped to an identifier by the enum's NamingConvention, then the identifier
// is looked up among the constants the codec was built with.
type EnumCodec struct {
	typeName   string
	hostType   reflect.Type
	byIdent    map[string]any
	identifier func(v any) (string, bool)
}

// NewEnumCodec returns a codec binding the constants of T to the enum typeName.
// constants maps Go identifiers, as produced by the enum's naming convention,
// to values.
//
//	pgcodec.NewEnumCodec("user_status", map[string]UserStatus{
//		"Active":        StatusActive,
//		"PendingReview": StatusPendingReview,
//	})
func NewEnumCodec[T comparable](typeName string, constants map[string]T) *EnumCodec {
	byIdent := make(map[string]any, len(constants))
	byValue := make(map[T]string, len(constants))
	for ident, v := range constants {
		byIdent[ident] = v
		byValue[v] = ident
	}

	return &EnumCodec{
		typeName: typeName,
		hostType: reflect.TypeOf((*T)(nil)).Elem(),
		byIdent:  byIdent,
		identifier: func(v any) (string, bool) {
			t, ok := v.(T)
			if !ok {
				return "", false
			}
			ident, ok := byValue[t]
			return ident, ok
		},
	}
}

func (c *EnumCodec) TypeName() string       { return c.typeName }
func (c *EnumCodec) HostType() reflect.Type { return c.hostType }
func (c *EnumCodec) category() TypeCategory { return CategoryEnum }

// CompositeCodec converts between the fields of a composite type and a Go
// value. Fields are always in the attribute order of the database type.
type CompositeCodec struct {
	typeName string
	hostType reflect.Type
	encode   func(v any) ([]any, error)
	decode   func(fields []any) (any, error)
}

// NewCompositeCodec returns a codec binding T to the composite typeName. encode
// returns the fields of a T in attribute order; decode builds a T from decoded
// fields in the same order. A NULL field is passed to decode as nil.
func NewCompositeCodec[T any](typeName string, encode func(T) []any, decode func(fields []any) (T, error)) *CompositeCodec {
	return &CompositeCodec{
		typeName: typeName,
		hostType: reflect.TypeOf((*T)(nil)).Elem(),
		encode: func(v any) ([]any, error) {
			t, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("expected %T, got %T", *new(T), v)
			}
			return encode(t), nil
		},
		decode: func(fields []any) (any, error) {
			return decode(fields)
		},
	}
}

func (c *CompositeCodec) TypeName() string       { return c.typeName }
func (c *CompositeCodec) HostType() reflect.Type { return c.hostType }
func (c *CompositeCodec) category() TypeCategory { return CategoryComposite }

// Field returns fields[i] as a T. It is a helper for composite decode
// functions: nil becomes the zero T, numeric values are converted when T is a
// different numeric type.
func Field[T any](fields []any, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(fields) {
		return zero, fmt.Errorf("field %d out of range (%d fields)", i+1, len(fields))
	}
	return As[T](fields[i])
}

// As converts a decoded value to T. nil becomes the zero T. Values that are
// convertible to T by Go conversion rules (e.g. int32 to int) are converted.
// Decoded arrays ([]any) are converted element-wise when T is a slice type.
func As[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	if t, ok := v.(T); ok {
		return t, nil
	}

	target := reflect.TypeOf((*T)(nil)).Elem()
	rv, err := convertValue(reflect.ValueOf(v), target)
	if err != nil {
		return zero, err
	}
	return rv.Interface().(T), nil
}

// Convert is As for a target type known only at run time.
func Convert(v any, target reflect.Type) (reflect.Value, error) {
	return convertValue(reflect.ValueOf(v), target)
}

// convertValue converts src to target following the rules of As.
func convertValue(src reflect.Value, target reflect.Type) (reflect.Value, error) {
	if !src.IsValid() {
		return reflect.Zero(target), nil
	}
	if src.Kind() == reflect.Interface {
		if src.IsNil() {
			return reflect.Zero(target), nil
		}
		src = src.Elem()
	}

	switch {
	case src.Type().AssignableTo(target):
		rv := reflect.New(target).Elem()
		rv.Set(src)
		return rv, nil
	case target.Kind() == reflect.Pointer:
		elem, err := convertValue(src, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case target.Kind() == reflect.Slice && src.Kind() == reflect.Slice && src.Type() != byteSliceType:
		out := reflect.MakeSlice(target, src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			ev, err := convertValue(src.Index(i), target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case isNumeric(src.Kind()) && isNumeric(target.Kind()),
		src.Kind() == reflect.String && target.Kind() == reflect.String:
		return src.Convert(target), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", src.Type(), target)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
