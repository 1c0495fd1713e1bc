package pgcodec

import (
	"fmt"

	"github.com/pgfluent/pgfluent/internal/pgtext"
)

// EncodeText returns the text format of v as a value of typeName. It is the
// inverse of Decode: a nil result means NULL.
//
// A string is accepted for any type and is taken to already be in text format.
func (r *Registry) EncodeText(v any, typeName string) ([]byte, error) {
	ti, ok := r.lookup(typeName)
	if !ok {
		return nil, &UnknownTypeError{TypeName: typeName}
	}

	val, err := r.ValueOf(v)
	if err != nil {
		return nil, err
	}

	s, err := r.encode(ti, val)
	if err != nil || s == nil {
		return nil, err
	}
	return []byte(*s), nil
}

func (r *Registry) encode(ti *TypeInfo, v Value) (*string, error) {
	switch v := v.(type) {
	case NullValue:
		return nil, nil

	case Blob:
		return &v.Text, nil

	case ScalarValue:
		if s, ok := v.V.(string); ok {
			return &s, nil
		}
		if ti.Category != CategoryStandard {
			return nil, &ConversionError{TypeName: ti.Name, Text: fmt.Sprint(v.V), Err: fmt.Errorf("%T is not a %s value", v.V, ti.Category)}
		}
		s, err := encodeStandard(ti.Name, v.V)
		if err != nil {
			return nil, err
		}
		return &s, nil

	case ArrayValue:
		if ti.Category != CategoryArray {
			return nil, &ConversionError{TypeName: ti.Name, Text: "array", Err: fmt.Errorf("%s is not an array type", ti.Name)}
		}
		elem, ok := r.types[ti.Elem]
		if !ok {
			return nil, &UnknownTypeError{TypeName: ti.Elem}
		}

		elems := make([]*string, len(v.Elems))
		nested := make([]bool, len(v.Elems))
		for i, e := range v.Elems {
			var err error
			if _, ok := e.(ArrayValue); ok {
				nested[i] = true
				elems[i], err = r.encode(ti, e)
			} else {
				elems[i], err = r.encode(elem, e)
			}
			if err != nil {
				return nil, fmt.Errorf("%s element %d: %w", ti.Name, i+1, err)
			}
		}

		s := string(pgtext.AppendArray(nil, elems, func(i int) bool { return nested[i] }))
		return &s, nil

	case CompositeValue:
		if ti.Category != CategoryComposite || CanonicalTypeName(v.TypeName) != ti.Name {
			return nil, &ConversionError{TypeName: ti.Name, Text: v.TypeName, Err: fmt.Errorf("value of composite %s", v.TypeName)}
		}
		if len(v.Fields) != len(ti.Attributes) {
			return nil, &ArityError{TypeName: ti.Name, Expected: len(ti.Attributes), Got: len(v.Fields)}
		}

		fields := make([]*string, len(v.Fields))
		for i, f := range v.Fields {
			attrType, ok := r.lookup(ti.Attributes[i].Type)
			if !ok {
				return nil, &CompositeConstructionError{TypeName: ti.Name, Field: i + 1, Err: &UnknownTypeError{TypeName: ti.Attributes[i].Type}}
			}
			s, err := r.encode(attrType, f)
			if err != nil {
				return nil, &CompositeConstructionError{TypeName: ti.Name, Field: i + 1, Err: err}
			}
			fields[i] = s
		}

		s := string(pgtext.AppendComposite(nil, fields))
		return &s, nil
	}

	return nil, fmt.Errorf("unexpected value %T", v)
}
