package pgcodec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pgfluent/pgfluent/internal/pgtext"
)

var errNoCodec = errors.New("no codec registered")

// Decode converts the text format of a value of typeName into a Go value. A
// nil src is NULL and decodes to nil without looking at typeName.
//
// Standard types decode to the Go types documented on the package, enums to the
// constants of their EnumCodec, composites to the values built by their
// CompositeCodec and arrays to []any.
func (r *Registry) Decode(src []byte, typeName string) (any, error) {
	if src == nil {
		return nil, nil
	}
	return r.DecodeText(string(src), typeName)
}

// DecodeText is Decode for a non-NULL value.
func (r *Registry) DecodeText(src, typeName string) (any, error) {
	ti, ok := r.lookup(typeName)
	if !ok {
		return nil, &UnknownTypeError{TypeName: typeName}
	}
	return r.decode(ti, src)
}

func (r *Registry) decode(ti *TypeInfo, src string) (any, error) {
	switch ti.Category {
	case CategoryStandard:
		return decodeStandard(ti.Name, src)
	case CategoryEnum:
		return r.decodeEnum(ti, src)
	case CategoryArray:
		return r.decodeArray(ti, src)
	case CategoryComposite:
		return r.decodeComposite(ti, src)
	}
	return nil, fmt.Errorf("type %s: %v", ti.Name, ti.Category)
}

func (r *Registry) decodeEnum(ti *TypeInfo, src string) (any, error) {
	codec, ok := r.enums[ti.Name]
	if !ok {
		return nil, &EnumConversionError{TypeName: ti.Name, Label: src, Reason: errNoCodec.Error()}
	}

	ident := ti.Naming.Identifier(src)
	v, ok := codec.byIdent[ident]
	if !ok {
		return nil, &EnumConversionError{TypeName: ti.Name, Label: src, Reason: fmt.Sprintf("no constant for identifier %s", ident)}
	}
	return v, nil
}

// stripDimensions removes the optional explicit bounds decoration of an array
// literal, e.g. [0:1]={a,b}.
func stripDimensions(src string) string {
	s := strings.TrimSpace(src)
	if !strings.HasPrefix(s, "[") {
		return src
	}
	if i := strings.IndexByte(s, '='); i > 0 {
		return s[i+1:]
	}
	return src
}

func (r *Registry) decodeArray(ti *TypeInfo, src string) (any, error) {
	elem, ok := r.types[ti.Elem]
	if !ok {
		return nil, &UnknownTypeError{TypeName: ti.Elem}
	}

	fields, err := pgtext.SplitArray(stripDimensions(src))
	if err != nil {
		return nil, malformed(ti.Name, err)
	}

	elems := make([]any, len(fields))
	for i, f := range fields {
		if f.Null {
			continue
		}

		var v any
		if !f.Quoted && strings.HasPrefix(f.Text, "{") {
			// A sub-array of a multi-dimensional array has the array's own type.
			v, err = r.decodeArray(ti, f.Text)
		} else {
			v, err = r.decode(elem, f.Text)
		}
		if err != nil {
			return nil, fmt.Errorf("%s element %d: %w", ti.Name, i+1, err)
		}
		elems[i] = v
	}

	return elems, nil
}

func (r *Registry) decodeComposite(ti *TypeInfo, src string) (any, error) {
	fields, err := pgtext.SplitComposite(src)
	if err != nil {
		return nil, malformed(ti.Name, err)
	}

	if len(fields) != len(ti.Attributes) {
		return nil, &ArityError{TypeName: ti.Name, Expected: len(ti.Attributes), Got: len(fields)}
	}

	codec, ok := r.composites[ti.Name]
	if !ok {
		return nil, &CompositeConstructionError{TypeName: ti.Name, Err: errNoCodec}
	}

	values := make([]any, len(fields))
	for i, f := range fields {
		if f.Null {
			continue
		}

		attrType, ok := r.lookup(ti.Attributes[i].Type)
		if !ok {
			return nil, &CompositeConstructionError{TypeName: ti.Name, Field: i + 1, Err: &UnknownTypeError{TypeName: ti.Attributes[i].Type}}
		}

		v, err := r.decode(attrType, f.Text)
		if err != nil {
			return nil, &CompositeConstructionError{TypeName: ti.Name, Field: i + 1, Err: err}
		}
		values[i] = v
	}

	v, err := codec.decode(values)
	if err != nil {
		return nil, &CompositeConstructionError{TypeName: ti.Name, Err: err}
	}
	return v, nil
}

func malformed(typeName string, err error) error {
	var me *pgtext.MalformedError
	if errors.As(err, &me) {
		return &MalformedStructureError{TypeName: typeName, err: me}
	}
	return err
}
