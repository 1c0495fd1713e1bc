package pgcodec

import (
	"fmt"

	"github.com/pgfluent/pgfluent/internal/namedsql"
	"github.com/pgfluent/pgfluent/internal/pgtext"
)

// UnknownTypeError is returned when a type name is not in the Registry.
type UnknownTypeError struct {
	TypeName string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q", e.TypeName)
}

// MalformedStructureError is returned when array or composite text is not
// bracketed by the expected delimiters or has unbalanced quoting or nesting.
// It usually indicates a wire format mismatch.
type MalformedStructureError struct {
	TypeName string
	err      *pgtext.MalformedError
}

func (e *MalformedStructureError) Error() string {
	return fmt.Sprintf("cannot decode %s: %s", e.TypeName, e.err.Error())
}

func (e *MalformedStructureError) Unwrap() error {
	return e.err
}

// ArityError is returned when a composite literal has a different number of
// fields than the registered type has attributes. It indicates the registry and
// the database schema have drifted apart.
type ArityError struct {
	TypeName string
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("composite %s has %d attributes but value has %d fields", e.TypeName, e.Expected, e.Got)
}

// EnumConversionError is returned when an enum label or Go value cannot be
// resolved through the enum's codec. It is scoped to a single value.
type EnumConversionError struct {
	TypeName string
	Label    string
	Value    any
	Reason   string
}

func (e *EnumConversionError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("cannot convert %v (%T) to enum %s: %s", e.Value, e.Value, e.TypeName, e.Reason)
	}
	return fmt.Sprintf("cannot convert label %q of enum %s: %s", e.Label, e.TypeName, e.Reason)
}

// CompositeConstructionError is returned when a composite value cannot be built
// from its decoded fields, or a Go value cannot be decomposed into fields.
type CompositeConstructionError struct {
	TypeName string
	Field    int // 1-based field position, 0 when not specific to a field
	Err      error
}

func (e *CompositeConstructionError) Error() string {
	if e.Field > 0 {
		return fmt.Sprintf("cannot construct composite %s: field %d: %v", e.TypeName, e.Field, e.Err)
	}
	return fmt.Sprintf("cannot construct composite %s: %v", e.TypeName, e.Err)
}

func (e *CompositeConstructionError) Unwrap() error {
	return e.Err
}

// ConversionError is returned when the text of a standard type cannot be parsed
// or a Go value cannot be encoded as that type.
type ConversionError struct {
	TypeName string
	Text     string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %v", e.Text, e.TypeName, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// MissingParamError is returned when SQL references a placeholder that has no
// value.
type MissingParamError = namedsql.MissingParamError
