package pgfluent

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/pgfluent/pgfluent/pgcodec"
)

// mapper assigns decoded row values to a T.
type mapper struct {
	typ reflect.Type

	// fields maps column names to struct field indexes. It is nil when T is
	// not a struct.
	fields map[string][]int

	// loose maps the names of untagged fields with underscores removed, so
	// that Address2 also matches an address2 column.
	loose map[string][]int
}

var mapperCache sync.Map // reflect.Type -> *mapper

// newMapper returns the mapper for T. A struct T is mapped by column name,
// anything else must be the target of a single column.
func newMapper[T any]() (*mapper, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if m, ok := mapperCache.Load(typ); ok {
		return m.(*mapper), nil
	}

	m := &mapper{typ: typ}
	if typ.Kind() == reflect.Struct && !isValueStruct(typ) {
		m.fields = make(map[string][]int)
		m.loose = make(map[string][]int)
		if err := collectFields(typ, nil, m.fields, m.loose); err != nil {
			return nil, err
		}
	}

	actual, _ := mapperCache.LoadOrStore(typ, m)
	return actual.(*mapper), nil
}

// isValueStruct reports whether values of typ are decoded as a whole, e.g.
// time.Time or decimal.Decimal.
func isValueStruct(typ reflect.Type) bool {
	return typ.PkgPath() != "" && len(exportedFields(typ)) == 0
}

func exportedFields(typ reflect.Type) []reflect.StructField {
	var fields []reflect.StructField
	for i := 0; i < typ.NumField(); i++ {
		if f := typ.Field(i); f.IsExported() {
			fields = append(fields, f)
		}
	}
	return fields
}

// collectFields records the column name of every exported field of typ.
// Fields of embedded structs are promoted.
func collectFields(typ reflect.Type, index []int, fields, loose map[string][]int) error {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag, hasTag := f.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		if f.Anonymous && !hasTag && f.Type.Kind() == reflect.Struct {
			if err := collectFields(f.Type, append(index, i), fields, loose); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}

		fieldIndex := append(append([]int(nil), index...), i)
		name := tag
		if name == "" {
			name = pgcodec.SnakePascal.Label(f.Name)
			loose[strings.ReplaceAll(name, "_", "")] = fieldIndex
		}
		if _, ok := fields[name]; ok {
			return fmt.Errorf("%s: column %s is mapped by more than one field", typ, name)
		}
		fields[name] = fieldIndex
	}
	return nil
}

// scan assigns values to dst. Columns without a matching field are ignored.
func (m *mapper) scan(columns []Column, values []any, dst any) error {
	rv := reflect.ValueOf(dst).Elem()

	// A single column holding a T, e.g. a composite decoded by its codec, is
	// assigned as a whole.
	single := len(values) == 1 && values[0] != nil && reflect.TypeOf(values[0]).AssignableTo(m.typ)

	if m.fields == nil || single {
		if len(values) != 1 {
			return fmt.Errorf("cannot map %d columns to %s", len(values), m.typ)
		}
		v, err := pgcodec.Convert(values[0], m.typ)
		if err != nil {
			return fmt.Errorf("column %s: %w", columns[0].Name, err)
		}
		rv.Set(v)
		return nil
	}

	for i, c := range columns {
		name := strings.ToLower(c.Name)
		index, ok := m.fields[name]
		if !ok {
			index, ok = m.loose[strings.ReplaceAll(name, "_", "")]
		}
		if !ok {
			continue
		}
		field := rv.FieldByIndex(index)
		v, err := pgcodec.Convert(values[i], field.Type())
		if err != nil {
			return fmt.Errorf("column %s: %w", c.Name, err)
		}
		field.Set(v)
	}
	return nil
}
