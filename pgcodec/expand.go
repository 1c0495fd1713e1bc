package pgcodec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pgfluent/pgfluent/internal/namedsql"
)

// emptyArray replaces a placeholder bound to an empty list. The untyped literal
// lets the server infer the array type from context.
const emptyArray = "'{}'"

// Expander rewrites SQL with :name placeholders so that every structured
// parameter becomes an expression the server can construct:
//
//   - a non-empty list becomes ARRAY[:name_p1, :name_p2, ...]
//   - an empty list becomes '{}' and contributes no parameter
//   - a composite becomes ROW(:name_f1, :name_f2, ...)::type
//
// Elements and fields are expanded recursively and their names compose, e.g.
// the first field of the second element of :people is :people_p2_f1. Enums
// and JSON documents are bound as Blob. An Expander is safe for concurrent use.
type Expander struct {
	registry *Registry
}

func NewExpander(registry *Registry) *Expander {
	return &Expander{registry: registry}
}

// Expand returns the rewritten SQL and the flat parameters it references. The
// returned parameters only hold scalars, nil and Blobs. Parameters that sql
// does not reference are kept when they are flat values and dropped when they
// are lists or composites, which have no placeholder to expand into. Expanding
// SQL whose
// parameters are already flat returns the same SQL.
//
// Placeholders in string literals, quoted identifiers and comments are left
// alone. Expansion either succeeds completely or returns an error.
func (e *Expander) Expand(sql string, params map[string]any) (string, map[string]any, error) {
	q := namedsql.ParseCached(sql)

	flat := make(map[string]any, len(params))
	fragments := make(map[string]string)
	for _, name := range q.Names() {
		v, ok := params[name]
		if !ok {
			continue
		}

		val, err := e.registry.ValueOf(v)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %s: %w", name, err)
		}

		frag, err := e.expand(name, val, flat)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		fragments[name] = frag
	}

	for name, v := range params {
		if _, referenced := fragments[name]; referenced {
			continue
		}
		if _, dup := flat[name]; dup {
			return "", nil, fmt.Errorf("parameter %s collides with a generated parameter name", name)
		}

		val, err := e.registry.ValueOf(v)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		switch val := val.(type) {
		case NullValue:
			flat[name] = nil
		case ScalarValue:
			flat[name] = val.V
		case Blob:
			flat[name] = val
		}
	}

	var sb strings.Builder
	sb.Grow(len(sql))
	for _, part := range q.Parts {
		switch part := part.(type) {
		case string:
			sb.WriteString(part)
		case namedsql.Placeholder:
			if frag, ok := fragments[string(part)]; ok {
				sb.WriteString(frag)
			} else {
				sb.WriteByte(':')
				sb.WriteString(string(part))
			}
		}
	}

	return sb.String(), flat, nil
}

// ExpandPositional is Expand followed by rebinding the named placeholders to
// $1, $2, ... It returns a *MissingParamError when sql references a parameter
// that params does not hold.
func (e *Expander) ExpandPositional(sql string, params map[string]any) (string, []any, error) {
	expanded, flat, err := e.Expand(sql, params)
	if err != nil {
		return "", nil, err
	}
	return namedsql.Parse(expanded).Rebind(flat)
}

func (e *Expander) expand(name string, v Value, flat map[string]any) (string, error) {
	if _, dup := flat[name]; dup {
		return "", fmt.Errorf("generated parameter name %s is already in use", name)
	}

	switch v := v.(type) {
	case NullValue:
		flat[name] = nil
		return ":" + name, nil

	case ScalarValue:
		flat[name] = v.V
		return ":" + name, nil

	case Blob:
		flat[name] = v
		return ":" + name, nil

	case ArrayValue:
		if len(v.Elems) == 0 {
			return emptyArray, nil
		}

		var sb strings.Builder
		sb.WriteString("ARRAY[")
		for i, elem := range v.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			frag, err := e.expand(name+"_p"+strconv.Itoa(i+1), elem, flat)
			if err != nil {
				return "", err
			}
			sb.WriteString(frag)
		}
		sb.WriteByte(']')
		return sb.String(), nil

	case CompositeValue:
		ti, ok := e.registry.lookup(v.TypeName)
		if !ok {
			return "", &UnknownTypeError{TypeName: v.TypeName}
		}

		var sb strings.Builder
		sb.WriteString("ROW(")
		for i, field := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			frag, err := e.expand(name+"_f"+strconv.Itoa(i+1), field, flat)
			if err != nil {
				return "", err
			}
			sb.WriteString(frag)
		}
		sb.WriteString(")::")
		sb.WriteString(QuoteTypeName(ti.Name))
		return sb.String(), nil
	}

	return "", fmt.Errorf("unexpected value %T", v)
}

// QuoteTypeName quotes each part of a possibly schema qualified type name that
// is not a plain lower case identifier.
func QuoteTypeName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if !isPlainIdentifier(p) {
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

func isPlainIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || ('a' <= c && c <= 'z'):
		case i > 0 && (('0' <= c && c <= '9') || c == '$'):
		default:
			return false
		}
	}
	return true
}
