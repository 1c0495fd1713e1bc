package pgcodec

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// TypeCategory drives conversion dispatch.
type TypeCategory int

const (
	CategoryStandard TypeCategory = iota + 1
	CategoryEnum
	CategoryComposite
	CategoryArray
)

func (c TypeCategory) String() string {
	switch c {
	case CategoryStandard:
		return "standard"
	case CategoryEnum:
		return "enum"
	case CategoryComposite:
		return "composite"
	case CategoryArray:
		return "array"
	default:
		return fmt.Sprintf("invalid category %d", int(c))
	}
}

// Attribute is one attribute of a composite type.
type Attribute struct {
	Name string
	Type string
}

// TypeInfo describes one database type.
type TypeInfo struct {
	// Name is the canonical lower case name, e.g. int4, _int4 or user_status.
	// Types outside of pg_catalog and public are schema qualified.
	Name string

	// OID is the type's oid or 0 when it is not known.
	OID uint32

	Category TypeCategory

	// Elem is the element type name of an array type. An array of arrays has an
	// array type as Elem.
	Elem string

	// Attributes of a composite type in physical order.
	Attributes []Attribute

	// Naming of an enum type. Defaults to SnakePascal.
	Naming NamingConvention

	// Labels of an enum type in sort order.
	Labels []string
}

// clone returns a copy of ti that shares no slices with it.
func (ti *TypeInfo) clone() TypeInfo {
	c := *ti
	c.Attributes = slices.Clone(ti.Attributes)
	c.Labels = slices.Clone(ti.Labels)
	return c
}

// Registry is an immutable catalog of database types and the codecs bound to
// them. It is safe for concurrent use.
type Registry struct {
	types      map[string]*TypeInfo
	byOID      map[uint32]*TypeInfo
	hostTypes  map[reflect.Type]string
	enums      map[string]*EnumCodec
	composites map[string]*CompositeCodec

	// enumLabels maps the identifier of each declared enum label back to the
	// label, per enum type. The naming convention is not always invertible,
	// e.g. tier2 -> Tier2 -> tier_2.
	enumLabels map[string]map[string]string
}

// enumLabel returns the database label of the enum constant with identifier
// ident. Declared labels win over the naming convention.
func (r *Registry) enumLabel(ti *TypeInfo, ident string) string {
	if label, ok := r.enumLabels[ti.Name][ident]; ok {
		return label
	}
	return ti.Naming.Label(ident)
}

// Type returns the type registered under name. name may be an alias such as
// integer or text[].
func (r *Registry) Type(name string) (TypeInfo, bool) {
	ti, ok := r.lookup(name)
	if !ok {
		return TypeInfo{}, false
	}
	return ti.clone(), true
}

// TypeByOID returns the type with the given oid.
func (r *Registry) TypeByOID(oid uint32) (TypeInfo, bool) {
	ti, ok := r.byOID[oid]
	if !ok {
		return TypeInfo{}, false
	}
	return ti.clone(), true
}

// TypeNameOf returns the name of the enum or composite type bound to the Go
// type of v.
func (r *Registry) TypeNameOf(v any) (string, bool) {
	name, ok := r.hostTypes[reflect.TypeOf(v)]
	return name, ok
}

// HostType returns the Go type bound to the enum or composite typeName.
func (r *Registry) HostType(typeName string) (reflect.Type, bool) {
	ti, ok := r.lookup(typeName)
	if !ok {
		return nil, false
	}
	if c, ok := r.enums[ti.Name]; ok {
		return c.hostType, true
	}
	if c, ok := r.composites[ti.Name]; ok {
		return c.hostType, true
	}
	return nil, false
}

// Types returns all types ordered by name.
func (r *Registry) Types() []TypeInfo {
	infos := make([]TypeInfo, 0, len(r.types))
	for _, ti := range r.types {
		infos = append(infos, ti.clone())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (r *Registry) lookup(name string) (*TypeInfo, bool) {
	if ti, ok := r.types[name]; ok {
		return ti, true
	}
	ti, ok := r.types[CanonicalTypeName(name)]
	return ti, ok
}

var typeAliases = map[string]string{
	"smallint":                    "int2",
	"integer":                     "int4",
	"int":                         "int4",
	"bigint":                      "int8",
	"real":                        "float4",
	"double precision":            "float8",
	"decimal":                     "numeric",
	"boolean":                     "bool",
	"character varying":           "varchar",
	"character":                   "bpchar",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
	"time without time zone":      "time",
	"time with time zone":         "timetz",
}

// CanonicalTypeName lower cases name, resolves SQL spellings such as integer and
// rewrites a trailing [] to the _name array convention.
func CanonicalTypeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if strings.HasSuffix(n, "[]") {
		return arrayTypeName(CanonicalTypeName(strings.TrimSuffix(n, "[]")))
	}
	if alias, ok := typeAliases[n]; ok {
		return alias
	}
	return n
}

// arrayTypeName returns the array alias of name: _name, or schema._name for a
// qualified name.
func arrayTypeName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i+1] + "_" + name[i+1:]
	}
	return "_" + name
}

// Builder accumulates types and codecs for a Registry. The zero value is not
// usable; use NewBuilder.
type Builder struct {
	types         map[string]TypeInfo
	codecs        []Codec
	requireCodecs bool
}

func NewBuilder() *Builder {
	return &Builder{types: make(map[string]TypeInfo)}
}

var builtinTypes = []struct {
	name string
	elem string
}{
	{name: "bool"}, {name: "bytea"}, {name: "char"}, {name: "name"}, {name: "int8"}, {name: "int2"},
	{name: "int4"}, {name: "text"}, {name: "oid"}, {name: "xid"}, {name: "cid"}, {name: "json"},
	{name: "xml"}, {name: "float4"}, {name: "float8"}, {name: "bpchar"}, {name: "varchar"},
	{name: "date"}, {name: "time"}, {name: "timestamp"}, {name: "timestamptz"}, {name: "interval"},
	{name: "timetz"}, {name: "bit"}, {name: "varbit"}, {name: "numeric"}, {name: "uuid"},
	{name: "jsonb"}, {name: "inet"}, {name: "cidr"}, {name: "macaddr"}, {name: "record"},
}

// WithBuiltins adds the standard PostgreSQL scalar types and their array types
// with their well known oids. It lets a Registry be used without a catalog scan.
func (b *Builder) WithBuiltins() *Builder {
	m := pgtype.NewMap()
	for _, bt := range builtinTypes {
		ti := TypeInfo{Name: bt.name, Category: CategoryStandard}
		if t, ok := m.TypeForName(bt.name); ok {
			ti.OID = t.OID
		}
		b.AddType(ti)

		arrayName := arrayTypeName(bt.name)
		ati := TypeInfo{Name: arrayName, Category: CategoryArray, Elem: bt.name}
		if t, ok := m.TypeForName(arrayName); ok {
			ati.OID = t.OID
		}
		b.AddType(ati)
	}
	return b
}

// AddType adds or replaces a type.
func (b *Builder) AddType(ti TypeInfo) *Builder {
	ti.Name = CanonicalTypeName(ti.Name)
	if ti.Elem != "" {
		ti.Elem = CanonicalTypeName(ti.Elem)
	}
	b.types[ti.Name] = ti
	return b
}

// AddEnum adds an enum type. A nil naming uses SnakePascal.
func (b *Builder) AddEnum(name string, naming NamingConvention, labels ...string) *Builder {
	return b.AddType(TypeInfo{Name: name, Category: CategoryEnum, Naming: naming, Labels: labels})
}

// AddComposite adds a composite type with attributes in physical order.
func (b *Builder) AddComposite(name string, attributes ...Attribute) *Builder {
	for i := range attributes {
		attributes[i].Type = CanonicalTypeName(attributes[i].Type)
	}
	return b.AddType(TypeInfo{Name: name, Category: CategoryComposite, Attributes: attributes})
}

// SetNaming replaces the naming convention of an enum already added.
func (b *Builder) SetNaming(enumName string, naming NamingConvention) *Builder {
	name := CanonicalTypeName(enumName)
	if ti, ok := b.types[name]; ok && ti.Category == CategoryEnum {
		ti.Naming = naming
		b.types[name] = ti
	}
	return b
}

// Register binds codecs to their types.
func (b *Builder) Register(codecs ...Codec) *Builder {
	b.codecs = append(b.codecs, codecs...)
	return b
}

// RequireCodecs makes Build fail when an enum or composite type has no codec.
func (b *Builder) RequireCodecs() *Builder {
	b.requireCodecs = true
	return b
}

// Build validates the accumulated types and codecs and returns an immutable
// Registry. Every non-array type gets an array alias if the catalog did not
// provide one.
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{
		types:      make(map[string]*TypeInfo, len(b.types)*2),
		byOID:      make(map[uint32]*TypeInfo, len(b.types)*2),
		hostTypes:  make(map[reflect.Type]string, len(b.codecs)),
		enums:      make(map[string]*EnumCodec),
		composites: make(map[string]*CompositeCodec),
		enumLabels: make(map[string]map[string]string),
	}

	for name, ti := range b.types {
		ti := ti
		if err := validateTypeInfo(&ti); err != nil {
			return nil, err
		}
		r.types[name] = &ti

		if ti.Category == CategoryEnum && len(ti.Labels) > 0 {
			labels := make(map[string]string, len(ti.Labels))
			for _, label := range ti.Labels {
				// The first label wins when two labels share an identifier.
				ident := ti.Naming.Identifier(label)
				if _, ok := labels[ident]; !ok {
					labels[ident] = label
				}
			}
			r.enumLabels[name] = labels
		}
	}

	for name, ti := range r.types {
		if ti.Category == CategoryArray {
			continue
		}
		arrayName := arrayTypeName(name)
		if _, ok := r.types[arrayName]; !ok {
			r.types[arrayName] = &TypeInfo{Name: arrayName, Category: CategoryArray, Elem: name}
		}
	}

	for _, ti := range r.types {
		if ti.OID == 0 {
			continue
		}
		if other, ok := r.byOID[ti.OID]; ok {
			return nil, fmt.Errorf("types %s and %s have the same oid %d", other.Name, ti.Name, ti.OID)
		}
		r.byOID[ti.OID] = ti
	}

	for _, codec := range b.codecs {
		name := CanonicalTypeName(codec.TypeName())
		ti, ok := r.types[name]
		if !ok {
			return nil, fmt.Errorf("codec for %s: %w", name, &UnknownTypeError{TypeName: name})
		}
		if ti.Category != codec.category() {
			return nil, fmt.Errorf("codec for %s is a %s codec but the type is %s", name, codec.category(), ti.Category)
		}
		if other, ok := r.hostTypes[codec.HostType()]; ok {
			return nil, fmt.Errorf("Go type %s is bound to both %s and %s", codec.HostType(), other, name)
		}
		if _, ok := r.enums[name]; ok {
			return nil, fmt.Errorf("type %s has more than one codec", name)
		}
		if _, ok := r.composites[name]; ok {
			return nil, fmt.Errorf("type %s has more than one codec", name)
		}

		r.hostTypes[codec.HostType()] = name
		switch c := codec.(type) {
		case *EnumCodec:
			r.enums[name] = c
		case *CompositeCodec:
			r.composites[name] = c
		}
	}

	if b.requireCodecs {
		var missing []string
		for name, ti := range r.types {
			_, isEnum := r.enums[name]
			_, isComposite := r.composites[name]
			if (ti.Category == CategoryEnum && !isEnum) || (ti.Category == CategoryComposite && !isComposite) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return nil, fmt.Errorf("no codec registered for %s", strings.Join(missing, ", "))
		}
	}

	return r, nil
}

func validateTypeInfo(ti *TypeInfo) error {
	if ti.Name == "" {
		return fmt.Errorf("type without name")
	}

	switch ti.Category {
	case CategoryStandard:
	case CategoryArray:
		if ti.Elem == "" {
			return fmt.Errorf("array type %s has no element type", ti.Name)
		}
	case CategoryComposite:
		if len(ti.Attributes) == 0 {
			return fmt.Errorf("composite type %s has no attributes", ti.Name)
		}
		ti.Attributes = append([]Attribute(nil), ti.Attributes...)
	case CategoryEnum:
		if ti.Naming == nil {
			ti.Naming = SnakePascal
		}
		ti.Labels = append([]string(nil), ti.Labels...)
	default:
		return fmt.Errorf("type %s: %v", ti.Name, ti.Category)
	}

	return nil
}
