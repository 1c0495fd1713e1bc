package catalog

import (
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/pgcodec"
)

type loader struct {
	builder       *pgcodec.Builder
	schemas       []string
	tableRowTypes bool
	codecs        []pgcodec.Codec
	requireCodecs bool
	concurrency   int
	naming        map[string]pgcodec.NamingConvention
	defaultNaming pgcodec.NamingConvention
	logger        tracelog.Logger
	logLevel      tracelog.LogLevel
}

// Option configures Load.
type Option func(*loader)

func newLoader(options []Option) *loader {
	l := &loader{
		schemas:       []string{},
		concurrency:   1,
		naming:        make(map[string]pgcodec.NamingConvention),
		defaultNaming: pgcodec.SnakePascal,
		logLevel:      tracelog.LogLevelInfo,
	}
	for _, o := range options {
		o(l)
	}
	if l.builder == nil {
		l.builder = pgcodec.NewBuilder()
	}
	l.builder.Register(l.codecs...)
	if l.requireCodecs {
		l.builder.RequireCodecs()
	}
	return l
}

// WithSchemas restricts the scan to pg_catalog and the given schemas. By
// default every schema except information_schema and the toast and temporary
// schemas is loaded.
func WithSchemas(schemas ...string) Option {
	return func(l *loader) {
		l.schemas = append(l.schemas, schemas...)
	}
}

// WithTableRowTypes also loads the row types of tables, views and
// materialized views as composite types.
func WithTableRowTypes() Option {
	return func(l *loader) {
		l.tableRowTypes = true
	}
}

// WithConcurrency sets the number of catalog queries run at the same time. The
// default of 1 is required when the Querier is a single *pgx.Conn or pgx.Tx.
func WithConcurrency(n int) Option {
	return func(l *loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithCodecs registers codecs on the resulting Registry.
func WithCodecs(codecs ...pgcodec.Codec) Option {
	return func(l *loader) {
		l.codecs = append(l.codecs, codecs...)
	}
}

// WithRequiredCodecs makes Load fail when an enum or composite type has no
// codec.
func WithRequiredCodecs() Option {
	return func(l *loader) {
		l.requireCodecs = true
	}
}

// WithBuilder loads into b instead of a new Builder.
func WithBuilder(b *pgcodec.Builder) Option {
	return func(l *loader) {
		l.builder = b
	}
}

// WithNaming sets the naming convention of the enum typeName.
func WithNaming(typeName string, naming pgcodec.NamingConvention) Option {
	return func(l *loader) {
		l.naming[pgcodec.CanonicalTypeName(typeName)] = naming
	}
}

// WithDefaultNaming sets the naming convention of enums without their own. The
// default is pgcodec.SnakePascal.
func WithDefaultNaming(naming pgcodec.NamingConvention) Option {
	return func(l *loader) {
		l.defaultNaming = naming
	}
}

// WithLogger logs catalog loading at level or more severe.
func WithLogger(logger tracelog.Logger, level tracelog.LogLevel) Option {
	return func(l *loader) {
		l.logger = logger
		l.logLevel = level
	}
}

func (l *loader) namingFor(typeName string) pgcodec.NamingConvention {
	if nc, ok := l.naming[typeName]; ok {
		return nc
	}
	return l.defaultNaming
}

// includesRelKind reports whether composite types of the pg_class relkind are
// loaded. Free standing composite types have relkind c.
func (l *loader) includesRelKind(relKind string) bool {
	switch relKind {
	case "c":
		return true
	case "r", "v", "m", "p", "f":
		return l.tableRowTypes
	}
	return false
}
