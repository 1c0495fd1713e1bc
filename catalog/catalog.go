// Package catalog builds a pgcodec.Registry by scanning the PostgreSQL system
// catalog.
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/pgfluent/pgfluent/pgcodec"
	"golang.org/x/sync/errgroup"
)

// Querier is implemented by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const typesSQL = `select t.oid, n.nspname, t.typname, t.typtype::text, t.typelem, t.typrelid, coalesce(c.relkind::text, ''),
  exists (select 1 from pg_type e where e.typarray = t.oid)
from pg_type t
  join pg_namespace n on n.oid = t.typnamespace
  left join pg_class c on c.oid = t.typrelid
where n.nspname <> 'information_schema'
  and n.nspname not like 'pg\_toast%'
  and n.nspname not like 'pg\_temp\_%'
  and (cardinality($1::text[]) = 0 or n.nspname = 'pg_catalog' or n.nspname = any($1::text[]))
order by t.oid`

const enumsSQL = `select enumtypid, enumlabel
from pg_enum
where enumtypid = any($1::oid[])
order by enumtypid, enumsortorder`

const attributesSQL = `select attrelid, attname, atttypid
from pg_attribute
where attrelid = any($1::oid[])
  and attnum > 0
  and not attisdropped
order by attrelid, attnum`

type typeRow struct {
	OID     uint32
	Schema  string
	Name    string
	TypType string
	Elem    uint32
	RelID   uint32
	RelKind string
	IsArray bool
}

type enumRow struct {
	TypeOID uint32
	Label   string
}

type attributeRow struct {
	RelID   uint32
	Name    string
	TypeOID uint32
}

// Load scans the catalog through q and returns the resulting Registry. Every
// pg_type row in the selected schemas becomes a TypeInfo: enums with their
// labels, free standing composite types with their attributes, arrays with their
// element type and everything else as a standard type.
func Load(ctx context.Context, q Querier, options ...Option) (*pgcodec.Registry, error) {
	b, err := LoadBuilder(ctx, q, options...)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// LoadBuilder is Load without the final Build. It lets the caller add types or
// codecs of its own.
func LoadBuilder(ctx context.Context, q Querier, options ...Option) (*pgcodec.Builder, error) {
	l := newLoader(options)

	version, err := ServerVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	if !minimumVersion.Check(version) {
		return nil, fmt.Errorf("PostgreSQL %s is not supported, %s required", version, minimumVersion)
	}

	rows, err := q.Query(ctx, typesSQL, l.schemas)
	if err != nil {
		return nil, fmt.Errorf("query pg_type: %w", err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowToStructByPos[typeRow])
	if err != nil {
		return nil, fmt.Errorf("query pg_type: %w", err)
	}

	var enumOIDs, relIDs []uint32
	for _, t := range types {
		switch {
		case t.TypType == "e":
			enumOIDs = append(enumOIDs, t.OID)
		case t.TypType == "c" && l.includesRelKind(t.RelKind):
			relIDs = append(relIDs, t.RelID)
		}
	}

	var enums []enumRow
	var attributes []attributeRow

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(l.concurrency)
	eg.Go(func() error {
		rows, err := q.Query(egCtx, enumsSQL, enumOIDs)
		if err != nil {
			return fmt.Errorf("query pg_enum: %w", err)
		}
		enums, err = pgx.CollectRows(rows, pgx.RowToStructByPos[enumRow])
		if err != nil {
			return fmt.Errorf("query pg_enum: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		rows, err := q.Query(egCtx, attributesSQL, relIDs)
		if err != nil {
			return fmt.Errorf("query pg_attribute: %w", err)
		}
		attributes, err = pgx.CollectRows(rows, pgx.RowToStructByPos[attributeRow])
		if err != nil {
			return fmt.Errorf("query pg_attribute: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	b := l.assemble(ctx, types, enums, attributes)
	l.log(ctx, tracelog.LogLevelInfo, "catalog loaded", map[string]any{
		"serverVersion": version.String(),
		"types":         len(types),
		"enums":         len(enumOIDs),
		"composites":    len(relIDs),
	})
	return b, nil
}

// assemble turns catalog rows into a Builder. Types that cannot be described
// are skipped along with their array types: composites without attributes,
// table row types unless requested and composites with an attribute of a type
// outside of the loaded schemas.
func (l *loader) assemble(ctx context.Context, types []typeRow, enums []enumRow, attributes []attributeRow) *pgcodec.Builder {
	names := make(map[uint32]string, len(types))
	for _, t := range types {
		names[t.OID] = qualifiedName(t.Schema, t.Name)
	}

	labels := make(map[uint32][]string)
	for _, e := range enums {
		labels[e.TypeOID] = append(labels[e.TypeOID], e.Label)
	}

	attrs := make(map[uint32][]attributeRow)
	for _, a := range attributes {
		attrs[a.RelID] = append(attrs[a.RelID], a)
	}

	composites := make(map[uint32]pgcodec.TypeInfo)
	skipped := make(map[uint32]bool)
	for _, t := range types {
		if t.TypType != "c" {
			continue
		}
		if !l.includesRelKind(t.RelKind) {
			skipped[t.OID] = true
			continue
		}
		ti, ok := l.composite(names[t.OID], t.OID, attrs[t.RelID], names)
		if !ok {
			l.log(ctx, tracelog.LogLevelWarn, "skipping composite type", map[string]any{"type": names[t.OID]})
			skipped[t.OID] = true
			continue
		}
		composites[t.OID] = ti
	}

	b := l.builder
	for _, t := range types {
		name := names[t.OID]

		switch {
		case t.TypType == "e":
			b.AddType(pgcodec.TypeInfo{Name: name, OID: t.OID, Category: pgcodec.CategoryEnum, Naming: l.namingFor(name), Labels: labels[t.OID]})
		case t.TypType == "c":
			if ti, ok := composites[t.OID]; ok {
				b.AddType(ti)
			}
		case t.IsArray:
			elem, ok := names[t.Elem]
			if !ok || skipped[t.Elem] {
				continue
			}
			b.AddType(pgcodec.TypeInfo{Name: name, OID: t.OID, Category: pgcodec.CategoryArray, Elem: elem})
		default:
			b.AddType(pgcodec.TypeInfo{Name: name, OID: t.OID, Category: pgcodec.CategoryStandard})
		}
	}

	return b
}

func (l *loader) composite(name string, oid uint32, attrs []attributeRow, names map[uint32]string) (pgcodec.TypeInfo, bool) {
	if len(attrs) == 0 {
		return pgcodec.TypeInfo{}, false
	}

	ti := pgcodec.TypeInfo{Name: name, OID: oid, Category: pgcodec.CategoryComposite}
	for _, a := range attrs {
		typeName, ok := names[a.TypeOID]
		if !ok {
			return pgcodec.TypeInfo{}, false
		}
		ti.Attributes = append(ti.Attributes, pgcodec.Attribute{Name: a.Name, Type: typeName})
	}
	return ti, true
}

// qualifiedName returns name, qualified by schema unless schema is pg_catalog or
// public.
func qualifiedName(schema, name string) string {
	if schema == "pg_catalog" || schema == "public" {
		return name
	}
	return schema + "." + name
}

func (l *loader) log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	if l.logger != nil && l.logLevel >= level {
		l.logger.Log(ctx, level, msg, data)
	}
}
