// Package catalog implements the Catalog Introspector:
// it reads the live database's system catalog — pg_catalog, never the
// information_schema view layer — and emits the same StructuralFacts shape
// the DDL Parser produces, so declared and introspected facts compare
// structurally equal when equivalent.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/fraiseql/confiture-sub001/pkg/facts"
)

// TableHint annotates a table with a non-prescriptive observation, e.g.
// "surrogate PK column named pk_*" or "natural ID column named id"
//. The introspector only reports these; it never acts on
// them.
type TableHint struct {
	Table string
	Hint  string
}

// Result is the Catalog Introspector's output.
type Result struct {
	Facts facts.StructuralFacts
	Hints []TableHint
}

// Introspector reads structural facts from a live PostgreSQL connection.
type Introspector struct {
	DB *sql.DB
}

// New wraps an open *sql.DB for introspection.
func New(db *sql.DB) *Introspector {
	return &Introspector{DB: db}
}

// Introspect lists regular tables in the given schema (optionally filtered
// to those whose name begins with namePrefix — pass "" for all tables) and
// returns their structural facts using catalog type formatting
// (format_type) so the rendered type text matches what PostgreSQL itself
// would print, letter for letter, against declared DDL.
func (in *Introspector) Introspect(ctx context.Context, schemaName, namePrefix string) (Result, error) {
	var result Result

	tableNames, err := in.listTables(ctx, schemaName, namePrefix)
	if err != nil {
		return result, fmt.Errorf("listing tables: %w", err)
	}

	for _, name := range tableNames {
		table, hints, err := in.introspectTable(ctx, schemaName, name)
		if err != nil {
			return result, fmt.Errorf("introspecting table %q: %w", name, err)
		}
		result.Facts.Tables = append(result.Facts.Tables, table)
		result.Hints = append(result.Hints, hints...)
	}

	fks, err := in.introspectForeignKeys(ctx, schemaName, tableNames)
	if err != nil {
		return result, fmt.Errorf("introspecting foreign keys: %w", err)
	}
	result.Facts.ForeignKeys = fks

	return result, nil
}

func (in *Introspector) listTables(ctx context.Context, schemaName, namePrefix string) ([]string, error) {
	const q = `
		SELECT c.relname
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p')
		AND n.nspname = $1
		AND ($2 = '' OR c.relname LIKE $2 || '%')
		ORDER BY c.relname
	`
	rows, err := in.DB.QueryContext(ctx, q, schemaName, namePrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// introspectTable reads a single table's columns using pg_attribute +
// format_type, keeping the column shape and verbatim type rendering
// pg_catalog itself returns rather than normalizing types client-side.
func (in *Introspector) introspectTable(ctx context.Context, schemaName, tableName string) (facts.Table, []TableHint, error) {
	const q = `
		SELECT
			attr.attname AS name,
			format_type(attr.atttypid, attr.atttypmod) AS type,
			NOT attr.attnotnull AS nullable,
			pg_get_expr(def.adbin, def.adrelid) AS default_expr,
			EXISTS (
				SELECT 1 FROM pg_catalog.pg_constraint con
				WHERE con.conrelid = attr.attrelid
				AND con.contype = 'p'
				AND attr.attnum = ANY(con.conkey)
			) AS is_pk
		FROM pg_catalog.pg_attribute attr
		JOIN pg_catalog.pg_class c ON c.oid = attr.attrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_catalog.pg_attrdef def
			ON def.adrelid = attr.attrelid AND def.adnum = attr.attnum
		WHERE n.nspname = $1
		AND c.relname = $2
		AND attr.attnum > 0
		AND NOT attr.attisdropped
		ORDER BY attr.attnum
	`
	rows, err := in.DB.QueryContext(ctx, q, schemaName, tableName)
	if err != nil {
		return facts.Table{}, nil, err
	}
	defer rows.Close()

	table := facts.Table{Name: tableName}
	for rows.Next() {
		var col facts.Column
		var defaultExpr sql.NullString
		if err := rows.Scan(&col.Name, &col.PostgresType, &col.Nullable, &defaultExpr, &col.IsPrimaryKey); err != nil {
			return facts.Table{}, nil, err
		}
		if defaultExpr.Valid {
			v := defaultExpr.String
			col.DefaultExpr = &v
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return facts.Table{}, nil, err
	}

	return table, hintsForTable(table), nil
}

// hintsForTable derives non-prescriptive hints: a surrogate PK column
// named pk_*, or a natural ID column named id.
func hintsForTable(t facts.Table) []TableHint {
	var hints []TableHint
	for _, c := range t.Columns {
		if c.IsPrimaryKey && strings.HasPrefix(c.Name, "pk_") {
			hints = append(hints, TableHint{Table: t.Name, Hint: "surrogate PK column named pk_*"})
		}
		if c.Name == "id" && !c.IsPrimaryKey {
			hints = append(hints, TableHint{Table: t.Name, Hint: "natural ID column named id"})
		}
	}
	return hints
}

// introspectForeignKeys resolves composite foreign keys using the ordinal
// pairing of conkey/confkey arrays — information_schema cannot represent
// composite pairings correctly, so this goes straight to pg_constraint.
func (in *Introspector) introspectForeignKeys(ctx context.Context, schemaName string, tableNames []string) ([]facts.FKReference, error) {
	if len(tableNames) == 0 {
		return nil, nil
	}

	const q = `
		SELECT
			fromcl.relname AS from_table,
			array_agg(fromattr.attname ORDER BY ord.ordinality) AS via_columns,
			tocl.relname AS to_table,
			array_agg(toattr.attname ORDER BY ord.ordinality) AS on_columns
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class fromcl ON fromcl.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = fromcl.relnamespace
		JOIN pg_catalog.pg_class tocl ON tocl.oid = con.confrelid
		JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS ord(fromattnum, toattnum, ordinality) ON true
		JOIN pg_catalog.pg_attribute fromattr ON fromattr.attrelid = con.conrelid AND fromattr.attnum = ord.fromattnum
		JOIN pg_catalog.pg_attribute toattr ON toattr.attrelid = con.confrelid AND toattr.attnum = ord.toattnum
		WHERE con.contype = 'f'
		AND n.nspname = $1
		AND fromcl.relname = ANY($2)
		GROUP BY con.oid, fromcl.relname, tocl.relname
		ORDER BY fromcl.relname, tocl.relname
	`
	rows, err := in.DB.QueryContext(ctx, q, schemaName, pq.Array(tableNames))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []facts.FKReference
	for rows.Next() {
		var fk facts.FKReference
		if err := rows.Scan(&fk.FromTable, pq.Array(&fk.ViaColumns), &fk.ToTable, pq.Array(&fk.OnColumns)); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(fks, func(i, j int) bool {
		if fks[i].FromTable != fks[j].FromTable {
			return fks[i].FromTable < fks[j].FromTable
		}
		return fks[i].ToTable < fks[j].ToTable
	})

	return fks, nil
}
