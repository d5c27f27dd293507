// Package facts defines StructuralFacts, the parser-neutral record shape
// produced by both the DDL Parser and the Catalog Introspector. It is an
// intermediate representation only — ephemeral per invocation, never
// persisted.
package facts

import "sort"

// Column describes one table column's structural shape. PostgresType is
// preserved verbatim (e.g. "character varying(255)") so declared and
// introspected facts compare structurally equal when equivalent.
type Column struct {
	Name           string
	PostgresType   string
	Nullable       bool
	IsPrimaryKey   bool
	DefaultExpr    *string
}

// Table is an ordered list of columns plus its (possibly schema-qualified)
// name.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the table's columns names in source order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name, returning (column, true) if found.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// FKReference is a (possibly composite) foreign key relationship, resolved
// using ordinal pairing of local and referenced column arrays —
// information_schema's shape cannot represent composite pairings
// correctly, so both the DDL Parser and Catalog Introspector produce
// this ordinal form.
type FKReference struct {
	FromTable  string
	ViaColumns []string
	ToTable    string
	OnColumns  []string
}

// StructuralFacts is the output of both the DDL Parser and the Catalog
// Introspector: an ordered list of tables and the foreign keys between
// them.
type StructuralFacts struct {
	Tables       []Table
	ForeignKeys  []FKReference
}

// TableNames returns the discovered table names in the order they were
// added.
func (f StructuralFacts) TableNames() []string {
	names := make([]string, len(f.Tables))
	for i, t := range f.Tables {
		names[i] = t.Name
	}
	return names
}

// Table looks up a table by name.
func (f StructuralFacts) Table(name string) (Table, bool) {
	for _, t := range f.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// SortedByTableName returns a copy of the facts with Tables sorted
// alphabetically by name. Used by the Schema Normalizer, which must
// reorder top-level CREATE TABLE blocks while leaving column order intact
//.
func (f StructuralFacts) SortedByTableName() StructuralFacts {
	out := StructuralFacts{
		Tables:      append([]Table(nil), f.Tables...),
		ForeignKeys: f.ForeignKeys,
	}
	sort.Slice(out.Tables, func(i, j int) bool { return out.Tables[i].Name < out.Tables[j].Name })
	return out
}

// Validate checks the StructuralFacts invariants: unique
// column names per table, each PK column belongs to exactly one PK set (a
// "set" here means: within a table, is_primary_key is consistent with a
// single composite/simple PK — callers build Tables such that this always
// holds, but cross-table FK endpoints must still resolve), and FK endpoint
// columns exist.
func (f StructuralFacts) Validate() error {
	for _, t := range f.Tables {
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if seen[c.Name] {
				return &DuplicateColumnError{Table: t.Name, Column: c.Name}
			}
			seen[c.Name] = true
		}
	}

	for _, fk := range f.ForeignKeys {
		from, ok := f.Table(fk.FromTable)
		if !ok {
			return &DanglingForeignKeyError{Table: fk.FromTable, Reason: "from-table not found"}
		}
		for _, col := range fk.ViaColumns {
			if _, ok := from.Column(col); !ok {
				return &DanglingForeignKeyError{Table: fk.FromTable, Reason: "via-column " + col + " not found"}
			}
		}
		to, ok := f.Table(fk.ToTable)
		if !ok {
			return &DanglingForeignKeyError{Table: fk.ToTable, Reason: "to-table not found"}
		}
		for _, col := range fk.OnColumns {
			if _, ok := to.Column(col); !ok {
				return &DanglingForeignKeyError{Table: fk.ToTable, Reason: "on-column " + col + " not found"}
			}
		}
	}

	return nil
}

// DuplicateColumnError reports a table with two columns of the same name.
type DuplicateColumnError struct {
	Table  string
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return "duplicate column " + e.Column + " in table " + e.Table
}

// DanglingForeignKeyError reports a foreign key whose endpoint doesn't
// resolve against the known tables/columns.
type DanglingForeignKeyError struct {
	Table  string
	Reason string
}

func (e *DanglingForeignKeyError) Error() string {
	return "dangling foreign key on " + e.Table + ": " + e.Reason
}
