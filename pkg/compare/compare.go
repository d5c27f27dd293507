// Package compare implements the Schema Comparator: a
// structural diff between two StructuralFacts sets, with a conservative
// rename-detection heuristic.
package compare

import (
	"fmt"

	"github.com/fraiseql/confiture-sub001/pkg/facts"
)

// ChangeKind enumerates the typed schema changes the comparator emits.
type ChangeKind string

const (
	AddTable            ChangeKind = "ADD_TABLE"
	DropTable           ChangeKind = "DROP_TABLE"
	RenameTable         ChangeKind = "RENAME_TABLE"
	AddColumn           ChangeKind = "ADD_COLUMN"
	DropColumn          ChangeKind = "DROP_COLUMN"
	RenameColumn        ChangeKind = "RENAME_COLUMN"
	ChangeColumnType    ChangeKind = "CHANGE_COLUMN_TYPE"
	ChangeColumnNullable ChangeKind = "CHANGE_COLUMN_NULLABLE"
	ChangeColumnDefault ChangeKind = "CHANGE_COLUMN_DEFAULT"
)

// Change is one structural difference between a declared and a live (or
// any two) StructuralFacts sets.
type Change struct {
	Kind    ChangeKind
	Table   string
	Column  string // set for column-level changes
	OldName string // set for RENAME_TABLE / RENAME_COLUMN
	Detail  string // human-readable summary of the change, e.g. old/new type
}

func (c Change) String() string {
	switch c.Kind {
	case RenameTable:
		return fmt.Sprintf("RENAME_TABLE %s -> %s", c.OldName, c.Table)
	case RenameColumn:
		return fmt.Sprintf("RENAME_COLUMN %s.%s -> %s", c.Table, c.OldName, c.Column)
	case ChangeColumnType, ChangeColumnNullable, ChangeColumnDefault:
		return fmt.Sprintf("%s %s.%s (%s)", c.Kind, c.Table, c.Column, c.Detail)
	default:
		if c.Column != "" {
			return fmt.Sprintf("%s %s.%s", c.Kind, c.Table, c.Column)
		}
		return fmt.Sprintf("%s %s", c.Kind, c.Table)
	}
}

// Diff compares a "before" (old) and "after" (new) StructuralFacts set and
// returns the ordered list of changes needed to go from old to new.
func Diff(old, new_ facts.StructuralFacts) []Change {
	oldTables := indexTables(old)
	newTables := indexTables(new_)

	var dropped, added []string
	for name := range oldTables {
		if _, ok := newTables[name]; !ok {
			dropped = append(dropped, name)
		}
	}
	for name := range newTables {
		if _, ok := oldTables[name]; !ok {
			added = append(added, name)
		}
	}

	var changes []Change
	renamedOld := make(map[string]bool)
	renamedNew := make(map[string]bool)

	// Rename detection: a dropped table and an added table with an
	// identical column signature is conservatively treated as a rename.
	for _, oldName := range dropped {
		for _, newName := range added {
			if renamedNew[newName] {
				continue
			}
			if tablesStructurallyEqual(oldTables[oldName], newTables[newName]) {
				changes = append(changes, Change{Kind: RenameTable, OldName: oldName, Table: newName})
				renamedOld[oldName] = true
				renamedNew[newName] = true
				break
			}
		}
	}

	for _, name := range dropped {
		if !renamedOld[name] {
			changes = append(changes, Change{Kind: DropTable, Table: name})
		}
	}
	for _, name := range added {
		if !renamedNew[name] {
			changes = append(changes, Change{Kind: AddTable, Table: name})
		}
	}

	// Column-level diff for tables present on both sides (and the "new"
	// side of a detected rename, matched back to its old columns).
	for newName, newTable := range newTables {
		oldName := newName
		if _, ok := oldTables[newName]; !ok {
			found := false
			for old := range oldTables {
				if renamedOld[old] {
					// find which new name this old one mapped to
					for _, c := range changes {
						if c.Kind == RenameTable && c.OldName == old && c.Table == newName {
							oldName = old
							found = true
						}
					}
				}
			}
			if !found {
				continue
			}
		}
		oldTable, ok := oldTables[oldName]
		if !ok {
			continue
		}
		changes = append(changes, diffColumns(newName, oldTable, newTable)...)
	}

	return changes
}

func indexTables(f facts.StructuralFacts) map[string]facts.Table {
	m := make(map[string]facts.Table, len(f.Tables))
	for _, t := range f.Tables {
		m[t.Name] = t
	}
	return m
}

func tablesStructurallyEqual(a, b facts.Table) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if !columnsSignatureEqual(a.Columns[i], b.Columns[i]) || a.Columns[i].Name != b.Columns[i].Name {
			return false
		}
	}
	return true
}

func columnsSignatureEqual(a, b facts.Column) bool {
	return a.PostgresType == b.PostgresType &&
		a.Nullable == b.Nullable &&
		defaultEqual(a.DefaultExpr, b.DefaultExpr)
}

func defaultEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// diffColumns compares columns of the same table by position, using the
// RENAME_COLUMN heuristic (same position, same signature, different name)
// before falling back to independent DROP_COLUMN/ADD_COLUMN.
func diffColumns(tableName string, old, new_ facts.Table) []Change {
	oldByName := make(map[string]facts.Column, len(old.Columns))
	for _, c := range old.Columns {
		oldByName[c.Name] = c
	}
	newByName := make(map[string]facts.Column, len(new_.Columns))
	for _, c := range new_.Columns {
		newByName[c.Name] = c
	}

	var changes []Change
	renamedOld := make(map[string]bool)
	renamedNew := make(map[string]bool)

	minLen := len(old.Columns)
	if len(new_.Columns) < minLen {
		minLen = len(new_.Columns)
	}
	for i := 0; i < minLen; i++ {
		oc, nc := old.Columns[i], new_.Columns[i]
		if oc.Name == nc.Name {
			continue
		}
		_, ocStillExists := newByName[oc.Name]
		_, ncExistedBefore := oldByName[nc.Name]
		if !ocStillExists && !ncExistedBefore && columnsSignatureEqual(oc, nc) {
			changes = append(changes, Change{Kind: RenameColumn, Table: tableName, OldName: oc.Name, Column: nc.Name})
			renamedOld[oc.Name] = true
			renamedNew[nc.Name] = true
		}
	}

	for _, oc := range old.Columns {
		if renamedOld[oc.Name] {
			continue
		}
		nc, ok := newByName[oc.Name]
		if !ok {
			changes = append(changes, Change{Kind: DropColumn, Table: tableName, Column: oc.Name})
			continue
		}
		if oc.PostgresType != nc.PostgresType {
			changes = append(changes, Change{
				Kind: ChangeColumnType, Table: tableName, Column: oc.Name,
				Detail: fmt.Sprintf("%s -> %s", oc.PostgresType, nc.PostgresType),
			})
		}
		if oc.Nullable != nc.Nullable {
			changes = append(changes, Change{
				Kind: ChangeColumnNullable, Table: tableName, Column: oc.Name,
				Detail: fmt.Sprintf("%v -> %v", oc.Nullable, nc.Nullable),
			})
		}
		if !defaultEqual(oc.DefaultExpr, nc.DefaultExpr) {
			changes = append(changes, Change{
				Kind: ChangeColumnDefault, Table: tableName, Column: oc.Name,
				Detail: fmt.Sprintf("%s -> %s", derefOrNone(oc.DefaultExpr), derefOrNone(nc.DefaultExpr)),
			})
		}
	}
	for _, nc := range new_.Columns {
		if renamedNew[nc.Name] {
			continue
		}
		if _, ok := oldByName[nc.Name]; !ok {
			changes = append(changes, Change{Kind: AddColumn, Table: tableName, Column: nc.Name})
		}
	}

	return changes
}

func derefOrNone(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}
