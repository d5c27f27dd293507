package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraiseql/confiture-sub001/pkg/facts"
)

func str(s string) *string { return &s }

func TestDiffAddTable(t *testing.T) {
	old := facts.StructuralFacts{}
	new_ := facts.StructuralFacts{Tables: []facts.Table{{Name: "users"}}}
	changes := Diff(old, new_)
	require.Len(t, changes, 1)
	assert.Equal(t, AddTable, changes[0].Kind)
}

func TestDiffDropTable(t *testing.T) {
	old := facts.StructuralFacts{Tables: []facts.Table{{Name: "users"}}}
	new_ := facts.StructuralFacts{}
	changes := Diff(old, new_)
	require.Len(t, changes, 1)
	assert.Equal(t, DropTable, changes[0].Kind)
}

func TestDiffRenameTableDetectedBySignature(t *testing.T) {
	col := facts.Column{Name: "id", PostgresType: "integer", IsPrimaryKey: true}
	old := facts.StructuralFacts{Tables: []facts.Table{{Name: "accounts", Columns: []facts.Column{col}}}}
	new_ := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{col}}}}
	changes := Diff(old, new_)
	require.Len(t, changes, 1)
	assert.Equal(t, RenameTable, changes[0].Kind)
	assert.Equal(t, "accounts", changes[0].OldName)
	assert.Equal(t, "users", changes[0].Table)
}

func TestDiffAddColumn(t *testing.T) {
	old := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{{Name: "id", PostgresType: "integer"}}}}}
	new_ := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{
		{Name: "id", PostgresType: "integer"},
		{Name: "email", PostgresType: "text"},
	}}}}
	changes := Diff(old, new_)
	require.Len(t, changes, 1)
	assert.Equal(t, AddColumn, changes[0].Kind)
	assert.Equal(t, "email", changes[0].Column)
}

func TestDiffChangeColumnType(t *testing.T) {
	old := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{{Name: "id", PostgresType: "integer"}}}}}
	new_ := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{{Name: "id", PostgresType: "bigint"}}}}}
	changes := Diff(old, new_)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeColumnType, changes[0].Kind)
}

func TestDiffChangeColumnDefault(t *testing.T) {
	old := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{{Name: "active", PostgresType: "boolean", DefaultExpr: str("true")}}}}}
	new_ := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{{Name: "active", PostgresType: "boolean", DefaultExpr: str("false")}}}}}
	changes := Diff(old, new_)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeColumnDefault, changes[0].Kind)
}

func TestDiffNoChanges(t *testing.T) {
	f := facts.StructuralFacts{Tables: []facts.Table{{Name: "users", Columns: []facts.Column{{Name: "id", PostgresType: "integer"}}}}}
	changes := Diff(f, f)
	assert.Empty(t, changes)
}
