package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_MissingRequiredTable(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"accounts": {Required: true},
	}}
	report := Validate(Data{}, ctx, ValidatorOptions{})
	assert.True(t, report.HasErrors())
	assert.Equal(t, MissingRequiredTable, report.Violations[0].Kind)
}

func TestValidate_TableTooSmall(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"accounts": {MinRows: 3},
	}}
	data := Data{"accounts": TableData{Rows: []Row{{"id": strp("1")}}}}
	report := Validate(data, ctx, ValidatorOptions{})
	assert.True(t, report.HasErrors())
	assert.Equal(t, TableTooSmall, report.Violations[0].Kind)
}

func TestValidate_NullInRequiredColumn(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"accounts": {Columns: map[string]ColumnContext{"email": {Required: true}}},
	}}
	data := Data{"accounts": TableData{Rows: []Row{{"email": nil}}}}
	report := Validate(data, ctx, ValidatorOptions{})
	assert.True(t, report.HasErrors())
	assert.Equal(t, NullInRequiredColumn, report.Violations[0].Kind)
}

func TestValidate_DuplicateInUniqueColumn(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"accounts": {Columns: map[string]ColumnContext{"email": {Unique: true}}},
	}}
	data := Data{"accounts": TableData{Rows: []Row{
		{"email": strp("a@example.com")},
		{"email": strp("a@example.com")},
	}}}
	report := Validate(data, ctx, ValidatorOptions{})
	assert.True(t, report.HasErrors())
	assert.Equal(t, DuplicateInUniqueColumn, report.Violations[0].Kind)
}

func TestValidate_FKReferentMissing(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"orders": {Columns: map[string]ColumnContext{
			"account_id": {ForeignKey: &ForeignKeyRef{Table: "accounts", Column: "id"}},
		}},
	}}
	data := Data{
		"accounts": {Rows: []Row{{"id": strp("1")}}},
		"orders":   {Rows: []Row{{"account_id": strp("99")}}},
	}
	report := Validate(data, ctx, ValidatorOptions{})
	assert.True(t, report.HasErrors())
	assert.Equal(t, FKReferentMissing, report.Violations[0].Kind)
}

func TestValidate_FKReferentPresent_NoViolation(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"orders": {Columns: map[string]ColumnContext{
			"account_id": {ForeignKey: &ForeignKeyRef{Table: "accounts", Column: "id"}},
		}},
	}}
	data := Data{
		"accounts": {Rows: []Row{{"id": strp("1")}}},
		"orders":   {Rows: []Row{{"account_id": strp("1")}}},
	}
	report := Validate(data, ctx, ValidatorOptions{})
	assert.False(t, report.HasErrors())
}

func TestValidate_InvalidIdentifierPattern_OnlyWhenEnabled(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"accounts": {Columns: map[string]ColumnContext{
			"id": {Pattern: PatternTestPlaceholder},
		}},
	}}
	data := Data{"accounts": {Rows: []Row{{"id": strp("not-a-placeholder-uuid")}}}}

	reportOff := Validate(data, ctx, ValidatorOptions{})
	assert.Empty(t, reportOff.Violations)

	reportOn := Validate(data, ctx, ValidatorOptions{ValidateIdentifiers: true})
	assert.Len(t, reportOn.Violations, 1)
	assert.Equal(t, InvalidIdentifierPattern, reportOn.Violations[0].Kind)
	assert.Equal(t, SeverityWarning, reportOn.Violations[0].Severity)
}

func TestValidate_StopOnFirstViolation(t *testing.T) {
	ctx := SchemaContext{Tables: map[string]TableContext{
		"a": {Required: true},
		"b": {Required: true},
	}}
	report := Validate(Data{}, ctx, ValidatorOptions{StopOnFirstViolation: true})
	assert.Len(t, report.Violations, 1)
}
