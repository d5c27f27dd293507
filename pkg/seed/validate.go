package seed

import "fmt"

// ViolationKind enumerates the detector kinds, in the
// fixed order the orchestrator runs them.
type ViolationKind string

const (
	MissingRequiredTable   ViolationKind = "MISSING_REQUIRED_TABLE"
	TableTooSmall          ViolationKind = "TABLE_TOO_SMALL"
	NullInRequiredColumn   ViolationKind = "NULL_IN_REQUIRED_COLUMN"
	DuplicateInUniqueColumn ViolationKind = "DUPLICATE_IN_UNIQUE_COLUMN"
	FKReferentMissing      ViolationKind = "FK_REFERENT_MISSING"
	InvalidIdentifierPattern ViolationKind = "INVALID_IDENTIFIER_PATTERN"
	UnionNullTypeMismatch  ViolationKind = "UNION_NULL_TYPE_MISMATCH"
)

// Severity is how serious a violation is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Violation is one detector finding.
type Violation struct {
	Table    string
	Column   string // "" if table-level
	RowIndex int     // -1 if not row-specific
	Kind     ViolationKind
	Severity Severity
	Message  string
}

// Row is one seed row: column name -> value (nil for NULL).
type Row map[string]Value

// TableData is the parsed seed rows for one table.
type TableData struct {
	Rows []Row
}

// Data is the full parsed seed data set: table name -> TableData.
type Data map[string]TableData

// Report is the full Validator output.
type Report struct {
	Violations []Violation
}

// HasErrors reports whether any violation is severity error.
func (r Report) HasErrors() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatorOptions configures the orchestrator.
type ValidatorOptions struct {
	StopOnFirstViolation bool
	ValidateIdentifiers  bool
}

// Validate runs every detector in a fixed order against data and ctx,
// accumulating violations (or stopping at the first
// one if configured to). Validate is a pure function: no I/O, no mutation
// of data or ctx.
func Validate(data Data, ctx SchemaContext, opts ValidatorOptions) Report {
	var report Report
	add := func(v Violation) bool {
		report.Violations = append(report.Violations, v)
		return opts.StopOnFirstViolation
	}

	detectors := []func(Data, SchemaContext, func(Violation) bool) bool{
		detectMissingRequiredTable,
		detectTableTooSmall,
		detectNullInRequiredColumn,
		detectDuplicateInUniqueColumn,
		detectFKReferentMissing,
	}
	if opts.ValidateIdentifiers {
		detectors = append(detectors, detectInvalidIdentifierPattern)
	}

	for _, d := range detectors {
		if d(data, ctx, add) {
			break
		}
	}
	return report
}

func detectMissingRequiredTable(data Data, ctx SchemaContext, add func(Violation) bool) bool {
	for name, tc := range ctx.Tables {
		if !tc.Required {
			continue
		}
		if _, ok := data[name]; !ok {
			if add(Violation{
				Table: name, RowIndex: -1, Kind: MissingRequiredTable, Severity: SeverityError,
				Message: fmt.Sprintf("required table %q is absent from seed data", name),
			}) {
				return true
			}
		}
	}
	return false
}

func detectTableTooSmall(data Data, ctx SchemaContext, add func(Violation) bool) bool {
	for name, tc := range ctx.Tables {
		if tc.MinRows <= 0 {
			continue
		}
		td, ok := data[name]
		count := 0
		if ok {
			count = len(td.Rows)
		}
		if count < tc.MinRows {
			if add(Violation{
				Table: name, RowIndex: -1, Kind: TableTooSmall, Severity: SeverityError,
				Message: fmt.Sprintf("table %q has %d rows, requires at least %d", name, count, tc.MinRows),
			}) {
				return true
			}
		}
	}
	return false
}

func detectNullInRequiredColumn(data Data, ctx SchemaContext, add func(Violation) bool) bool {
	for tableName, tc := range ctx.Tables {
		td, ok := data[tableName]
		if !ok {
			continue
		}
		for colName, cc := range tc.Columns {
			if !cc.Required {
				continue
			}
			for i, row := range td.Rows {
				v, present := row[colName]
				if !present || v == nil {
					if add(Violation{
						Table: tableName, Column: colName, RowIndex: i, Kind: NullInRequiredColumn, Severity: SeverityError,
						Message: fmt.Sprintf("row %d: required column %q.%q is NULL", i, tableName, colName),
					}) {
						return true
					}
				}
			}
		}
	}
	return false
}

func detectDuplicateInUniqueColumn(data Data, ctx SchemaContext, add func(Violation) bool) bool {
	for tableName, tc := range ctx.Tables {
		td, ok := data[tableName]
		if !ok {
			continue
		}
		for colName, cc := range tc.Columns {
			if !cc.Unique {
				continue
			}
			seen := make(map[string]int)
			for i, row := range td.Rows {
				v := row[colName]
				if v == nil {
					continue
				}
				if firstIdx, dup := seen[*v]; dup {
					if add(Violation{
						Table: tableName, Column: colName, RowIndex: i, Kind: DuplicateInUniqueColumn, Severity: SeverityError,
						Message: fmt.Sprintf("row %d: value %q in unique column %q.%q duplicates row %d", i, *v, tableName, colName, firstIdx),
					}) {
						return true
					}
					continue
				}
				seen[*v] = i
			}
		}
	}
	return false
}

func detectFKReferentMissing(data Data, ctx SchemaContext, add func(Violation) bool) bool {
	for tableName, tc := range ctx.Tables {
		td, ok := data[tableName]
		if !ok {
			continue
		}
		for colName, cc := range tc.Columns {
			if cc.ForeignKey == nil {
				continue
			}
			fk := cc.ForeignKey
			referent := referentSet(data, fk.Table, fk.Column)
			for i, row := range td.Rows {
				v := row[colName]
				if v == nil {
					continue
				}
				if !referent[*v] {
					if add(Violation{
						Table: tableName, Column: colName, RowIndex: i, Kind: FKReferentMissing, Severity: SeverityError,
						Message: fmt.Sprintf("row %d: %s=%q in %q.%q has no matching row in %q.%q", i, colName, *v, tableName, colName, fk.Table, fk.Column),
					}) {
						return true
					}
				}
			}
		}
	}
	return false
}

func referentSet(data Data, table, column string) map[string]bool {
	set := make(map[string]bool)
	td, ok := data[table]
	if !ok {
		return set
	}
	for _, row := range td.Rows {
		if v := row[column]; v != nil {
			set[*v] = true
		}
	}
	return set
}

func detectInvalidIdentifierPattern(data Data, ctx SchemaContext, add func(Violation) bool) bool {
	for tableName, tc := range ctx.Tables {
		td, ok := data[tableName]
		if !ok {
			continue
		}
		for colName, cc := range tc.Columns {
			if cc.Pattern == "" {
				continue
			}
			for i, row := range td.Rows {
				v := row[colName]
				if v == nil {
					continue
				}
				if !MatchesPattern(cc.Pattern, *v) {
					if add(Violation{
						Table: tableName, Column: colName, RowIndex: i, Kind: InvalidIdentifierPattern, Severity: SeverityWarning,
						Message: fmt.Sprintf("row %d: %q.%q value %q matches no recognized identifier pattern", i, tableName, colName, *v),
					}) {
						return true
					}
				}
			}
		}
	}
	return false
}
