package seed

// ColumnContext describes the constraints the Seed Validator checks a
// single column against.
type ColumnContext struct {
	Required   bool           `yaml:"required"`
	Unique     bool           `yaml:"unique"`
	ForeignKey *ForeignKeyRef `yaml:"foreign_key,omitempty"` // nil if this column isn't an FK
	Pattern    PatternTag     `yaml:"pattern,omitempty"`     // "" if no identifier-pattern check applies
}

// ForeignKeyRef names the (table, column) a column's values must resolve
// against.
type ForeignKeyRef struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// PatternTag selects which domain-specific identifier pattern a column's
// values must match's INVALID_IDENTIFIER_PATTERN kind.
type PatternTag string

const (
	// PatternSeedEnumerated requires
	// {entity:6}{directory:2}-{function:4}-{scenario:4}-0000-{increment:12}.
	PatternSeedEnumerated PatternTag = "seed_enumerated"
	// PatternTestPlaceholder requires every non-dash character identical,
	// e.g. 11111111-1111-1111-1111-111111111111.
	PatternTestPlaceholder PatternTag = "test_placeholder"
)

// TableContext describes the constraints a whole table's seed data is
// checked against.
type TableContext struct {
	Required bool                     `yaml:"required"`
	MinRows  int                      `yaml:"min_rows"`
	Columns  map[string]ColumnContext `yaml:"columns"`
}

// SchemaContext maps table name to its TableContext. Produced upstream;
// consumed read-only by the Seed Validator. Also the shape a
// --schema-context YAML file unmarshals into for the CLI's `seed validate`.
type SchemaContext struct {
	Tables map[string]TableContext `yaml:"tables"`
}
