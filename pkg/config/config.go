// Package config holds the plain settings record the core receives from
// upstream: parsing itself is out of scope for the core, the CLI layer in
// cmd/ uses viper to populate this struct.
package config

// SeparatorStyle names a way of separating concatenated files in the
// generated schema text. snapshot.BuildSchema does not read it: it always
// joins files with a single newline, whatever style is configured.
type SeparatorStyle string

const (
	SeparatorBlockComment SeparatorStyle = "block_comment"
	SeparatorLineComment  SeparatorStyle = "line_comment"
	SeparatorMySQL        SeparatorStyle = "mysql"
)

// LintConfig configures the build-time DDL lint pass.
type LintConfig struct {
	FailOnWarning bool
	Rules         []string
}

// ValidateCommentsConfig configures the per-file and post-concatenation
// comment validator, which catches an unclosed block comment in one file
// spilling into the next file's DDL once concatenated.
type ValidateCommentsConfig struct {
	Enabled          bool
	FailOnSpillover  bool
}

// BuildConfig groups build-time settings.
type BuildConfig struct {
	Lint             LintConfig
	ValidateComments ValidateCommentsConfig
	Separators       struct {
		Style SeparatorStyle
	}
}

// MigrationConfig groups migration-engine settings.
type MigrationConfig struct {
	TrackingTable     string
	RebuildThreshold  int
	LockTimeoutMS     int
	StatementTimeoutMS int
	RebuildSchemas    []string
}

// Settings is the structured configuration the core consumes, matching
// its "at minimum" list plus the fields the ambient stack needs.
type Settings struct {
	DatabaseURL string
	IncludeDirs []string
	ExcludeDirs []string

	MigrationsDir    string
	SchemaDir        string
	SchemaHistoryDir string
	SeedsDir         string

	Migration MigrationConfig
	Build     BuildConfig

	Environment string
}

// Default returns a Settings with the documented defaults.
func Default() Settings {
	return Settings{
		MigrationsDir:    "db/migrations",
		SchemaDir:        "db/schema",
		SchemaHistoryDir: "db/schema_history",
		SeedsDir:         "db/seeds",
		Migration: MigrationConfig{
			TrackingTable:      "public.schema_migrations",
			RebuildThreshold:   1000,
			LockTimeoutMS:      5000,
			StatementTimeoutMS: 0,
			RebuildSchemas:     []string{"public"},
		},
		Build: BuildConfig{
			Lint: LintConfig{FailOnWarning: false},
			ValidateComments: ValidateCommentsConfig{
				Enabled:         true,
				FailOnSpillover: true,
			},
			Separators: struct{ Style SeparatorStyle }{Style: SeparatorBlockComment},
		},
		Environment: "development",
	}
}
