// SPDX-License-Identifier: Apache-2.0

// Package flags holds the viper-backed accessors for confiture's global and
// per-command settings: cobra commands bind their flags to viper keys here
// once, and every command body reads settings back through these plain
// accessor functions instead of threading *cobra.Command around.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func ConfigFile() string { return viper.GetString("CONFIG_FILE") }

func DatabaseURL() string { return viper.GetString("DATABASE_URL") }

func MigrationsDir() string { return viper.GetString("MIGRATIONS_DIR") }

func SchemaDir() string { return viper.GetString("SCHEMA_DIR") }

func SchemaHistoryDir() string { return viper.GetString("SCHEMA_HISTORY_DIR") }

func SeedsDir() string { return viper.GetString("SEEDS_DIR") }

func TrackingTable() string { return viper.GetString("TRACKING_TABLE") }

func LockTimeoutMS() int { return viper.GetInt("LOCK_TIMEOUT_MS") }

func RebuildThreshold() int { return viper.GetInt("REBUILD_THRESHOLD") }

func Environment() string { return viper.GetString("ENVIRONMENT") }

func HooksManifest() string { return viper.GetString("HOOKS_MANIFEST") }

// PgConnectionFlags registers the persistent flags every subcommand that
// touches a database or the on-disk project layout needs, and binds each to
// its viper key. Flag defaults mirror config.Default() so a bare invocation
// with no flags, no config file and no CONFITURE_* env vars behaves
// identically to the core's documented defaults.
func PgConnectionFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to a YAML settings file")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	cmd.PersistentFlags().String("migrations-dir", "db/migrations", "Directory of <version>_<name>.up.sql/.down.sql pairs")
	cmd.PersistentFlags().String("schema-dir", "db/schema", "Directory of declared DDL files")
	cmd.PersistentFlags().String("schema-history-dir", "db/schema_history", "Directory of written schema snapshots")
	cmd.PersistentFlags().String("seeds-dir", "db/seeds", "Directory of seed SQL files")
	cmd.PersistentFlags().String("tracking-table", "public.schema_migrations", "Schema-qualified tracking table name")
	cmd.PersistentFlags().Int("lock-timeout-ms", 5000, "Advisory lock acquisition timeout in milliseconds")
	cmd.PersistentFlags().Int("rebuild-threshold", 1000, "Row count above which seed loading prefers COPY over INSERT")
	cmd.PersistentFlags().String("environment", "development", "Environment name, selects SLO targets and snapshot headers")
	cmd.PersistentFlags().String("hooks-manifest", "", "Path to a YAML hook binding manifest")

	viper.BindPFlag("CONFIG_FILE", cmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("DATABASE_URL", cmd.PersistentFlags().Lookup("database-url"))
	viper.BindPFlag("MIGRATIONS_DIR", cmd.PersistentFlags().Lookup("migrations-dir"))
	viper.BindPFlag("SCHEMA_DIR", cmd.PersistentFlags().Lookup("schema-dir"))
	viper.BindPFlag("SCHEMA_HISTORY_DIR", cmd.PersistentFlags().Lookup("schema-history-dir"))
	viper.BindPFlag("SEEDS_DIR", cmd.PersistentFlags().Lookup("seeds-dir"))
	viper.BindPFlag("TRACKING_TABLE", cmd.PersistentFlags().Lookup("tracking-table"))
	viper.BindPFlag("LOCK_TIMEOUT_MS", cmd.PersistentFlags().Lookup("lock-timeout-ms"))
	viper.BindPFlag("REBUILD_THRESHOLD", cmd.PersistentFlags().Lookup("rebuild-threshold"))
	viper.BindPFlag("ENVIRONMENT", cmd.PersistentFlags().Lookup("environment"))
	viper.BindPFlag("HOOKS_MANIFEST", cmd.PersistentFlags().Lookup("hooks-manifest"))
}
