// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fraiseql/confiture-sub001/cmd/flags"
	"github.com/fraiseql/confiture-sub001/pkg/config"
	"github.com/fraiseql/confiture-sub001/pkg/db"
	"github.com/fraiseql/confiture-sub001/pkg/hooks"
	"github.com/fraiseql/confiture-sub001/pkg/lock"
	"github.com/fraiseql/confiture-sub001/pkg/logger"
	"github.com/fraiseql/confiture-sub001/pkg/tracking"
)

// Version is set at build time via -ldflags.
var Version = "development"

func init() {
	viper.SetEnvPrefix("CONFITURE")
	viper.AutomaticEnv()

	flags.PgConnectionFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "confiture",
	Short:        "PostgreSQL schema, migration and seed tooling",
	SilenceUsage: true,
	Version:      Version,
}

// Execute runs the root command.
func Execute() error {
	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(introspectCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(lintCmd())

	return rootCmd.Execute()
}

// settings assembles a config.Settings for this invocation: config.Default()
// as the base, overridden by a YAML file at --config if one was given,
// overridden in turn by the individual flags (which already carry the same
// defaults, so a bare invocation changes nothing).
func settings() (config.Settings, error) {
	s := config.Default()

	if path := flags.ConfigFile(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("reading config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("parsing config file %q: %w", path, err)
		}
	}

	if v := flags.DatabaseURL(); v != "" {
		s.DatabaseURL = v
	}
	s.MigrationsDir = flags.MigrationsDir()
	s.SchemaDir = flags.SchemaDir()
	s.SchemaHistoryDir = flags.SchemaHistoryDir()
	s.SeedsDir = flags.SeedsDir()
	s.Migration.TrackingTable = flags.TrackingTable()
	s.Migration.LockTimeoutMS = flags.LockTimeoutMS()
	s.Migration.RebuildThreshold = flags.RebuildThreshold()
	s.Environment = flags.Environment()

	return s, nil
}

// openDB opens the retrying connection pool the rest of the CLI shares for
// one invocation. Every command is responsible for closing it.
func openDB(s config.Settings) (*db.RDB, error) {
	if s.DatabaseURL == "" {
		return nil, fmt.Errorf("no database URL configured (set --database-url or CONFITURE_DATABASE_URL)")
	}
	return db.Open(s.DatabaseURL)
}

// trackingStore validates and wraps the configured tracking table name.
func trackingStore(s config.Settings) (*tracking.Store, error) {
	return tracking.New(s.Migration.TrackingTable)
}

// loadHooks returns an empty registry, or one populated from
// --hooks-manifest if given. Built-in hooks, if any are registered by the
// embedding program, must be registered before this loads the manifest
// (pkg/hooks has no dynamic plugin loading by design).
func loadHooks() (*hooks.Registry, error) {
	registry := hooks.NewRegistry()
	path := flags.HooksManifest()
	if path == "" {
		return registry, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hooks manifest %q: %w", path, err)
	}
	if err := registry.LoadManifest(data); err != nil {
		return nil, err
	}
	return registry, nil
}

// withLock acquires the cluster-wide advisory lock keyed on store's
// qualified name for the duration of fn, on a connection dedicated to the
// lock (advisory locks are session-scoped), and releases it on every exit
// path.
func withLock(ctx context.Context, conn *db.RDB, store *tracking.Store, timeoutMS int, log logger.Logger, fn func(context.Context) error) error {
	sqlConn, err := conn.Raw().Conn(ctx)
	if err != nil {
		return err
	}
	defer sqlConn.Close()

	key := lock.KeyFor(store.QualifiedName())
	mgr := lock.New(sqlConn, key)
	if err := mgr.Acquire(ctx, time.Duration(timeoutMS)*time.Millisecond); err != nil {
		return err
	}
	log.LogLockAcquire(key)
	defer func() {
		_ = mgr.Release(ctx)
		log.LogLockRelease(key)
	}()

	return fn(ctx)
}

// withTx is a small convenience for read-only work (status, validate, and the
// tracking-store reads of up, down and rebuild) that wants a single
// transaction without the Migration Engine's retry/rollback machinery around
// a mutating operation.
func withTx(ctx context.Context, conn *db.RDB, fn func(*sql.Tx) error) error {
	raw := conn.Raw()
	tx, err := raw.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
