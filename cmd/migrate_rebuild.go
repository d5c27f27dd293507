// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/logger"
	"github.com/fraiseql/confiture-sub001/pkg/migrate"
	"github.com/fraiseql/confiture-sub001/pkg/seed"
	"github.com/fraiseql/confiture-sub001/pkg/snapshot"
	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
	"github.com/fraiseql/confiture-sub001/pkg/tracking"
)

// migrateRebuildCmd executes the Rebuild Protocol: drop and recreate the
// configured schemas from declared DDL rather than replaying history, then
// bulk-mark the tracking table. Destructive, so it refuses to run without
// --yes.
func migrateRebuildCmd() *cobra.Command {
	var yes, reseed, preserveHistory, backupTracking, verify, dryRun bool
	var dropSchemas []string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Drop and recreate the configured schemas from declared DDL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings()
			if err != nil {
				return err
			}

			schemas := s.Migration.RebuildSchemas
			if len(dropSchemas) > 0 {
				schemas = dropSchemas
			}

			_, declaredDDL, err := snapshot.BuildSchema(s.SchemaDir)
			if err != nil {
				return err
			}
			units, err := migrate.Discover(s.MigrationsDir)
			if err != nil {
				return err
			}

			if dryRun {
				statements := 0
				for _, stmt := range sqlscan.SplitStatements(declaredDDL) {
					if strings.TrimSpace(stmt.Text) != "" {
						statements++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "would drop and recreate schemas %v, execute %d statements, mark %d units applied (reseed=%v, preserve-history=%v, backup-tracking=%v, verify=%v)\n",
					schemas, statements, len(units), reseed, preserveHistory, backupTracking, verify)
				return nil
			}

			if !yes {
				return fmt.Errorf("migrate rebuild: refusing to drop schemas %v without --yes", schemas)
			}

			store, err := trackingStore(s)
			if err != nil {
				return err
			}
			conn, err := openDB(s)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()

			var existing []tracking.AppliedRecord
			if err := withTx(ctx, conn, func(tx *sql.Tx) error {
				ok, err := store.Exists(ctx, tx)
				if err != nil || !ok {
					return err
				}
				existing, err = store.AppliedRecords(ctx, tx)
				return err
			}); err != nil {
				return err
			}

			log := logger.New()
			engine := migrate.NewEngine(conn, store, nil, log)

			opts := migrate.RebuildOptions{
				Schemas:         schemas,
				DeclaredDDL:     declaredDDL,
				Reseed:          reseed,
				PreserveHistory: preserveHistory,
				Verify:          verify,
				BackupTracking:  backupTracking,
			}
			if backupTracking {
				opts.BackupSuffix = strconv.FormatInt(time.Now().Unix(), 10)
			}
			if reseed {
				seedEngine := seed.NewEngine(log)
				files, err := seedEngine.Discover(s.SeedsDir)
				if err != nil {
					return err
				}
				opts.ReseedFn = func(ctx context.Context, tx *sql.Tx) error {
					_, err := seedEngine.Apply(ctx, tx, files, seed.EngineOptions{CopyThreshold: s.Migration.RebuildThreshold})
					return err
				}
			}

			return withLock(ctx, conn, store, s.Migration.LockTimeoutMS, log, func(ctx context.Context) error {
				result, err := engine.Rebuild(ctx, opts, units, existing)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dropped %v, executed %d statements, marked %d units, reseeded=%v\n",
					result.SchemasDropped, result.StatementsExecuted, result.UnitsMarked, result.Reseeded)
				if result.BackupTable != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "tracking table backed up to %s\n", result.BackupTable)
				}
				if verify {
					if result.Verified {
						fmt.Fprintln(cmd.OutOrStdout(), "verified: live schema matches declared DDL")
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "verification found drift from declared DDL:")
						for _, d := range result.Drift {
							fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", d)
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the destructive drop-and-recreate")
	cmd.Flags().BoolVar(&reseed, "reseed", false, "Re-apply seed data after the declared DDL executes")
	cmd.Flags().BoolVar(&preserveHistory, "preserve-history", false, "Preserve original applied_at timestamps from the existing tracking table")
	cmd.Flags().StringSliceVar(&dropSchemas, "drop-schemas", nil, "Schemas to drop and recreate, overriding the configured rebuild schemas")
	cmd.Flags().BoolVar(&backupTracking, "backup-tracking", false, "Copy the tracking table to a timestamped backup before anything is dropped")
	cmd.Flags().BoolVar(&verify, "verify", false, "Re-introspect the rebuilt schemas and compare against declared DDL")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would happen without executing anything")

	return cmd
}
