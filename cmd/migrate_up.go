// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/dryrun"
	"github.com/fraiseql/confiture-sub001/pkg/logger"
	"github.com/fraiseql/confiture-sub001/pkg/migrate"
)

// migrateUpCmd applies pending units in order, under the cluster-wide
// advisory lock for the whole run.
func migrateUpCmd() *cobra.Command {
	var target string
	var dryRun bool
	var allowUnsafe bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migration units",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings()
			if err != nil {
				return err
			}
			units, err := migrate.Discover(s.MigrationsDir)
			if err != nil {
				return err
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

			var applied []string
			err = withTx(ctx, conn, func(tx *sql.Tx) error {
				ok, err := store.Exists(ctx, tx)
				if err != nil || !ok {
					return err
				}
				applied, err = store.AppliedVersions(ctx, tx)
				return err
			})
			if err != nil {
				return err
			}

			pending, err := migrate.ResolvePending(units, applied, target)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
				return nil
			}

			if dryRun {
				for _, u := range pending {
					report := dryrun.Analyze(u.Up)
					for _, st := range report.Statements {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s [%s] %s\n", u.Version, u.Name, st.Classification, st.Risk, st.Reason)
					}
				}
				return nil
			}

			for _, u := range pending {
				report := dryrun.Analyze(u.Up)
				if report.HasUnsafe() && !allowUnsafe {
					return fmt.Errorf("migrate up: unit %s_%s contains an UNSAFE statement; pass --allow-unsafe to proceed anyway", u.Version, u.Name)
				}
			}

			hooksReg, err := loadHooks()
			if err != nil {
				return err
			}
			log := logger.New()

			if err := conn.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
				return store.Initialize(ctx, tx)
			}); err != nil {
				return err
			}

			engine := migrate.NewEngine(conn, store, hooksReg, log)
			engine.RebuildSchemas = s.Migration.RebuildSchemas

			return withLock(ctx, conn, store, s.Migration.LockTimeoutMS, log, func(ctx context.Context) error {
				results, err := engine.Up(ctx, pending)
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s_%s\n", r.Version, r.Name)
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Stop after applying this version (inclusive)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify pending statements without applying anything")
	cmd.Flags().BoolVar(&allowUnsafe, "allow-unsafe", false, "Apply even if the dry-run analyzer flags an UNSAFE statement")

	return cmd
}
