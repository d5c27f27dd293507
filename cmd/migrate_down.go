// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/logger"
	"github.com/fraiseql/confiture-sub001/pkg/migrate"
)

// migrateDownCmd rolls back the last N applied units, in LIFO order, under
// the cluster-wide advisory lock.
func migrateDownCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recently applied migration units",
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
			if err := withTx(ctx, conn, func(tx *sql.Tx) error {
				applied, err = store.AppliedVersions(ctx, tx)
				return err
			}); err != nil {
				return err
			}

			toRollback, err := migrate.ResolveRollbackSteps(units, applied, steps)
			if err != nil {
				return err
			}
			if len(toRollback) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}

			hooksReg, err := loadHooks()
			if err != nil {
				return err
			}
			log := logger.New()
			engine := migrate.NewEngine(conn, store, hooksReg, log)

			return withLock(ctx, conn, store, s.Migration.LockTimeoutMS, log, func(ctx context.Context) error {
				results, err := engine.Down(ctx, toRollback)
				for _, r := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s_%s\n", r.Version, r.Name)
				}
				return err
			})
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "Number of applied units to roll back")

	return cmd
}
