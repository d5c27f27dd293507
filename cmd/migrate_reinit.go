// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/migrate"
)

// migrateReinitCmd adopts an already-provisioned database into tracking by
// truncating and re-marking units as applied, without executing any SQL.
func migrateReinitCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "reinit",
		Short: "Re-mark discovered units as applied without executing their SQL",
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
			raw := conn.Raw()
			tx, err := raw.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			if err := store.Initialize(ctx, tx); err != nil {
				_ = tx.Rollback()
				return err
			}
			engine := migrate.NewEngine(conn, store, nil, nil)
			if err := engine.Reinit(ctx, tx, units, target); err != nil {
				_ = tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "tracking reinitialized")
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Stop marking after this version (inclusive); empty means every discovered unit")

	return cmd
}
