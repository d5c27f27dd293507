// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/migrate"
)

// migrateStatusCmd cross-references discovered units against the tracking
// store and prints each unit's applied/pending/orphaned state.
func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied, pending and orphaned migration units",
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

			engine := migrate.NewEngine(conn, store, nil, nil)

			var entries []migrate.StatusEntry
			err = withTx(cmd.Context(), conn, func(tx *sql.Tx) error {
				entries, err = engine.Status(cmd.Context(), tx, units)
				return err
			})
			if err != nil {
				return err
			}

			for _, e := range entries {
				applied := "-"
				if e.AppliedAt != nil {
					applied = e.AppliedAt.Format("2006-01-02T15:04:05Z07:00")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-30s %-10s %s\n", e.Version, e.Name, e.State, applied)
			}
			return nil
		},
	}
}
