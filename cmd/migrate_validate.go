// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/dryrun"
	"github.com/fraiseql/confiture-sub001/pkg/migrate"
)

// migrateValidateCmd runs the Dry-Run Analyzer over every pending unit's up
// payload, exiting non-zero if any statement classifies UNSAFE. It reads the
// tracking store to find the pending units but executes none of their SQL.
func migrateValidateCmd() *cobra.Command {
	var allowUnsafe bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Classify pending migration statements by safety",
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

			var applied []string
			if err := withTx(cmd.Context(), conn, func(tx *sql.Tx) error {
				ok, err := store.Exists(cmd.Context(), tx)
				if err != nil || !ok {
					return err
				}
				applied, err = store.AppliedVersions(cmd.Context(), tx)
				return err
			}); err != nil {
				return err
			}

			pending, err := migrate.ResolvePending(units, applied, "")
			if err != nil {
				return err
			}

			anyUnsafe := false
			for _, u := range pending {
				report := dryrun.Analyze(u.Up)
				for _, st := range report.Statements {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s [%s] %s\n", u.Version, u.Name, st.Classification, st.Risk, st.Reason)
				}
				if report.HasUnsafe() {
					anyUnsafe = true
				}
			}

			if anyUnsafe && !allowUnsafe {
				return fmt.Errorf("migrate validate: at least one pending unit contains an UNSAFE statement")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowUnsafe, "allow-unsafe", false, "Exit zero even if an UNSAFE statement was found")

	return cmd
}
