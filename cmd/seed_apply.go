// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/logger"
	"github.com/fraiseql/confiture-sub001/pkg/seed"
)

// seedApplyCmd loads every seed file under the seeds directory, one
// savepoint per file, optionally continuing past a file's failure.
func seedApplyCmd() *cobra.Command {
	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Load seed data files into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings()
			if err != nil {
				return err
			}

			conn, err := openDB(s)
			if err != nil {
				return err
			}
			defer conn.Close()

			log := logger.New()
			engine := seed.NewEngine(log)
			files, err := engine.Discover(s.SeedsDir)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			tx, err := conn.Raw().BeginTx(ctx, nil)
			if err != nil {
				return err
			}

			result, err := engine.Apply(ctx, tx, files, seed.EngineOptions{
				CopyThreshold:   s.Migration.RebuildThreshold,
				ContinueOnError: continueOnError,
			})
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}

			rows := 0
			for _, f := range result.Files {
				rows += f.Rows
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows across %d file(s), %d failed\n", rows, result.Total, result.Failed)
			for _, f := range result.Files {
				if f.Failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s: %v\n", f.Path, f.Err)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep loading remaining files after one fails")

	return cmd
}
