// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/ddl"
	"github.com/fraiseql/confiture-sub001/pkg/snapshot"
)

// lintCmd runs the declared-DDL linter over the schema directory without
// producing a snapshot, for use as a standalone pre-commit check.
func lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Report DDL parser diagnostics for declared DDL without building a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings()
			if err != nil {
				return err
			}

			_, body, err := snapshot.BuildSchema(s.SchemaDir)
			if err != nil {
				return err
			}

			result := ddl.Parse(body)
			for _, d := range result.Diagnostics {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", d.Message, truncateForDisplay(d.Statement))
			}

			if len(result.Diagnostics) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no diagnostics")
				return nil
			}
			if s.Build.Lint.FailOnWarning {
				return fmt.Errorf("lint: %d diagnostic(s) and fail-on-warning is set", len(result.Diagnostics))
			}
			return nil
		},
	}
}
