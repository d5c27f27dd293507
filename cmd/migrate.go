// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

// migrateCmd groups the Migration Engine's CLI surface.
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Discover, apply, roll back and inspect migration units",
	}

	cmd.AddCommand(migrateStatusCmd())
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateDownCmd())
	cmd.AddCommand(migrateRebuildCmd())
	cmd.AddCommand(migrateReinitCmd())
	cmd.AddCommand(migrateDiffCmd())
	cmd.AddCommand(migrateValidateCmd())

	return cmd
}
