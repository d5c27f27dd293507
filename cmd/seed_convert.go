// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/seed"
)

// seedConvertCmd prints the COPY form a seed file would be rewritten into,
// without touching a database.
func seedConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <file.sql>",
		Short: "Preview the COPY rewrite of a seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			inserts := seed.ParseInserts(string(text))
			result := seed.Convert(inserts)

			for _, block := range result.Blocks {
				fmt.Fprint(cmd.OutOrStdout(), block.Render())
			}
			for _, ins := range result.Unconverted {
				fmt.Fprintf(cmd.OutOrStdout(), "-- not converted (%s): %s\n", ins.IneligibleReason, ins.Raw)
			}
			return nil
		},
	}
}
