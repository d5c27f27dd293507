// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/catalog"
	"github.com/fraiseql/confiture-sub001/pkg/compare"
	"github.com/fraiseql/confiture-sub001/pkg/ddl"
	"github.com/fraiseql/confiture-sub001/pkg/snapshot"
)

// migrateDiffCmd compares the live database against the declared schema
// directory and prints the structural changes needed to reconcile them.
func migrateDiffCmd() *cobra.Command {
	var schemaName string

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the live database against declared DDL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings()
			if err != nil {
				return err
			}

			_, declaredText, err := snapshot.BuildSchema(s.SchemaDir)
			if err != nil {
				return err
			}
			declared := ddl.Parse(declaredText)
			for _, d := range declared.Diagnostics {
				fmt.Fprintf(cmd.ErrOrStderr(), "parse warning: %s: %s\n", d.Message, truncateForDisplay(d.Statement))
			}

			conn, err := openDB(s)
			if err != nil {
				return err
			}
			defer conn.Close()

			in := catalog.New(conn.Raw())
			live, err := in.Introspect(cmd.Context(), schemaName, "")
			if err != nil {
				return err
			}

			changes := compare.Diff(live.Facts, declared.Facts)
			if len(changes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no structural differences")
				return nil
			}
			for _, c := range changes {
				fmt.Fprintln(cmd.OutOrStdout(), c.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaName, "schema", "public", "PostgreSQL schema to compare against")

	return cmd
}
