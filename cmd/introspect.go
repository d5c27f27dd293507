// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/catalog"
)

// introspectCmd implements the Catalog Introspector's CLI surface: read the
// live database's pg_catalog and print the resulting structural facts and
// hints as JSON.
func introspectCmd() *cobra.Command {
	var schema, prefix string

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Read structural facts from the live database's system catalog",
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

			ctx := cmd.Context()
			in := catalog.New(conn.Raw())
			result, err := in.Introspect(ctx, schema, prefix)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "public", "PostgreSQL schema to introspect")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only tables whose name begins with this prefix")

	return cmd
}
