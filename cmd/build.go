// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/ddl"
	"github.com/fraiseql/confiture-sub001/pkg/snapshot"
	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
)

// buildCmd implements the Schema Builder's CLI surface: concatenate the
// declared DDL directory into one SchemaSnapshot, lint it along the way, and
// optionally commit it to the write-once schema_history directory.
func buildCmd() *cobra.Command {
	var version, name string
	var commit bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Concatenate declared DDL into a schema snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings()
			if err != nil {
				return err
			}

			files, body, err := snapshot.BuildSchema(s.SchemaDir)
			if err != nil {
				return err
			}

			if vc := s.Build.ValidateComments; vc.Enabled {
				checks := append(append([]snapshot.SourceFile(nil), files...), snapshot.SourceFile{RelPath: "(concatenated schema)", Bytes: []byte(body)})
				spillover := false
				for _, f := range checks {
					for _, d := range sqlscan.ValidateComments(string(f.Bytes)) {
						fmt.Fprintf(cmd.ErrOrStderr(), "comments: %s:%d: %s: %s\n", f.RelPath, d.Line, d.Kind, d.Snippet)
						spillover = spillover || d.Kind == sqlscan.Spillover
					}
				}
				if spillover && vc.FailOnSpillover {
					return fmt.Errorf("build: unclosed block comment spills past the end of its file")
				}
			}

			result := ddl.Parse(body)
			for _, d := range result.Diagnostics {
				fmt.Fprintf(cmd.ErrOrStderr(), "lint: %s: %s\n", d.Message, truncateForDisplay(d.Statement))
			}
			if len(result.Diagnostics) > 0 && s.Build.Lint.FailOnWarning {
				return fmt.Errorf("build: %d lint diagnostic(s) and fail-on-warning is set", len(result.Diagnostics))
			}

			snap := snapshot.Snapshot{
				Header: snapshot.Header{
					Environment:   s.Environment,
					Generated:     time.Now(),
					SchemaHash:    snapshot.ContentHash(files),
					FilesIncluded: len(files),
				},
				Body: body,
			}

			if !commit {
				fmt.Fprint(cmd.OutOrStdout(), snap.Render())
				return nil
			}

			if version == "" || name == "" {
				return fmt.Errorf("build --commit requires both --version and --name")
			}
			path, err := snapshot.WriteToHistory(s.SchemaHistoryDir, version, name, snap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Version to file this snapshot under (required with --commit)")
	cmd.Flags().StringVar(&name, "name", "", "Name to file this snapshot under (required with --commit)")
	cmd.Flags().BoolVar(&commit, "commit", false, "Write the snapshot to the schema history directory instead of stdout")

	return cmd
}

func truncateForDisplay(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
