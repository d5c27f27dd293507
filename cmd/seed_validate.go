// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fraiseql/confiture-sub001/pkg/seed"
)

// seedValidateCmd runs the consistency detectors against the configured
// seed directory without touching a database.
func seedValidateCmd() *cobra.Command {
	var schemaContextPath string
	var validateIdentifiers bool
	var stopOnFirst bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check seed data for referential and consistency violations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := settings()
			if err != nil {
				return err
			}

			files, err := discoverSeedFiles(s.SeedsDir)
			if err != nil {
				return err
			}
			data, err := buildSeedData(files)
			if err != nil {
				return err
			}

			var schemaCtx seed.SchemaContext
			if schemaContextPath != "" {
				raw, err := os.ReadFile(schemaContextPath)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(raw, &schemaCtx); err != nil {
					return fmt.Errorf("parsing schema context: %w", err)
				}
			}

			report := seed.Validate(data, schemaCtx, seed.ValidatorOptions{
				StopOnFirstViolation: stopOnFirst,
				ValidateIdentifiers:  validateIdentifiers,
			})

			for _, path := range files {
				text, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				for _, v := range seed.DetectUnionNullTypeMismatch(string(text)) {
					report.Violations = append(report.Violations, v)
				}
			}

			for _, v := range report.Violations {
				loc := v.Table
				if v.Column != "" {
					loc = fmt.Sprintf("%s.%s", v.Table, v.Column)
				}
				if v.RowIndex >= 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s row %d: %s\n", v.Severity, loc, v.RowIndex, v.Message)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", v.Severity, loc, v.Message)
				}
			}

			if report.HasErrors() {
				return fmt.Errorf("seed validation found %d violation(s)", len(report.Violations))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d file(s) checked, no errors\n", len(files))
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaContextPath, "schema-context", "", "YAML file describing required tables, columns and foreign keys")
	cmd.Flags().BoolVar(&validateIdentifiers, "validate-identifiers", false, "Also check identifier-pattern columns")
	cmd.Flags().BoolVar(&stopOnFirst, "stop-on-first", false, "Stop at the first violation found")

	return cmd
}
