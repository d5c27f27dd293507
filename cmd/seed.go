// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/seed"
)

// seedCmd groups the Seed Engine's CLI surface.
func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load, convert and validate seed data",
	}

	cmd.AddCommand(seedApplyCmd())
	cmd.AddCommand(seedConvertCmd())
	cmd.AddCommand(seedBenchmarkCmd())
	cmd.AddCommand(seedValidateCmd())

	return cmd
}

// discoverSeedFiles lists the *.sql files under dir in the same lexical
// order seed.Engine.Discover uses, for commands (convert, validate) that
// want the file list without driving a database apply.
func discoverSeedFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// buildSeedData parses every eligible INSERT in files into the Data shape
// the Seed Validator consumes. Statements the Copy Converter would also
// reject as ineligible (function calls, subqueries, casts, ...) are skipped
// here too: validation targets the literal seed data the engine would
// actually load, not SQL it can't interpret without executing it.
func buildSeedData(files []string) (seed.Data, error) {
	data := seed.Data{}
	for _, path := range files {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, ins := range seed.ParseInserts(string(text)) {
			if !ins.Eligible {
				continue
			}
			td := data[ins.Table]
			for _, row := range ins.Rows {
				r := make(seed.Row, len(ins.Columns))
				for i, col := range ins.Columns {
					if i < len(row) {
						r[col] = row[i]
					}
				}
				td.Rows = append(td.Rows, r)
			}
			data[ins.Table] = td
		}
	}
	return data, nil
}
