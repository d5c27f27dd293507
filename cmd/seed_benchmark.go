// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fraiseql/confiture-sub001/pkg/logger"
	"github.com/fraiseql/confiture-sub001/pkg/metrics"
	"github.com/fraiseql/confiture-sub001/pkg/seed"
)

// seedBenchmarkCmd applies the configured seed directory inside a
// transaction that's always rolled back, recording the load's duration
// against the environment's SLO targets.
func seedBenchmarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "benchmark",
		Short: "Measure seed load time against SLO targets without committing",
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
			defer tx.Rollback()

			registry := metrics.NewRegistry(s.Environment)
			start := time.Now()
			result, err := engine.Apply(ctx, tx, files, seed.EngineOptions{CopyThreshold: s.Migration.RebuildThreshold})
			outcome := metrics.OutcomeSuccess
			if err != nil {
				outcome = metrics.OutcomeFailed
			}
			registry.Record("seed_apply", time.Since(start), outcome, time.Now())

			rows := 0
			for _, f := range result.Files {
				rows += f.Rows
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows in %s, compliance=%.2f%%\n", rows, time.Since(start), registry.Compliance("seed_apply")*100)
			for _, v := range registry.Violations("seed_apply") {
				fmt.Fprintf(cmd.OutOrStdout(), "SLO violation (%s): target %dms, actual %dms\n", v.Severity, v.TargetMs, v.ActualMs)
			}
			return err
		},
	}
}
