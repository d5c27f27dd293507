package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fraiseql/confiture-sub001/pkg/catalog"
	"github.com/fraiseql/confiture-sub001/pkg/compare"
	"github.com/fraiseql/confiture-sub001/pkg/ddl"
	"github.com/fraiseql/confiture-sub001/pkg/errcat"
	"github.com/fraiseql/confiture-sub001/pkg/facts"
	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
	"github.com/fraiseql/confiture-sub001/pkg/tracking"
)

// RebuildOptions configures the destructive rebuild strategy: the chosen
// schemas are dropped and recreated from declared DDL rather than replayed
// incrementally, which is only safe when every historical migration's end
// state is fully captured by declaredDDL.
type RebuildOptions struct {
	// Schemas lists every schema to DROP ... CASCADE and recreate. The
	// caller must have already confirmed this destructive action with the
	// operator; the engine never prompts.
	Schemas []string
	// DeclaredDDL is the concatenated schema definition to execute against
	// the freshly recreated schemas (typically from the Schema Builder's
	// output).
	DeclaredDDL string
	// Reseed, if true, re-applies seed data after the DDL executes. The
	// engine itself does not load seeds (that's the Seed Engine's job);
	// callers pass a ReseedFn to hook the two together.
	Reseed   bool
	ReseedFn func(ctx context.Context, tx *sql.Tx) error
	// PreserveHistory, if true, re-inserts the tracking rows that existed
	// before the rebuild with their original applied_at timestamps
	// (a "backup" restore); if false, every discovered unit is marked
	// applied at the rebuild's own timestamp.
	PreserveHistory bool
	// Verify, if true, re-introspects the rebuilt schemas after the
	// declared DDL commits and confirms the live structural facts exactly
	// match what was declared (via the Schema Comparator) before the
	// caller treats the rebuild as trustworthy. Verification failure does
	// not roll back the already-committed rebuild; it's reported in the
	// result for the caller to act on.
	Verify bool
	// BackupTracking, if true, copies the tracking table's current rows to
	// a timestamped backup table before anything is dropped, independent
	// of PreserveHistory's in-place timestamp carry-forward. BackupSuffix
	// must be set (a caller typically derives it from the rebuild's own
	// timestamp) when this is true.
	BackupTracking bool
	BackupSuffix   string
}

// RebuildResult reports what a rebuild did.
type RebuildResult struct {
	SchemasDropped     []string
	UnitsMarked        int
	Reseeded           bool
	StatementsExecuted int
	// Verified is only meaningful when RebuildOptions.Verify was set: true
	// means the post-rebuild introspection found no structural drift from
	// DeclaredDDL.
	Verified bool
	// Drift lists the structural changes found between the live,
	// rebuilt schema and DeclaredDDL, set only when Verify was requested
	// and found a mismatch.
	Drift []string
	// BackupTable is the qualified name of the tracking backup table, set
	// only when BackupTracking was requested and a pre-existing tracking
	// table was found to back up.
	BackupTable string
}

// Rebuild executes the Rebuild Protocol: drop the named schemas CASCADE,
// recreate them, execute the declared DDL, optionally reseed, then mark
// tracking history in bulk rather than replaying every unit's own DDL.
// Schema identifiers are always quoted via pq.QuoteIdentifier, never
// concatenated raw.
func (e *Engine) Rebuild(ctx context.Context, opts RebuildOptions, units []Unit, existing []tracking.AppliedRecord) (RebuildResult, error) {
	if len(opts.Schemas) == 0 {
		return RebuildResult{}, &errcat.RebuildError{Message: "rebuild requires at least one schema to target"}
	}

	if opts.BackupTracking && opts.BackupSuffix == "" {
		return RebuildResult{}, &errcat.RebuildError{Message: "BackupTracking requires a BackupSuffix"}
	}

	var result RebuildResult
	err := e.DB.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if opts.BackupTracking {
			exists, err := e.Store.Exists(ctx, tx)
			if err != nil {
				return err
			}
			if exists {
				backupTable, err := e.Store.Backup(ctx, tx, opts.BackupSuffix)
				if err != nil {
					return err
				}
				result.BackupTable = backupTable
			}
		}

		for _, schema := range opts.Schemas {
			stmt := "DROP SCHEMA IF EXISTS " + pq.QuoteIdentifier(schema) + " CASCADE"
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &errcat.SQLError{Statement: stmt, Err: err}
			}
			stmt = "CREATE SCHEMA " + pq.QuoteIdentifier(schema)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &errcat.SQLError{Statement: stmt, Err: err}
			}
			result.SchemasDropped = append(result.SchemasDropped, schema)
		}

		for _, stmt := range sqlscan.SplitStatements(opts.DeclaredDDL) {
			text := stmt.Text
			if trimmedEmpty(text) {
				continue
			}
			if _, err := tx.ExecContext(ctx, text); err != nil {
				return &errcat.SQLError{Statement: text, Err: err}
			}
			result.StatementsExecuted++
		}

		if opts.Reseed && opts.ReseedFn != nil {
			if err := opts.ReseedFn(ctx, tx); err != nil {
				return err
			}
			result.Reseeded = true
		}

		if err := e.Store.Initialize(ctx, tx); err != nil {
			return err
		}
		if err := e.Store.Truncate(ctx, tx); err != nil {
			return err
		}

		if opts.PreserveHistory {
			byVersion := make(map[string]tracking.AppliedRecord, len(existing))
			for _, r := range existing {
				byVersion[r.Version] = r
			}
			now := time.Now()
			for _, u := range units {
				r, ok := byVersion[u.Version]
				appliedAt := now
				if ok {
					appliedAt = r.AppliedAt
				}
				if err := e.Store.RecordAppliedAt(ctx, tx, u.Version, u.Name, u.ContentHash(), appliedAt); err != nil {
					return err
				}
				result.UnitsMarked++
			}
			return nil
		}

		for _, u := range units {
			if err := e.Store.RecordApplied(ctx, tx, u.Version, u.Name, u.ContentHash()); err != nil {
				return err
			}
			result.UnitsMarked++
		}
		return nil
	})
	if err != nil {
		return RebuildResult{}, err
	}

	if opts.Verify {
		verified, drift, verr := e.verifyRebuild(ctx, opts)
		if verr != nil {
			return result, verr
		}
		result.Verified = verified
		result.Drift = drift
	}

	return result, nil
}

// verifyRebuild re-introspects the schemas just rebuilt and compares the
// live structural facts against DeclaredDDL via the Schema Comparator, the
// same primitive `migrate diff` uses against a running database. It runs
// against the already-committed rebuild (catalog introspection needs a
// *sql.DB, not the now-closed transaction), so a failed verification can
// only report drift, not undo the rebuild.
func (e *Engine) verifyRebuild(ctx context.Context, opts RebuildOptions) (bool, []string, error) {
	declared := ddl.Parse(opts.DeclaredDDL)

	in := catalog.New(e.DB.Raw())
	var live facts.StructuralFacts
	for _, schema := range opts.Schemas {
		result, err := in.Introspect(ctx, schema, "")
		if err != nil {
			return false, nil, fmt.Errorf("verifying rebuild: %w", err)
		}
		live.Tables = append(live.Tables, result.Facts.Tables...)
		live.ForeignKeys = append(live.ForeignKeys, result.Facts.ForeignKeys...)
	}

	changes := compare.Diff(live, declared.Facts)
	if len(changes) == 0 {
		return true, nil, nil
	}
	drift := make([]string, len(changes))
	for i, c := range changes {
		drift[i] = c.String()
	}
	return false, drift, nil
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != ';' {
			return false
		}
	}
	return true
}
