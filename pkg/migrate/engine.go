package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/fraiseql/confiture-sub001/pkg/db"
	"github.com/fraiseql/confiture-sub001/pkg/errcat"
	"github.com/fraiseql/confiture-sub001/pkg/hooks"
	"github.com/fraiseql/confiture-sub001/pkg/logger"
	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
	"github.com/fraiseql/confiture-sub001/pkg/tracking"
)

// Engine drives unit discovery, resolution and execution against a single
// tracking store. It owns no connection of its own: callers pass a db.DB,
// typically already holding the cluster-wide advisory lock for the whole
// invocation.
type Engine struct {
	DB    db.DB
	Store *tracking.Store
	Hooks *hooks.Registry
	Log   logger.Logger

	// RebuildSchemas is the schema set a unit with Strategy == Rebuild
	// drops and recreates before executing its own Up payload as the
	// declared DDL. Unset, a rebuild unit fails rather than silently
	// falling back to an incremental apply.
	RebuildSchemas []string
}

// NewEngine wires an Engine from its collaborators. A nil Hooks registry is
// replaced with an empty one so phase runs are always safe to call.
func NewEngine(conn db.DB, store *tracking.Store, registry *hooks.Registry, log logger.Logger) *Engine {
	if registry == nil {
		registry = hooks.NewRegistry()
	}
	if log == nil {
		log = logger.NewNoop()
	}
	return &Engine{DB: conn, Store: store, Hooks: registry, Log: log}
}

// ApplyResult reports the outcome of a single unit's forward application.
type ApplyResult struct {
	Version string
	Name    string
}

// Up applies every unit in pending, in order, each in its own transaction.
// The first unit that fails aborts the whole run; units already committed
// before the failure remain applied — partial progress is never rolled
// back across unit boundaries, only within one.
func (e *Engine) Up(ctx context.Context, pending []Unit) ([]ApplyResult, error) {
	var results []ApplyResult
	for _, u := range pending {
		e.Log.LogUnitStart(u.Version, u.Name, string(hooks.Forward))
		if err := e.applyOne(ctx, u); err != nil {
			return results, err
		}
		e.Log.LogUnitComplete(u.Version, u.Name, string(hooks.Forward))
		results = append(results, ApplyResult{Version: u.Version, Name: u.Name})
	}
	return results, nil
}

func (e *Engine) applyOne(ctx context.Context, u Unit) error {
	hc := hooks.NewContext(u.Version, u.Name, hooks.Forward)

	ddlRun := e.ddlStep(u.Up)
	if u.Strategy == Rebuild {
		if len(e.RebuildSchemas) == 0 {
			return &errcat.MigrationError{
				Kind:    errcat.KindApply,
				Version: u.Version,
				Unit:    u.Name,
				Phase:   "DDL",
				Err:     &errcat.RebuildError{Message: "unit declares Strategy: rebuild but the engine has no RebuildSchemas configured"},
			}
		}
		ddlRun = e.rebuildDDLStep(u.Up)
	}

	applyErr := e.DB.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		steps := []struct {
			savepoint string
			phase     hooks.Phase
			run       func(context.Context, *sql.Tx) error
		}{
			{"su_before_validation", hooks.BeforeValidation, e.hookStep(hooks.BeforeValidation, hc)},
			{"su_before_ddl", hooks.BeforeDDL, e.hookStep(hooks.BeforeDDL, hc)},
			{"su_ddl", "DDL", ddlRun},
			{"su_after_ddl", hooks.AfterDDL, e.hookStep(hooks.AfterDDL, hc)},
			{"su_after_validation", hooks.AfterValidation, e.hookStep(hooks.AfterValidation, hc)},
			{"su_cleanup", hooks.Cleanup, e.hookStep(hooks.Cleanup, hc)},
		}

		for _, step := range steps {
			if err := runSavepoint(ctx, tx, step.savepoint, step.run); err != nil {
				return &errcat.MigrationError{
					Kind:    errcat.KindApply,
					Version: u.Version,
					Unit:    u.Name,
					Phase:   string(step.phase),
					Err:     err,
				}
			}
		}

		return e.Store.RecordApplied(ctx, tx, u.Version, u.Name, u.ContentHash())
	})

	if applyErr != nil {
		e.runOnError(ctx, hc)
		return applyErr
	}
	return nil
}

// rebuildDDLStep drops and recreates the engine's configured rebuild
// schemas before executing payload as the declared DDL, used for a unit
// whose Strategy is Rebuild instead of the default incremental apply.
func (e *Engine) rebuildDDLStep(payload string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, schema := range e.RebuildSchemas {
			stmt := "DROP SCHEMA IF EXISTS " + pq.QuoteIdentifier(schema) + " CASCADE"
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &errcat.SQLError{Statement: stmt, Err: err}
			}
			stmt = "CREATE SCHEMA " + pq.QuoteIdentifier(schema)
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &errcat.SQLError{Statement: stmt, Err: err}
			}
		}
		return e.ddlStep(payload)(ctx, tx)
	}
}

// runOnError invokes ON_ERROR hooks in a fresh transaction opened after the
// failing unit's own transaction has already rolled back, so a hook that
// records diagnostics doesn't get rolled back along with it. Hook failures
// are logged, never propagated: the unit's real error is already decided.
func (e *Engine) runOnError(ctx context.Context, hc *hooks.Context) {
	if len(e.Hooks.Names(hooks.OnError)) == 0 {
		return
	}
	err := e.DB.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, hookErr := range e.Hooks.RunOnError(ctx, tx, hc) {
			e.Log.Warn("ON_ERROR hook failed", "error", hookErr)
		}
		return nil
	})
	if err != nil {
		e.Log.Warn("ON_ERROR transaction failed", "error", err)
	}
}

// Down rolls back units in the order given (the caller is responsible for
// LIFO ordering via ResolveRollbackSteps), each in its own transaction,
// running the unit's Down payload under the same savepoint discipline.
func (e *Engine) Down(ctx context.Context, units []Unit) ([]ApplyResult, error) {
	var results []ApplyResult
	for _, u := range units {
		e.Log.LogUnitStart(u.Version, u.Name, string(hooks.Backward))
		if err := e.rollbackOne(ctx, u); err != nil {
			return results, err
		}
		e.Log.LogUnitRollback(u.Version, u.Name)
		results = append(results, ApplyResult{Version: u.Version, Name: u.Name})
	}
	return results, nil
}

func (e *Engine) rollbackOne(ctx context.Context, u Unit) error {
	hc := hooks.NewContext(u.Version, u.Name, hooks.Backward)

	rollbackErr := e.DB.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		steps := []struct {
			savepoint string
			phase     hooks.Phase
			run       func(context.Context, *sql.Tx) error
		}{
			{"su_before_validation", hooks.BeforeValidation, e.hookStep(hooks.BeforeValidation, hc)},
			{"su_before_ddl", hooks.BeforeDDL, e.hookStep(hooks.BeforeDDL, hc)},
			{"su_ddl", "DDL", e.ddlStep(u.Down)},
			{"su_after_ddl", hooks.AfterDDL, e.hookStep(hooks.AfterDDL, hc)},
			{"su_after_validation", hooks.AfterValidation, e.hookStep(hooks.AfterValidation, hc)},
			{"su_cleanup", hooks.Cleanup, e.hookStep(hooks.Cleanup, hc)},
		}

		for _, step := range steps {
			if err := runSavepoint(ctx, tx, step.savepoint, step.run); err != nil {
				return &errcat.MigrationError{
					Kind:    errcat.KindRollback,
					Version: u.Version,
					Unit:    u.Name,
					Phase:   string(step.phase),
					Err:     err,
				}
			}
		}

		return e.Store.DeleteApplied(ctx, tx, u.Version)
	})

	if rollbackErr != nil {
		e.runOnError(ctx, hc)
		return rollbackErr
	}
	return nil
}

func (e *Engine) hookStep(phase hooks.Phase, hc *hooks.Context) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, name := range e.Hooks.Names(phase) {
			e.Log.LogHookStart(string(phase), name)
		}
		if err := e.Hooks.Run(ctx, tx, phase, hc); err != nil {
			return err
		}
		for _, name := range e.Hooks.Names(phase) {
			e.Log.LogHookComplete(string(phase), name)
		}
		return nil
	}
}

// ddlStep executes a unit's SQL payload statement by statement, skipping
// with a warning every BEGIN, COMMIT, ROLLBACK, START TRANSACTION or END
// statement wherever it appears: the engine
// already owns transaction boundaries, so an author's
// own BEGIN/COMMIT would either be a silent no-op or break savepoint
// nesting depending on driver behavior.
func (e *Engine) ddlStep(payload string) func(context.Context, *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range sqlscan.SplitStatements(payload) {
			text := strings.TrimSpace(stmt.Text)
			if text == "" {
				continue
			}
			if isTransactionControl(text) {
				e.Log.Warn("ignoring transaction control statement inside migration unit", "statement", text)
				continue
			}
			if _, err := tx.ExecContext(ctx, text); err != nil {
				return &errcat.SQLError{Statement: text, Err: err}
			}
		}
		return nil
	}
}

func isTransactionControl(stmt string) bool {
	upper := strings.ToUpper(strings.TrimSpace(stmt))
	for _, kw := range []string{"BEGIN", "COMMIT", "ROLLBACK", "START TRANSACTION", "END"} {
		if upper == kw || strings.HasPrefix(upper, kw+";") || strings.HasPrefix(upper, kw+" ") {
			return true
		}
	}
	return false
}

// runSavepoint wraps run in its own SAVEPOINT, rolling back to it (but not
// the surrounding transaction) on failure and returning the error. The
// caller then abandons the whole unit transaction; ON_ERROR hooks run
// afterwards in a fresh transaction (see runOnError).
func runSavepoint(ctx context.Context, tx *sql.Tx, name string, run func(context.Context, *sql.Tx) error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return &errcat.SQLError{Statement: "SAVEPOINT " + name, Err: err}
	}

	if err := run(ctx, tx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (and rollback to savepoint %s also failed: %v)", err, name, rbErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return &errcat.SQLError{Statement: "RELEASE SAVEPOINT " + name, Err: err}
	}
	return nil
}

// StatusEntry is one row of a `migrate status` report.
type StatusEntry struct {
	Version   string
	Name      string
	State     string // "applied", "pending", or "orphaned"
	AppliedAt *time.Time
}

// Status cross-joins discovered units against the tracking store's applied
// records: units with no applied record are "pending", applied records
// with no matching discovered unit are "orphaned". If the
// tracking table itself doesn't exist yet, every discovered unit is
// reported pending and the caller is expected to surface a warning.
func (e *Engine) Status(ctx context.Context, tx *sql.Tx, units []Unit) ([]StatusEntry, error) {
	exists, err := e.Store.Exists(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !exists {
		entries := make([]StatusEntry, len(units))
		for i, u := range units {
			entries[i] = StatusEntry{Version: u.Version, Name: u.Name, State: "pending"}
		}
		return entries, nil
	}

	records, err := e.Store.AppliedRecords(ctx, tx)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[string]tracking.AppliedRecord, len(records))
	for _, r := range records {
		byVersion[r.Version] = r
	}

	seen := make(map[string]bool, len(units))
	var entries []StatusEntry
	for _, u := range units {
		seen[u.Version] = true
		if r, ok := byVersion[u.Version]; ok {
			at := r.AppliedAt
			entries = append(entries, StatusEntry{Version: u.Version, Name: u.Name, State: "applied", AppliedAt: &at})
		} else {
			entries = append(entries, StatusEntry{Version: u.Version, Name: u.Name, State: "pending"})
		}
	}
	for _, r := range records {
		if !seen[r.Version] {
			at := r.AppliedAt
			entries = append(entries, StatusEntry{Version: r.Version, Name: r.Name, State: "orphaned", AppliedAt: &at})
		}
	}
	return entries, nil
}

// Reinit truncates the tracking store and re-marks every unit up to (and
// including) target as applied, without executing any SQL — used to adopt
// an already-provisioned database into tracking.
func (e *Engine) Reinit(ctx context.Context, tx *sql.Tx, units []Unit, target string) error {
	if err := e.Store.Truncate(ctx, tx); err != nil {
		return err
	}
	for _, u := range units {
		if err := e.Store.RecordApplied(ctx, tx, u.Version, u.Name, u.ContentHash()); err != nil {
			return err
		}
		if u.Version == target {
			break
		}
	}
	return nil
}
