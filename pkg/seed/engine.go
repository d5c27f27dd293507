package seed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
	"github.com/fraiseql/confiture-sub001/pkg/logger"
)

// EngineOptions configures a Seed Engine run.
type EngineOptions struct {
	// CopyThreshold is the minimum row count (per table, per file) above
	// which eligible INSERTs are rewritten to COPY form.
	CopyThreshold int
	// ContinueOnError keeps loading subsequent files after one file's
	// savepoint rolls back, instead of aborting the whole run.
	ContinueOnError bool
}

// FileResult reports one seed file's outcome.
type FileResult struct {
	Path    string
	Rows    int
	Failed  bool
	Err     error
}

// Result is the Seed Engine's aggregate outcome.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
	Files     []FileResult
}

// Engine drives seed file discovery and load.
type Engine struct {
	Log logger.Logger
}

// NewEngine constructs an Engine; a nil logger is replaced with a no-op.
func NewEngine(log logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Engine{Log: log}
}

// Discover lists seed files under dir in lexical order.
func (e *Engine) Discover(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &errcat.ConfigError{Code: "MIGR_030", Message: "cannot read seeds directory: " + err.Error()}
	}
	sort.Strings(files)
	return files, nil
}

// Apply loads every file in files against conn, each inside its own
// savepoint `sp_<filename>`. The outer transaction's commit/rollback is
// the caller's responsibility (Apply only manages per-file savepoints);
// callers typically run Apply inside db.DB.WithTransaction.
func (e *Engine) Apply(ctx context.Context, tx *sql.Tx, files []string, opts EngineOptions) (Result, error) {
	var result Result
	for _, path := range files {
		rows, err := e.applyOne(ctx, tx, path, opts)
		result.Total++
		if err != nil {
			result.Failed++
			result.Files = append(result.Files, FileResult{Path: path, Failed: true, Err: err})
			if !opts.ContinueOnError {
				return result, err
			}
			continue
		}
		result.Succeeded++
		result.Files = append(result.Files, FileResult{Path: path, Rows: rows})
	}
	return result, nil
}

func (e *Engine) applyOne(ctx context.Context, tx *sql.Tx, path string, opts EngineOptions) (int, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return 0, &errcat.SeedError{File: path, Message: "cannot read file", Err: err}
	}

	savepoint := "sp_" + sanitizeSavepointName(filepath.Base(path))
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return 0, &errcat.SeedError{File: path, Message: "cannot create savepoint", Err: err}
	}

	rows, execErr := e.execFile(ctx, tx, path, string(text), opts)
	if execErr != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return 0, &errcat.SeedError{File: path, Message: "rollback to savepoint also failed", Err: rbErr}
		}
		return 0, execErr
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return 0, &errcat.SeedError{File: path, Message: "cannot release savepoint", Err: err}
	}
	e.Log.LogSeedFileComplete(path, rows)
	return rows, nil
}

func (e *Engine) execFile(ctx context.Context, tx *sql.Tx, path, text string, opts EngineOptions) (int, error) {
	inserts := ParseInserts(text)
	e.Log.LogSeedFileStart(path, countRows(inserts))

	eligibleByTable := make(map[string][]Insert)
	var passthrough []Insert

	threshold := opts.CopyThreshold
	for _, ins := range inserts {
		if ins.Eligible && len(ins.Rows) > 0 {
			eligibleByTable[ins.Table] = append(eligibleByTable[ins.Table], ins)
			continue
		}
		passthrough = append(passthrough, ins)
	}

	rows := 0
	for table, group := range eligibleByTable {
		total := 0
		for _, ins := range group {
			total += len(ins.Rows)
		}
		if threshold > 0 && total >= threshold {
			converted := Convert(group)
			for _, block := range converted.Blocks {
				if err := execCopy(ctx, tx, block); err != nil {
					return rows, &errcat.SeedError{File: path, Message: fmt.Sprintf("COPY into %s failed", table), Err: err}
				}
				rows += len(block.Rows)
			}
			for _, u := range converted.Unconverted {
				if _, err := tx.ExecContext(ctx, u.Raw); err != nil {
					return rows, &errcat.SeedError{File: path, Message: "INSERT failed", Err: err}
				}
				rows += len(u.Rows)
			}
			continue
		}
		for _, ins := range group {
			if _, err := tx.ExecContext(ctx, ins.Raw); err != nil {
				return rows, &errcat.SeedError{File: path, Message: "INSERT failed", Err: err}
			}
			rows += len(ins.Rows)
		}
	}

	for _, ins := range passthrough {
		if _, err := tx.ExecContext(ctx, ins.Raw); err != nil {
			return rows, &errcat.SeedError{File: path, Message: "statement failed", Err: err}
		}
		rows += len(ins.Rows)
	}

	return rows, nil
}

// execCopy streams one COPY block's rows through lib/pq's native COPY
// sub-protocol: a prepared statement built from pq.CopyIn (or
// pq.CopyInSchema for a schema-qualified table), one Exec per row, a
// final bare Exec to flush, then Close. A plain ExecContext of the
// rendered text is not valid here: lib/pq only enters COPY mode when it
// recognizes the query as one built by pq.CopyIn/pq.CopyInSchema.
func execCopy(ctx context.Context, tx *sql.Tx, block CopyBlock) error {
	schema, table := splitSchemaTable(block.Table)
	var copyQuery string
	if schema != "" {
		copyQuery = pq.CopyInSchema(schema, table, block.Columns...)
	} else {
		copyQuery = pq.CopyIn(table, block.Columns...)
	}

	stmt, err := tx.PrepareContext(ctx, copyQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range block.Rows {
		if _, err := stmt.ExecContext(ctx, block.Args(row)...); err != nil {
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}
	return stmt.Close()
}

// splitSchemaTable separates a "schema.table" reference into its two
// parts; a bare table name returns an empty schema.
func splitSchemaTable(name string) (schema, table string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func countRows(inserts []Insert) int {
	n := 0
	for _, ins := range inserts {
		n += len(ins.Rows)
	}
	return n
}

func sanitizeSavepointName(name string) string {
	name = strings.TrimSuffix(name, ".sql")
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
