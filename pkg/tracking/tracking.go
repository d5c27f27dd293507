// Package tracking implements the Tracking Store: the applied-migration
// ledger living in the target database. It relies on lib/pq identifier
// quoting and a small hand-rolled SQL surface, modeling the classic
// version+name+applied_at+content_hash row shape instead of pgroll's
// JSONB migration blobs.
package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/fraiseql/confiture-sub001/pkg/errcat"
)

// identifierRe enforces its strict validator: letters, digits,
// underscore, at most one dot, no whitespace/quoting/semicolons.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateIdentifier rejects any table name that isn't a bare identifier or
// a single schema.table pair of plain identifiers.
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return &errcat.SchemaError{
			Code:    "MIGR_010",
			Message: fmt.Sprintf("invalid tracking table identifier %q", name),
			Ctx:     errcat.Context{"name": name},
		}
	}
	return nil
}

// AppliedRecord is one row of the tracking table.
type AppliedRecord struct {
	Version     string
	Name        string
	AppliedAt   time.Time
	ContentHash string
}

// Store encapsulates the applied-migration ledger. Its qualified name may
// be "table" or "schema.table"; splitQualified separates the two for
// catalog lookups.
type Store struct {
	qualifiedName string
	schema        string
	table         string
}

// New validates and wraps a (possibly schema-qualified) tracking table
// name.
func New(qualifiedName string) (*Store, error) {
	if err := ValidateIdentifier(qualifiedName); err != nil {
		return nil, err
	}
	schema, table := splitQualified(qualifiedName)
	return &Store{qualifiedName: qualifiedName, schema: schema, table: table}, nil
}

func splitQualified(name string) (schema, table string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return "public", name
}

// quotedName renders the fully-qualified, identifier-quoted table
// reference for use in dynamically built SQL. Quoting always goes through
// pq.QuoteIdentifier, never raw string concatenation.
func (s *Store) quotedName() string {
	return pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(s.table)
}

// Exists reports whether the tracking table is present, via a catalog
// lookup by (schema, base_name) rather than attempting a query and
// inspecting the error.
func (s *Store) Exists(ctx context.Context, conn *sql.Tx) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM pg_catalog.pg_class c
			JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
			WHERE n.nspname = $1 AND c.relname = $2 AND c.relkind IN ('r', 'p')
		)
	`
	var exists bool
	if err := conn.QueryRowContext(ctx, q, s.schema, s.table).Scan(&exists); err != nil {
		return false, wrapSQLErr(q, err)
	}
	return exists, nil
}

// Initialize creates the tracking table idempotently. CREATE TABLE IF NOT
// EXISTS makes this safe to call concurrently.
func (s *Store) Initialize(ctx context.Context, conn *sql.Tx) error {
	schemaDDL := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(s.schema))
	if _, err := conn.ExecContext(ctx, schemaDDL); err != nil {
		return wrapSQLErr(schemaDDL, err)
	}

	tableDDL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version      text PRIMARY KEY,
			name         text NOT NULL,
			applied_at   timestamptz NOT NULL DEFAULT now(),
			content_hash text
		)`, s.quotedName())
	if _, err := conn.ExecContext(ctx, tableDDL); err != nil {
		return wrapSQLErr(tableDDL, err)
	}
	return nil
}

// AppliedVersions returns the ordered set of applied version strings.
func (s *Store) AppliedVersions(ctx context.Context, conn *sql.Tx) ([]string, error) {
	q := fmt.Sprintf("SELECT version FROM %s ORDER BY version", s.quotedName())
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapSQLErr(q, err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, wrapSQLErr(q, err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// AppliedRecords returns the ordered list of AppliedRecord, sorted by
// version.
func (s *Store) AppliedRecords(ctx context.Context, conn *sql.Tx) ([]AppliedRecord, error) {
	q := fmt.Sprintf("SELECT version, name, applied_at, COALESCE(content_hash, '') FROM %s ORDER BY version", s.quotedName())
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapSQLErr(q, err)
	}
	defer rows.Close()

	var records []AppliedRecord
	for rows.Next() {
		var r AppliedRecord
		if err := rows.Scan(&r.Version, &r.Name, &r.AppliedAt, &r.ContentHash); err != nil {
			return nil, wrapSQLErr(q, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecordApplied inserts one row recording a successfully applied unit.
func (s *Store) RecordApplied(ctx context.Context, conn *sql.Tx, version, name, contentHash string) error {
	q := fmt.Sprintf("INSERT INTO %s (version, name, content_hash) VALUES ($1, $2, $3)", s.quotedName())
	if _, err := conn.ExecContext(ctx, q, version, name, contentHash); err != nil {
		return wrapSQLErr(q, err)
	}
	return nil
}

// RecordAppliedAt inserts one row preserving a historical applied_at value,
// used by the Rebuild Protocol's backup mode.
func (s *Store) RecordAppliedAt(ctx context.Context, conn *sql.Tx, version, name, contentHash string, appliedAt time.Time) error {
	q := fmt.Sprintf("INSERT INTO %s (version, name, applied_at, content_hash) VALUES ($1, $2, $3, $4)", s.quotedName())
	if _, err := conn.ExecContext(ctx, q, version, name, appliedAt, contentHash); err != nil {
		return wrapSQLErr(q, err)
	}
	return nil
}

// DeleteApplied removes one row, used by rollback.
func (s *Store) DeleteApplied(ctx context.Context, conn *sql.Tx, version string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE version = $1", s.quotedName())
	if _, err := conn.ExecContext(ctx, q, version); err != nil {
		return wrapSQLErr(q, err)
	}
	return nil
}

// Backup creates a point-in-time copy of the tracking table's current rows
// as schema.table_backup_<suffix>, for operators who want a true backup
// independent of RebuildOptions.PreserveHistory's in-place timestamp
// carry-forward. Returns the backup table's qualified name. The caller is
// responsible for calling this before any DROP SCHEMA that might take the
// tracking table down with it.
func (s *Store) Backup(ctx context.Context, conn *sql.Tx, suffix string) (string, error) {
	backupTable := s.table + "_backup_" + suffix
	qualified := pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(backupTable)
	q := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", qualified, s.quotedName())
	if _, err := conn.ExecContext(ctx, q); err != nil {
		return "", wrapSQLErr(q, err)
	}
	return s.schema + "." + backupTable, nil
}

// Truncate removes every row, used by Reinit and the Rebuild Protocol.
func (s *Store) Truncate(ctx context.Context, conn *sql.Tx) error {
	q := fmt.Sprintf("TRUNCATE %s", s.quotedName())
	if _, err := conn.ExecContext(ctx, q); err != nil {
		return wrapSQLErr(q, err)
	}
	return nil
}

// QualifiedName returns the original schema.table (or bare table) name
// this store was constructed with.
func (s *Store) QualifiedName() string { return s.qualifiedName }

func wrapSQLErr(statement string, err error) error {
	if err == nil {
		return nil
	}
	return &errcat.SQLError{Statement: statement, Err: err}
}
