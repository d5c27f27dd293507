// Package errcat defines the closed set of error categories that the
// confiture core raises. Each category is a distinct Go type implementing
// error; none of them wrap a generic "exception" hierarchy. ConfigError and
// SchemaError carry a stable code, a human message and a structured Context.
// MigrationError carries a Kind and a Context but no code. SQLError,
// SeedError, HookError and RebuildError carry neither a code nor a Context:
// they hold the failing statement, file, hook or schemas next to the message
// or wrapped cause.
package errcat

import (
	"fmt"

	"github.com/lib/pq"
)

// Context carries the reproduction details for an error: the migration
// version, the unit phase, a truncated SQL preview, and anything else a
// human needs to re-create the failure without re-running the tool.
type Context map[string]any

const sqlPreviewLimit = 400

// truncate shortens a SQL statement for inclusion in error context/messages.
func truncate(sql string) string {
	if len(sql) <= sqlPreviewLimit {
		return sql
	}
	return sql[:sqlPreviewLimit] + "…"
}

// ConfigError reports missing or malformed settings and unreadable
// directories.
type ConfigError struct {
	Code    string
	Message string
	Ctx     Context
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("[%s] config error: %s", e.Code, e.Message)
}

// SchemaError reports DDL parse failures, snapshot build failures, comment
// validation failures and lint failures.
type SchemaError struct {
	Code    string
	Message string
	Ctx     Context
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("[%s] schema error: %s", e.Code, e.Message)
}

// MigrationErrorKind enumerates the kinds of migration-category failure.
type MigrationErrorKind string

const (
	KindDuplicateVersion MigrationErrorKind = "DuplicateVersion"
	KindNameConflict     MigrationErrorKind = "NameConflict"
	KindLockTimeout      MigrationErrorKind = "LockTimeout"
	KindApply            MigrationErrorKind = "Apply"
	KindRollback         MigrationErrorKind = "Rollback"
	KindStoreUnavailable MigrationErrorKind = "StoreUnavailable"
	KindTimeout          MigrationErrorKind = "Timeout"
)

// MigrationError is the general-purpose error raised by the Migration
// Engine. Kind selects which of the documented failure modes occurred;
// Unit/Version/Phase identify where.
type MigrationError struct {
	Kind      MigrationErrorKind
	Version   string
	Unit      string
	Phase     string
	Competing string // competing session identifier, for LockTimeout
	Err       error
	Ctx       Context
}

func (e *MigrationError) Error() string {
	switch e.Kind {
	case KindLockTimeout:
		if e.Competing != "" {
			return fmt.Sprintf("migration error: lock timeout (held by %s)", e.Competing)
		}
		return "migration error: lock timeout"
	case KindDuplicateVersion:
		return fmt.Sprintf("migration error: duplicate version %q", e.Version)
	case KindNameConflict:
		return fmt.Sprintf("migration error: name conflict for unit %q", e.Unit)
	case KindStoreUnavailable:
		return "migration error: tracking store unavailable"
	case KindTimeout:
		return fmt.Sprintf("migration error: statement timeout during %s", e.Phase)
	}
	if e.Err != nil {
		return fmt.Sprintf("migration error: %s (version=%s phase=%s): %s", e.Kind, e.Version, e.Phase, e.Err)
	}
	return fmt.Sprintf("migration error: %s (version=%s phase=%s)", e.Kind, e.Version, e.Phase)
}

func (e *MigrationError) Unwrap() error { return e.Err }

// SQLError wraps any PostgreSQL error with the failing statement text
// (truncated), bind parameters and the original driver error.
type SQLError struct {
	Statement string
	Params    []any
	Err       error
}

func (e *SQLError) Error() string {
	sqlstate := ""
	var pqErr *pq.Error
	if asPQError(e.Err, &pqErr) {
		sqlstate = string(pqErr.Code)
	}
	if sqlstate != "" {
		return fmt.Sprintf("sql error [%s]: %s (statement: %s)", sqlstate, e.Err, truncate(e.Statement))
	}
	return fmt.Sprintf("sql error: %s (statement: %s)", e.Err, truncate(e.Statement))
}

func (e *SQLError) Unwrap() error { return e.Err }

// SQLState returns the PostgreSQL SQLSTATE code carried by the wrapped
// error, or "" if the wrapped error isn't a *pq.Error.
func (e *SQLError) SQLState() string {
	var pqErr *pq.Error
	if asPQError(e.Err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func asPQError(err error, target **pq.Error) bool {
	for err != nil {
		if pe, ok := err.(*pq.Error); ok {
			*target = pe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// SeedError reports validator violations or a SQL failure inside a
// specific seed file.
type SeedError struct {
	File    string
	Message string
	Err     error
}

func (e *SeedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("seed error in %q: %s: %s", e.File, e.Message, e.Err)
	}
	return fmt.Sprintf("seed error in %q: %s", e.File, e.Message)
}

func (e *SeedError) Unwrap() error { return e.Err }

// HookError reports a hook crashing inside a phase. It wraps the hook
// name, the phase name and the underlying cause.
type HookError struct {
	HookName string
	Phase    string
	Err      error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %q failed in phase %s: %s", e.HookName, e.Phase, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// RebuildError reports a rebuild precondition that wasn't met, such as
// schemas the operator refused to drop.
type RebuildError struct {
	Message string
	Schemas []string
}

func (e *RebuildError) Error() string {
	if len(e.Schemas) > 0 {
		return fmt.Sprintf("rebuild error: %s (schemas: %v)", e.Message, e.Schemas)
	}
	return fmt.Sprintf("rebuild error: %s", e.Message)
}
