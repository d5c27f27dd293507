// Package dryrun implements the Dry-Run Analyzer: a
// static classifier over pending migration statements that never executes
// anything, producing cost estimates and concurrency risk for the CLI to
// render. The engine itself never blocks on the analyzer's verdict.
package dryrun

import (
	"regexp"
	"strings"

	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
)

// Classification is a statement's safety tier.
type Classification string

const (
	Safe    Classification = "SAFE"
	Warning Classification = "WARNING"
	Unsafe  Classification = "UNSAFE"
)

// RiskLevel describes how much a statement is expected to block concurrent
// readers/writers.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskHigh   RiskLevel = "high"
	RiskSevere RiskLevel = "severe"
)

// StatementReport is the analyzer's verdict for a single statement.
type StatementReport struct {
	Statement      string
	Classification Classification
	Reason         string
	DurationMS     int
	DiskMB         int
	CPUPercent     int
	TablesLocked   []string
	Risk           RiskLevel
}

// Report is the full analyzer output for a pending unit's up payload.
type Report struct {
	Statements []StatementReport
}

// HasUnsafe reports whether any statement classified UNSAFE.
func (r Report) HasUnsafe() bool {
	for _, s := range r.Statements {
		if s.Classification == Unsafe {
			return true
		}
	}
	return false
}

// HasWarning reports whether any statement classified WARNING or worse.
func (r Report) HasWarning() bool {
	for _, s := range r.Statements {
		if s.Classification == Warning || s.Classification == Unsafe {
			return true
		}
	}
	return false
}

var (
	createTableIfNotExistsRe = regexp.MustCompile(`(?is)^create\s+table\s+if\s+not\s+exists\b`)
	createIndexConcurrentRe  = regexp.MustCompile(`(?is)^create\s+(unique\s+)?index\s+concurrently\b`)
	createIndexRe            = regexp.MustCompile(`(?is)^create\s+(unique\s+)?index\b`)
	addColumnNullableRe      = regexp.MustCompile(`(?is)^alter\s+table\s+\S+\s+add\s+column\s+(if\s+not\s+exists\s+)?\S+\s+[^,]*?(?:\bnot\s+null\b)?`)
	alterTableRe             = regexp.MustCompile(`(?is)^alter\s+table\b`)
	dropTableRe              = regexp.MustCompile(`(?is)^drop\s+table\b`)
	dropColumnRe             = regexp.MustCompile(`(?is)(?:^alter\s+table\s+\S+\s+drop\s+column\b)`)
	truncateRe               = regexp.MustCompile(`(?is)^truncate\b`)
	vacuumFullRe             = regexp.MustCompile(`(?is)^vacuum\s+full\b`)
	deleteRe                 = regexp.MustCompile(`(?is)^delete\s+from\s+(\S+)`)
	updateRe                 = regexp.MustCompile(`(?is)^update\s+(\S+)`)
	whereRe                  = regexp.MustCompile(`(?is)\bwhere\b`)
	selectRe                 = regexp.MustCompile(`(?is)^select\b`)
	alterTargetRe            = regexp.MustCompile(`(?is)^alter\s+table\s+(\S+)`)
	notNullRe                = regexp.MustCompile(`(?is)\bnot\s+null\b`)
)

// Analyze classifies every statement in payload. Statements are split via
// the shared scanner so quoting and comments never confuse classification.
func Analyze(payload string) Report {
	var report Report
	for _, stmt := range sqlscan.SplitStatements(payload) {
		text := strings.TrimSpace(stmt.Text)
		if text == "" {
			continue
		}
		report.Statements = append(report.Statements, classify(text))
	}
	return report
}

func classify(stmt string) StatementReport {
	switch {
	case selectRe.MatchString(stmt):
		return StatementReport{Statement: stmt, Classification: Safe, Reason: "read-only statement", Risk: RiskNone}

	case createTableIfNotExistsRe.MatchString(stmt):
		return StatementReport{Statement: stmt, Classification: Safe, Reason: "idempotent table creation", DurationMS: 5, Risk: RiskLow}

	case createIndexConcurrentRe.MatchString(stmt):
		return StatementReport{Statement: stmt, Classification: Safe, Reason: "concurrent index build does not hold a blocking lock", DurationMS: 2000, Risk: RiskLow}

	case vacuumFullRe.MatchString(stmt):
		return StatementReport{
			Statement: stmt, Classification: Warning,
			Reason: "VACUUM FULL takes an exclusive lock for its duration",
			DurationMS: 5000, DiskMB: 200, CPUPercent: 60, Risk: RiskHigh,
		}

	case createIndexRe.MatchString(stmt):
		return StatementReport{
			Statement: stmt, Classification: Warning,
			Reason: "non-concurrent index build blocks writes for its duration",
			DurationMS: 2000, CPUPercent: 40, Risk: RiskHigh,
		}

	case truncateRe.MatchString(stmt):
		return StatementReport{
			Statement: stmt, Classification: Unsafe,
			Reason: "TRUNCATE removes all rows and cannot be scoped by a WHERE clause",
			Risk: RiskSevere,
		}

	case dropTableRe.MatchString(stmt):
		return StatementReport{
			Statement: stmt, Classification: Unsafe,
			Reason: "DROP TABLE is destructive and cannot be rolled back once committed", Risk: RiskSevere,
		}

	case dropColumnRe.MatchString(stmt):
		return StatementReport{
			Statement: stmt, Classification: Unsafe,
			Reason: "DROP COLUMN discards data irrecoverably", Risk: RiskSevere,
		}

	case deleteRe.MatchString(stmt):
		if !whereRe.MatchString(stmt) {
			target := firstGroup(deleteRe, stmt)
			return StatementReport{
				Statement: stmt, Classification: Unsafe,
				Reason: "DELETE without a WHERE clause removes every row in " + target,
				TablesLocked: []string{target}, Risk: RiskSevere,
			}
		}
		return StatementReport{Statement: stmt, Classification: Warning, Reason: "DELETE with a filter still needs a lock audit", Risk: RiskLow}

	case updateRe.MatchString(stmt):
		target := firstGroup(updateRe, stmt)
		if !whereRe.MatchString(stmt) {
			return StatementReport{
				Statement: stmt, Classification: Unsafe,
				Reason: "UPDATE without a WHERE clause rewrites every row in " + target,
				TablesLocked: []string{target}, Risk: RiskSevere,
			}
		}
		return StatementReport{Statement: stmt, Classification: Warning, Reason: "UPDATE with a filter still rewrites matching rows", TablesLocked: []string{target}, Risk: RiskLow}

	case addColumnNullableRe.MatchString(stmt) && !notNullRe.MatchString(stmt):
		target := firstGroup(alterTargetRe, stmt)
		return StatementReport{Statement: stmt, Classification: Safe, Reason: "adding a nullable column does not rewrite existing rows", TablesLocked: []string{target}, DurationMS: 10, Risk: RiskLow}

	case alterTableRe.MatchString(stmt):
		target := firstGroup(alterTargetRe, stmt)
		return StatementReport{
			Statement: stmt, Classification: Warning,
			Reason: "ALTER TABLE may rewrite the table depending on the change",
			TablesLocked: []string{target}, DurationMS: 500, Risk: RiskHigh,
		}

	default:
		return StatementReport{Statement: stmt, Classification: Warning, Reason: "statement shape not recognized by the analyzer", Risk: RiskLow}
	}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.Trim(m[len(m)-1], `"`)
}
