// Package ddl implements the DDL Parser: it extracts
// structural facts from DDL text without executing it. PostgreSQL remains
// the ground truth for executability — this parser exists purely to
// support comparison (Schema Comparator, Baseline Detector).
package ddl

import (
	"regexp"
	"strings"

	"github.com/fraiseql/confiture-sub001/pkg/facts"
	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
)

// Diagnostic is a non-fatal parse note: malformed DDL yields a best-effort
// fact set plus diagnostics, never a hard failure.
type Diagnostic struct {
	Statement string
	Message   string
}

// Result is the DDL Parser's output: the extracted facts plus any
// diagnostics raised along the way.
type Result struct {
	Facts       facts.StructuralFacts
	Diagnostics []Diagnostic
}

var (
	createTableRe = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?("?[A-Za-z_][\w.$"]*"?)\s*\((.*)\)\s*;?\s*$`)
	notNullRe     = regexp.MustCompile(`(?i)\bNOT\s+NULL\b`)
	primaryKeyRe  = regexp.MustCompile(`(?i)\bPRIMARY\s+KEY\b`)
	uniqueColRe   = regexp.MustCompile(`(?i)\bUNIQUE\b`)
	defaultRe     = regexp.MustCompile(`(?i)\bDEFAULT\b`)
	tablePKRe     = regexp.MustCompile(`(?is)^PRIMARY\s+KEY\s*\(([^)]*)\)`)
	tableUniqueRe = regexp.MustCompile(`(?is)^(?:CONSTRAINT\s+\S+\s+)?UNIQUE\s*\(([^)]*)\)`)
	tableFKRe     = regexp.MustCompile(`(?is)^(?:CONSTRAINT\s+\S+\s+)?FOREIGN\s+KEY\s*\(([^)]*)\)\s*REFERENCES\s+("?[\w.$"]+"?)\s*(?:\(([^)]*)\))?`)
	inlineFKRe    = regexp.MustCompile(`(?is)\bREFERENCES\s+("?[\w.$"]+"?)\s*(?:\(([^)]*)\))?`)
	checkRe       = regexp.MustCompile(`(?is)^(?:CONSTRAINT\s+\S+\s+)?CHECK\s*\(`)
)

// Parse extracts StructuralFacts from DDL text. Statements are split by the
// SQL Scanner; only CREATE TABLE statements are recognized, everything else
// is ignored at this layer.
func Parse(src string) Result {
	var result Result

	for _, stmt := range sqlscan.SplitStatements(src) {
		text := strings.TrimSpace(stmt.Text)
		if text == "" {
			continue
		}
		upper := strings.ToUpper(text)
		if !strings.HasPrefix(upper, "CREATE TABLE") && !strings.Contains(upper[:min(len(upper), 40)], "CREATE TABLE") {
			continue
		}

		m := createTableRe.FindStringSubmatch(text)
		if m == nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Statement: text,
				Message:   "could not match CREATE TABLE shape",
			})
			continue
		}

		table, fks, err := parseTableBody(unquoteIdent(m[1]), m[2])
		if err != "" {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{Statement: text, Message: err})
		}
		result.Facts.Tables = append(result.Facts.Tables, table)
		result.Facts.ForeignKeys = append(result.Facts.ForeignKeys, fks...)
	}

	return result
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// splitTopLevel splits a comma-separated list at top-level commas only,
// ignoring commas nested inside parens, string literals or quoted
// identifiers.
func splitTopLevel(body string) []string {
	var parts []string
	depth := 0
	inSingle, inDouble := false, false
	start := 0

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, body[start:i])
			start = i + 1
		}
	}
	parts = append(parts, body[start:])

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return s
}

// parseTableBody parses the column/constraint list inside a CREATE TABLE's
// parentheses. It returns the best-effort Table, any FK references found,
// and a non-empty error string if something looked malformed.
func parseTableBody(tableName, body string) (facts.Table, []facts.FKReference, string) {
	table := facts.Table{Name: tableName}
	var fks []facts.FKReference
	var errMsg string

	tableLevelPKCols := map[string]bool{}

	for _, item := range splitTopLevel(body) {
		trimmed := strings.TrimSpace(item)
		upper := strings.ToUpper(trimmed)

		switch {
		case strings.HasPrefix(upper, "PRIMARY KEY"):
			if mm := tablePKRe.FindStringSubmatch(trimmed); mm != nil {
				for _, c := range strings.Split(mm[1], ",") {
					tableLevelPKCols[unquoteIdent(strings.TrimSpace(c))] = true
				}
			}
			continue
		case strings.HasPrefix(upper, "UNIQUE"):
			continue
		case strings.HasPrefix(upper, "CONSTRAINT") && strings.Contains(upper, "UNIQUE"):
			continue
		case strings.HasPrefix(upper, "FOREIGN KEY") || (strings.HasPrefix(upper, "CONSTRAINT") && strings.Contains(upper, "FOREIGN KEY")):
			if mm := tableFKRe.FindStringSubmatch(trimmed); mm != nil {
				via := splitIdentList(mm[1])
				on := splitIdentList(mm[3])
				fks = append(fks, facts.FKReference{
					FromTable:  tableName,
					ViaColumns: via,
					ToTable:    unquoteIdent(mm[2]),
					OnColumns:  on,
				})
			} else {
				errMsg = "unrecognized table-level FOREIGN KEY clause"
			}
			continue
		case checkRe.MatchString(trimmed):
			continue
		}

		col, colFKs, cerr := parseColumnDef(tableName, trimmed)
		if cerr != "" {
			errMsg = cerr
			continue
		}
		table.Columns = append(table.Columns, col)
		fks = append(fks, colFKs...)
	}

	for i := range table.Columns {
		if tableLevelPKCols[table.Columns[i].Name] {
			table.Columns[i].IsPrimaryKey = true
		}
	}

	return table, fks, errMsg
}

func splitIdentList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, unquoteIdent(strings.TrimSpace(p)))
	}
	return out
}

// parseColumnDef parses a single "name type [constraints...]" column
// definition.
func parseColumnDef(tableName, def string) (facts.Column, []facts.FKReference, string) {
	fields := splitLeadingFields(def)
	if len(fields) < 2 {
		return facts.Column{}, nil, "could not parse column definition: " + def
	}

	col := facts.Column{
		Name:         unquoteIdent(fields[0]),
		PostgresType: fields[1],
		Nullable:     true,
	}

	rest := def
	if idx := strings.Index(def, fields[1]); idx >= 0 {
		rest = def[idx+len(fields[1]):]
	}

	if notNullRe.MatchString(rest) {
		col.Nullable = false
	}
	if primaryKeyRe.MatchString(rest) {
		col.IsPrimaryKey = true
		col.Nullable = false
	}
	_ = uniqueColRe // unique-ness of a column is exposed via facts callers that need it; inline UNIQUE doesn't change Column shape here.

	if loc := defaultRe.FindStringIndex(rest); loc != nil {
		expr := extractDefaultExpr(rest[loc[1]:])
		col.DefaultExpr = &expr
	}

	var fks []facts.FKReference
	if mm := inlineFKRe.FindStringSubmatch(rest); mm != nil {
		onCols := splitIdentList(mm[2])
		if len(onCols) == 0 {
			onCols = nil
		}
		fks = append(fks, facts.FKReference{
			FromTable:  tableName,
			ViaColumns: []string{col.Name},
			ToTable:    unquoteIdent(mm[1]),
			OnColumns:  onCols,
		})
	}

	return col, fks, ""
}

// splitLeadingFields splits "name type(args) constraints..." into at most
// the name and the full type text (which may itself contain parens, e.g.
// numeric(10,2)).
func splitLeadingFields(def string) []string {
	def = strings.TrimSpace(def)
	i := 0
	for i < len(def) && !isSpace(def[i]) {
		i++
	}
	if i >= len(def) {
		return []string{def}
	}
	name := def[:i]
	rest := strings.TrimLeft(def[i:], " \t\n\r")

	// The type text runs until we hit a constraint keyword at top level.
	j := 0
	depth := 0
	for j < len(rest) {
		c := rest[j]
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
		} else if depth == 0 && isSpace(c) {
			if kw := peekKeyword(rest[j:]); kw != "" {
				break
			}
		}
		j++
	}
	typ := strings.TrimSpace(rest[:j])
	return []string{name, typ}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

var typeContinuationWords = map[string]bool{
	"varying": true, "precision": true, "zone": true, "without": true, "with": true,
}

func peekKeyword(s string) string {
	s = strings.TrimLeft(s, " \t\n\r")
	upper := strings.ToUpper(s)
	for _, kw := range []string{"NOT NULL", "NULL", "PRIMARY KEY", "UNIQUE", "DEFAULT", "REFERENCES", "CHECK", "CONSTRAINT", "COLLATE", "GENERATED"} {
		if strings.HasPrefix(upper, kw) {
			return kw
		}
	}
	return ""
}

// extractDefaultExpr returns the text after DEFAULT up to the next
// top-level comma or closing paren.
func extractDefaultExpr(s string) string {
	depth := 0
	inSingle := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			}
		case c == '\'':
			inSingle = true
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return strings.TrimSpace(s[:i])
			}
			depth--
		case c == ',' && depth == 0:
			return strings.TrimSpace(s[:i])
		}
	}
	return strings.TrimSpace(s)
}
