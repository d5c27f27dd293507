// Package seed implements the Seed Validator, Copy Converter and Seed
// Engine.12: parsing seed INSERT statements into row
// sets, validating them against a schema context, rewriting eligible
// statements into COPY form, and driving per-file load with savepoints.
package seed

import (
	"regexp"
	"strings"

	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
)

// Value is one cell of a parsed row: nil represents SQL NULL, a non-nil
// string carries the literal's text (quotes already stripped, escapes
// already resolved for string literals).
type Value = *string

// Insert is one parsed INSERT statement's worth of data.
type Insert struct {
	Raw              string
	Table            string
	Columns          []string
	Rows             [][]Value
	Eligible         bool
	IneligibleReason string
}

var (
	insertHeadRe = regexp.MustCompile(`(?is)^insert\s+into\s+([^\s(]+)\s*(\(([^)]*)\))?\s*values\s*`)
	onConflictRe = regexp.MustCompile(`(?is)\bon\s+conflict\b`)
	returningRe  = regexp.MustCompile(`(?is)\breturning\b`)
	caseRe       = regexp.MustCompile(`(?is)\bcase\b`)
	selectRe     = regexp.MustCompile(`(?is)\bselect\b`)
	castRe       = regexp.MustCompile(`::`)
	concatRe     = regexp.MustCompile(`\|\|`)
	funcCallRe   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\s*\(`)
	arithmeticRe = regexp.MustCompile(`[-+*/%](?:\s|\d|\()`)
	numericRe    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	stringLitRe  = regexp.MustCompile(`(?s)^'((?:[^']|'')*)'$`)
)

// ParseInserts splits src into statements and parses every INSERT it finds,
// skipping (silently) any non-INSERT statement: the validator and copy
// converter only ever operate on the INSERT subset of a seed file.
func ParseInserts(src string) []Insert {
	var inserts []Insert
	for _, stmt := range sqlscan.SplitStatements(src) {
		text := strings.TrimSpace(stmt.Text)
		if text == "" || !insertHeadRe.MatchString(text) {
			continue
		}
		inserts = append(inserts, parseOne(text))
	}
	return inserts
}

func parseOne(stmt string) Insert {
	ins := Insert{Raw: stmt}

	m := insertHeadRe.FindStringSubmatchIndex(stmt)
	if m == nil {
		ins.Eligible = false
		ins.IneligibleReason = "not a VALUES-based INSERT"
		return ins
	}
	heads := insertHeadRe.FindStringSubmatch(stmt)
	ins.Table = strings.Trim(heads[1], `"`)
	if heads[3] != "" {
		for _, c := range strings.Split(heads[3], ",") {
			ins.Columns = append(ins.Columns, strings.Trim(strings.TrimSpace(c), `"`))
		}
	}

	valuesBody := stmt[m[1]:]
	valuesBody = strings.TrimRight(strings.TrimSpace(valuesBody), ";")

	reason := ineligibilityReason(stmt, valuesBody)
	if reason != "" {
		ins.Eligible = false
		ins.IneligibleReason = reason
		return ins
	}

	tuples := splitTopLevelTuples(valuesBody)
	if tuples == nil {
		ins.Eligible = false
		ins.IneligibleReason = "could not parse VALUES tuples"
		return ins
	}

	for _, tuple := range tuples {
		row, err := parseTuple(tuple)
		if err != "" {
			ins.Eligible = false
			ins.IneligibleReason = err
			return ins
		}
		ins.Rows = append(ins.Rows, row)
	}

	ins.Eligible = true
	return ins
}

// ineligibilityReason checks the statement-level and VALUES-body-level
// disqualifiers's SeedFile eligibility rule: ON CONFLICT,
// RETURNING, function calls, subqueries, CASE, arithmetic/string
// operators, and casts.
func ineligibilityReason(fullStmt, valuesBody string) string {
	if onConflictRe.MatchString(fullStmt) {
		return "ON CONFLICT clause not compatible with COPY"
	}
	if returningRe.MatchString(fullStmt) {
		return "RETURNING clause not compatible with COPY"
	}
	if selectRe.MatchString(valuesBody) {
		return "subqueries in VALUES not compatible with COPY"
	}
	if caseRe.MatchString(valuesBody) {
		return "CASE expressions in VALUES not compatible with COPY"
	}
	if castRe.MatchString(valuesBody) {
		return "casts in VALUES not compatible with COPY"
	}
	if concatRe.MatchString(valuesBody) {
		return "string concatenation in VALUES not compatible with COPY"
	}
	if funcCallRe.MatchString(stripStringLiterals(valuesBody)) {
		return "function calls in VALUES not compatible with COPY"
	}
	return ""
}

// stripStringLiterals blanks out the contents of every '...' literal so
// later regex checks (function-call detection in particular) don't trip
// on parentheses or operators that only appear inside string data.
func stripStringLiterals(s string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			if inString && i+1 < len(s) && s[i+1] == '\'' {
				b.WriteByte(' ')
				i++
				continue
			}
			inString = !inString
			b.WriteByte(' ')
			continue
		}
		if inString {
			b.WriteByte(' ')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// splitTopLevelTuples splits "(1,2),(3,4)" into ["1,2", "3,4"], respecting
// nesting depth and string literals.
func splitTopLevelTuples(s string) []string {
	var tuples []string
	depth := 0
	inString := false
	start := -1
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inString:
			inString = true
		case c == '\'' && inString:
			if i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			inString = false
		case inString:
			// inside a literal, nothing else matters
		case c == '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 && start >= 0 {
				tuples = append(tuples, s[start:i])
				start = -1
			}
		}
	}
	return tuples
}

// parseTuple splits one tuple's contents by top-level commas and resolves
// each value to a Value (nil for NULL, the literal text otherwise).
func parseTuple(tuple string) ([]Value, string) {
	parts := splitTopLevelCommas(tuple)
	row := make([]Value, 0, len(parts))
	for _, p := range parts {
		v, ok := literalValue(strings.TrimSpace(p))
		if !ok {
			return nil, "non-literal value in VALUES not compatible with COPY"
		}
		row = append(row, v)
	}
	return row, ""
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inString:
			inString = true
		case c == '\'' && inString:
			if i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			inString = false
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func literalValue(tok string) (Value, bool) {
	upper := strings.ToUpper(tok)
	switch upper {
	case "NULL":
		return nil, true
	case "TRUE", "FALSE":
		v := strings.ToLower(tok)
		return &v, true
	}
	if m := stringLitRe.FindStringSubmatch(tok); m != nil {
		unescaped := strings.ReplaceAll(m[1], "''", "'")
		return &unescaped, true
	}
	if numericRe.MatchString(tok) {
		return &tok, true
	}
	if arithmeticRe.MatchString(tok) {
		return nil, false
	}
	return nil, false
}
