package seed

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
)

// unionSplitRe splits a single statement's top-level SELECT/UNION branches.
// This is intentionally narrow (no nested-subquery UNION handling) since
// it only targets a flat UNION of literal SELECTs.
var unionSplitRe = regexp.MustCompile(`(?is)\bunion\s+all\b|\bunion\b`)

// DetectUnionNullTypeMismatch implements the UNION_NULL_TYPE_MISMATCH
// detector: within one statement, a bare NULL in
// position i of one UNION branch next to a typed NULL::type (or a
// non-NULL value) in the same position of another branch, or branches
// with differing column counts, is flagged. Unlike the other detectors
// this one runs over raw SQL text rather than parsed row data, since the
// ambiguity it targets is about literal shape, not row content.
func DetectUnionNullTypeMismatch(src string) []Violation {
	var violations []Violation
	for _, stmt := range sqlscan.SplitStatements(src) {
		text := strings.TrimSpace(stmt.Text)
		if !unionSplitRe.MatchString(text) {
			continue
		}
		branches := unionSplitRe.Split(text, -1)
		if len(branches) < 2 {
			continue
		}

		var branchValues [][]string
		for _, b := range branches {
			vals := selectValueList(b)
			if vals == nil {
				branchValues = nil
				break
			}
			branchValues = append(branchValues, vals)
		}
		if branchValues == nil {
			continue
		}

		width := len(branchValues[0])
		for _, bv := range branchValues {
			if len(bv) != width {
				violations = append(violations, Violation{
					Kind: UnionNullTypeMismatch, Severity: SeverityError, RowIndex: -1,
					Message: "UNION branches have differing column counts",
				})
				return violations
			}
		}

		for col := 0; col < width; col++ {
			sawBareNull := false
			sawTypedNullOrValue := false
			for _, bv := range branchValues {
				v := strings.TrimSpace(bv[col])
				switch {
				case strings.EqualFold(v, "NULL"):
					sawBareNull = true
				case strings.HasPrefix(strings.ToUpper(v), "NULL::"):
					sawTypedNullOrValue = true
				default:
					sawTypedNullOrValue = true
				}
			}
			if sawBareNull && sawTypedNullOrValue {
				violations = append(violations, Violation{
					Kind: UnionNullTypeMismatch, Severity: SeverityError, RowIndex: -1,
					Message: fmt.Sprintf("position %d: bare NULL in one UNION branch alongside a typed or non-NULL value in the same position", col+1),
				})
			}
		}
	}
	return violations
}

// selectValueList extracts the comma-separated expression list of a bare
// `SELECT <expr>, <expr>, ...` branch (no FROM clause), which is the only
// shape seed files use UNION for. Returns nil if the branch doesn't match
// that shape (e.g. it has a FROM clause), since those cases fall outside
// this detector's scope.
func selectValueList(branch string) []string {
	trimmed := strings.TrimSpace(branch)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return nil
	}
	rest := strings.TrimSpace(trimmed[len("SELECT"):])
	if idx := strings.Index(strings.ToUpper(rest), "FROM"); idx >= 0 {
		return nil
	}
	rest = strings.TrimRight(rest, "; \t\n")
	return splitTopLevelCommas(rest)
}
