// Package normalize implements the Schema Normalizer: it
// turns DDL text (or StructuralFacts rendered back to text) into a
// canonical, whitespace-insensitive, comment-stripped, table-sorted form
// suitable for SHA-256 fingerprinting and fuzzy similarity comparison.
//
// Normalization is strictly textual. It does not parse types or
// constraints — that altitude of comparison belongs to the DDL Parser and
// Catalog Introspector (see pkg/ddl, pkg/catalog). Both altitudes are
// intentionally kept: collapsing them loses either rename detection or
// similarity matching.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/fraiseql/confiture-sub001/pkg/sqlscan"
)

var (
	ifNotExistsRe = regexp.MustCompile(`(?i)\bIF\s+NOT\s+EXISTS\b`)
	ifExistsRe    = regexp.MustCompile(`(?i)\bIF\s+EXISTS\b`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	createTblHead = regexp.MustCompile(`(?i)^CREATE\s+TABLE\s+("?[\w.$"]+"?)`)
)

// Normalize canonicalizes DDL text:
//  1. strip all comments (line and block), via a state machine with the
//     SQL Scanner's states so string literals are never mistaken for comments;
//  2. lowercase everything outside string literals;
//  3. collapse whitespace runs to a single space;
//  4. remove the tokens IF NOT EXISTS / IF EXISTS;
//  5. reorder top-level CREATE TABLE blocks alphabetically by table name,
//     leaving column order untouched within each block.
func Normalize(ddlText string) string {
	stripped := stripComments(ddlText)

	blocks := splitCreateTableBlocks(stripped)
	if len(blocks) == 0 {
		return normalizeFragment(stripped)
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].tableName < blocks[j].tableName
	})

	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(normalizeFragment(b.text))
	}
	return sb.String()
}

type createTableBlock struct {
	tableName string
	text      string
}

// splitCreateTableBlocks splits comment-stripped DDL into CREATE TABLE
// statements (in source order) plus everything else concatenated as a
// single leading block with an empty table name (so it sorts first and
// its relative order among non-table statements is preserved — this
// normalizer only promises table-block reordering).
func splitCreateTableBlocks(src string) []createTableBlock {
	stmts := sqlscan.SplitStatements(src)
	if len(stmts) == 0 {
		return nil
	}

	var blocks []createTableBlock
	var otherSB strings.Builder
	for _, s := range stmts {
		trimmed := strings.TrimSpace(s.Text)
		if trimmed == "" {
			continue
		}
		if m := createTblHead.FindStringSubmatch(trimmed); m != nil {
			name := strings.ToLower(strings.Trim(m[1], `"`))
			blocks = append(blocks, createTableBlock{tableName: name, text: trimmed})
			continue
		}
		if otherSB.Len() > 0 {
			otherSB.WriteByte(' ')
		}
		otherSB.WriteString(trimmed)
	}

	if otherSB.Len() > 0 {
		// Non-table statements keep their place before the sorted table
		// blocks; they don't participate in alphabetical reordering.
		blocks = append([]createTableBlock{{tableName: "", text: otherSB.String()}}, blocks...)
	}

	return blocks
}

// stripComments removes line and block comments while leaving string
// literals and dollar-quoted bodies untouched, using its own copy of the
// Scanner's states so a comment-looking sequence inside a string is never
// stripped.
func stripComments(src string) string {
	type spanState int
	const (
		code spanState = iota
		single
		double
		lineComment
		blockComment
		dollar
	)

	var sb strings.Builder
	st := code
	var dollarTag string
	blockDepth := 0

	i := 0
	for i < len(src) {
		c := src[i]
		switch st {
		case code:
			switch {
			case c == '\'':
				st = single
				sb.WriteByte(c)
				i++
			case c == '"':
				st = double
				sb.WriteByte(c)
				i++
			case c == '-' && i+1 < len(src) && src[i+1] == '-':
				st = lineComment
				i += 2
			case c == '/' && i+1 < len(src) && src[i+1] == '*':
				st = blockComment
				blockDepth = 1
				i += 2
			case c == '$':
				if tag, l := readDollarTag(src, i); l > 0 {
					dollarTag = tag
					st = dollar
					sb.WriteString(tag)
					i += l
					continue
				}
				sb.WriteByte(c)
				i++
			default:
				sb.WriteByte(c)
				i++
			}
		case single:
			sb.WriteByte(c)
			if c == '\'' && i+1 < len(src) && src[i+1] == '\'' {
				sb.WriteByte(src[i+1])
				i += 2
				continue
			}
			if c == '\'' {
				st = code
			}
			i++
		case double:
			sb.WriteByte(c)
			if c == '"' {
				st = code
			}
			i++
		case lineComment:
			if c == '\n' {
				st = code
				sb.WriteByte(' ')
			}
			i++
		case blockComment:
			if c == '/' && i+1 < len(src) && src[i+1] == '*' {
				blockDepth++
				i += 2
				continue
			}
			if c == '*' && i+1 < len(src) && src[i+1] == '/' {
				blockDepth--
				i += 2
				if blockDepth == 0 {
					st = code
					sb.WriteByte(' ')
				}
				continue
			}
			i++
		case dollar:
			if i+len(dollarTag) <= len(src) && src[i:i+len(dollarTag)] == dollarTag {
				sb.WriteString(dollarTag)
				i += len(dollarTag)
				st = code
				continue
			}
			sb.WriteByte(c)
			i++
		}
	}

	return sb.String()
}

func readDollarTag(src string, pos int) (string, int) {
	if pos >= len(src) || src[pos] != '$' {
		return "", 0
	}
	i := pos + 1
	for i < len(src) {
		c := src[i]
		isTagChar := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isTagChar {
			break
		}
		i++
	}
	if i >= len(src) || src[i] != '$' {
		return "", 0
	}
	return src[pos : i+1], i + 1 - pos
}

// normalizeFragment applies steps 2-4 (lowercase outside literals,
// collapse whitespace, strip IF [NOT] EXISTS) to a single fragment of
// comment-stripped text.
func normalizeFragment(s string) string {
	s = lowercaseOutsideLiterals(s)
	s = ifNotExistsRe.ReplaceAllString(s, "")
	s = ifExistsRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func lowercaseOutsideLiterals(s string) string {
	var sb strings.Builder
	inSingle := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			inSingle = !inSingle
			sb.WriteByte(c)
			continue
		}
		if inSingle {
			sb.WriteByte(c)
			continue
		}
		if c >= 'A' && c <= 'Z' {
			sb.WriteByte(c + ('a' - 'A'))
		} else {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// Hash returns the stable SHA-256 hex digest of a normalized string. For
// all DDL text D, Hash(Normalize(D)) is idempotent: re-normalizing an
// already-normalized string yields the same string and therefore the same
// hash.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// SimilarityRatio computes a standard longest-common-subsequence based
// similarity ratio between two normalized token sequences, in [0, 1]. It
// tokenizes on whitespace (the normalized form has already collapsed
// whitespace to single spaces) and uses the classic Ratcliff/Obershelp
// "2*M/T" formula over an LCS of tokens, the same similarity measure
// Python's difflib.SequenceMatcher.ratio() computes.
func SimilarityRatio(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}
	m := lcsLength(ta, tb)
	total := len(ta) + len(tb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(m) / float64(total)
}

func lcsLength(a, b []string) int {
	n, m := len(a), len(b)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[m]
}
