package seed

import "strings"

// CopyBlock is one rendered COPY ... FROM stdin block.
type CopyBlock struct {
	Table   string
	Columns []string
	Rows    [][]Value
}

// Render produces the literal COPY statement text: the `COPY ... FROM
// stdin;` header, one TSV line per row, and a trailing `\.` terminator.
// Used for preview output (`seed convert`), not for execution — execCopy
// drives the real load through lib/pq's COPY sub-protocol instead.
func (b CopyBlock) Render() string {
	var sb strings.Builder
	sb.WriteString("COPY ")
	sb.WriteString(b.Table)
	if len(b.Columns) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(b.Columns, ", "))
		sb.WriteString(")")
	}
	sb.WriteString(" FROM stdin;\n")
	for _, row := range b.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = escapeTSV(v)
		}
		sb.WriteString(strings.Join(cells, "\t"))
		sb.WriteString("\n")
	}
	sb.WriteString("\\.\n")
	return sb.String()
}

// Args converts one parsed row to the []any shape pq.CopyIn's prepared
// statement expects: a nil Value becomes a true nil (SQL NULL), everything
// else is passed as its literal string — no TSV escaping applies here,
// that's only needed by Render's text-protocol output.
func (b CopyBlock) Args(row []Value) []any {
	args := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			args[i] = nil
		} else {
			args[i] = *v
		}
	}
	return args
}

// escapeTSV renders one value in COPY's text format: backslash, newline,
// tab, and carriage return are backslash-escaped; SQL NULL becomes \N.
func escapeTSV(v Value) string {
	if v == nil {
		return `\N`
	}
	s := *v
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	return s
}

// Convert rewrites the eligible, contiguous INSERT statements in inserts
// into COPY blocks, merging consecutive eligible inserts against the same
// table with identical column lists into one block. Ineligible statements
// are returned unchanged in the Unconverted slice, in their original
// position relative to the converted blocks being irrelevant to callers
// (the Seed Engine executes blocks and unconverted statements as two
// separate passes).
type ConvertResult struct {
	Blocks      []CopyBlock
	Unconverted []Insert
}

// Convert groups consecutive eligible inserts against the same table with
// identical column lists into COPY blocks.
func Convert(inserts []Insert) ConvertResult {
	var result ConvertResult
	var current *CopyBlock

	flush := func() {
		if current != nil {
			result.Blocks = append(result.Blocks, *current)
			current = nil
		}
	}

	for _, ins := range inserts {
		if !ins.Eligible {
			flush()
			result.Unconverted = append(result.Unconverted, ins)
			continue
		}
		if current != nil && current.Table == ins.Table && sameColumns(current.Columns, ins.Columns) {
			current.Rows = append(current.Rows, ins.Rows...)
			continue
		}
		flush()
		current = &CopyBlock{Table: ins.Table, Columns: ins.Columns, Rows: append([][]Value{}, ins.Rows...)}
	}
	flush()

	return result
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
