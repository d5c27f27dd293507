package sqlscan

import "fmt"

// CommentDiagnosticKind classifies a comment-validation finding.
type CommentDiagnosticKind string

const (
	// Unclosed marks a block comment that reached end-of-input before a
	// matching closing `*/` was found.
	Unclosed CommentDiagnosticKind = "unclosed"
	// Spillover marks an input whose scanner state is still inside a block
	// comment when it ends — the signal that a missing `*/` could swallow
	// whatever text follows it (e.g. the next concatenated file).
	Spillover CommentDiagnosticKind = "spillover"
)

// CommentDiagnostic is one finding from ValidateComments, carrying enough
// context (line number, snippet) for an operator to locate the offending
// comment.
type CommentDiagnostic struct {
	Kind    CommentDiagnosticKind
	Line    int
	Snippet string
}

const snippetRadius = 40

// ValidateComments walks src and reports any block comment that never
// closes. This single pass serves double duty: run once per input file
// (where "spillover" is really "unclosed within this file") and once more
// over concatenated multi-file text (where it is the safety net for a
// missing `*/` in file N swallowing file N+1).
func ValidateComments(src string) []CommentDiagnostic {
	s := newScanner(src)
	var diags []CommentDiagnostic
	var blockStartLine, blockStartPos int
	wasInBlock := false

	for s.pos < len(s.src) {
		c := s.src[s.pos]

		switch s.st {
		case stateCode:
			switch {
			case c == '\'':
				s.st = stateSingleQuote
				s.pos++
			case c == '"':
				s.st = stateDoubleQuote
				s.pos++
			case c == '-' && s.peek(1) == '-':
				s.st = stateLineComment
				s.pos += 2
			case c == '/' && s.peek(1) == '*':
				s.st = stateBlockComment
				s.blockDepth = 1
				blockStartLine = s.lineNo
				blockStartPos = s.pos
				wasInBlock = true
				s.pos += 2
			case c == '$' && isDollarTagStart(s.src, s.pos):
				tag, tagLen := readDollarTag(s.src, s.pos)
				s.dollarTag = tag
				s.st = stateDollarQuote
				s.pos += tagLen
			default:
				if c == '\n' {
					s.lineNo++
				}
				s.pos++
			}
		case stateSingleQuote:
			if c == '\'' && s.peek(1) == '\'' {
				s.pos += 2
			} else if c == '\'' {
				s.st = stateCode
				s.pos++
			} else {
				if c == '\n' {
					s.lineNo++
				}
				s.pos++
			}
		case stateDoubleQuote:
			if c == '"' && s.peek(1) == '"' {
				s.pos += 2
			} else if c == '"' {
				s.st = stateCode
				s.pos++
			} else {
				s.pos++
			}
		case stateLineComment:
			if c == '\n' {
				s.st = stateCode
				s.lineNo++
			}
			s.pos++
		case stateBlockComment:
			switch {
			case c == '/' && s.peek(1) == '*':
				s.blockDepth++
				s.pos += 2
			case c == '*' && s.peek(1) == '/':
				s.blockDepth--
				s.pos += 2
				if s.blockDepth == 0 {
					s.st = stateCode
					wasInBlock = false
				}
			default:
				if c == '\n' {
					s.lineNo++
				}
				s.pos++
			}
		case stateDollarQuote:
			if matchesAt(s.src, s.pos, s.dollarTag) {
				s.pos += len(s.dollarTag)
				s.st = stateCode
				s.dollarTag = ""
			} else {
				if c == '\n' {
					s.lineNo++
				}
				s.pos++
			}
		}
	}

	if s.st == stateBlockComment && wasInBlock {
		end := blockStartPos + snippetRadius
		if end > len(s.src) {
			end = len(s.src)
		}
		diags = append(diags, CommentDiagnostic{
			Kind:    Unclosed,
			Line:    blockStartLine,
			Snippet: fmt.Sprintf("%q", s.src[blockStartPos:end]),
		})
		diags = append(diags, CommentDiagnostic{
			Kind:    Spillover,
			Line:    s.lineNo,
			Snippet: "scanner reached end-of-input while inside a block comment",
		})
	}

	return diags
}
