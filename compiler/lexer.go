package compiler

import (
	"strings"
	"unicode"
)

// ---------------------------------------------------------------------------
// Lexer: line-oriented tokenizer for stack assembly
// ---------------------------------------------------------------------------

// Lexer splits assembly source into lines of whitespace-separated tokens.
// Blank lines and lines whose first non-space character is '#' produce
// no tokens.
type Lexer struct {
	input  string
	offset int // offset of the next unread line
	line   int // number of the last line returned
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Next returns the next source line. ok is false at end of input.
func (l *Lexer) Next() (Line, bool) {
	if l.offset >= len(l.input) {
		return Line{}, false
	}

	start := l.offset
	end := start
	for end < len(l.input) && l.input[end] != '\n' && l.input[end] != '\r' {
		end++
	}

	// Consume the terminator; \r\n counts as one line break.
	next := end
	if next < len(l.input) {
		if l.input[next] == '\r' && next+1 < len(l.input) && l.input[next+1] == '\n' {
			next += 2
		} else {
			next++
		}
	}
	l.offset = next
	l.line++

	raw := l.input[start:end]
	ln := Line{
		Number: l.line,
		Text:   strings.TrimSpace(raw),
	}
	if ln.Text == "" {
		return ln, true
	}
	if strings.HasPrefix(ln.Text, "#") {
		ln.Comment = true
		return ln, true
	}

	ln.Tokens = splitFields(raw, start, l.line)
	return ln, true
}

// Lines lexes the whole input.
func (l *Lexer) Lines() []Line {
	var lines []Line
	for {
		ln, ok := l.Next()
		if !ok {
			return lines
		}
		lines = append(lines, ln)
	}
}

// splitFields is strings.Fields that keeps the position of every field.
func splitFields(raw string, base int, line int) []Token {
	var tokens []Token
	start := -1
	for i, r := range raw {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, newToken(raw[start:i], base, start, line))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, newToken(raw[start:], base, start, line))
	}
	return tokens
}

func newToken(lit string, base, start, line int) Token {
	return Token{
		Literal: lit,
		Pos: Position{
			Offset: base + start,
			Line:   line,
			Column: start + 1,
		},
	}
}
