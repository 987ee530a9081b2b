package compiler

import "fmt"

// ParseError reports malformed assembly. Line is 1-based; it is 0 when the
// error concerns the whole source (no STOP at all).
type ParseError struct {
	Line   int
	Column int
	Text   string // offending token or line
	Msg    string
}

func (e *ParseError) Error() string {
	return e.Msg
}

// Pos returns the error location.
func (e *ParseError) Pos() Position {
	return Position{Line: e.Line, Column: e.Column}
}

func (a *Assembler) errorf(tok Token, format string, args ...interface{}) {
	a.errors = append(a.errors, &ParseError{
		Line:   tok.Pos.Line,
		Column: tok.Pos.Column,
		Text:   tok.Literal,
		Msg:    fmt.Sprintf(format, args...),
	})
}
