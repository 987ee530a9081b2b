package compiler

import "fmt"

// Position is a location in assembly source.
type Position struct {
	Offset int // byte offset in the source
	Line   int // 1-based
	Column int // 1-based, in bytes
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one whitespace-separated field of an instruction line.
type Token struct {
	Literal string
	Pos     Position
}

func (t Token) String() string {
	return fmt.Sprintf("%q@%s", t.Literal, t.Pos)
}

// End returns the position just past the token.
func (t Token) End() Position {
	return Position{
		Offset: t.Pos.Offset + len(t.Literal),
		Line:   t.Pos.Line,
		Column: t.Pos.Column + len(t.Literal),
	}
}

// Line is one source line after lexing.
type Line struct {
	Number  int     // 1-based line number
	Text    string  // line content with surrounding whitespace removed
	Tokens  []Token // empty for blank and comment lines
	Comment bool    // first non-space character is '#'
}

// Blank reports whether the line holds no instruction.
func (l Line) Blank() bool {
	return len(l.Tokens) == 0
}
