package compiler

import (
	"errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/pkg/word"
)

// stopMnemonic is counted as a raw substring of the source, so comments
// and identifiers containing it count too.
const stopMnemonic = "STOP"

// msgStopCount is reported when the source does not hold exactly one STOP.
const msgStopCount = "There must be exactly one STOP command"

// ---------------------------------------------------------------------------
// Assembler: text assembly to bytecode
// ---------------------------------------------------------------------------

// Assembler turns line-oriented assembly into a bytecode program.
// It keeps going after an error so that every problem in the source is
// reported by Errors.
type Assembler struct {
	source string
	lexer  *Lexer
	errors []*ParseError
}

// NewAssembler creates an assembler for the given source.
func NewAssembler(source string) *Assembler {
	return &Assembler{
		source: source,
		lexer:  NewLexer(source),
	}
}

// Errors returns the errors found by the last call to Assemble, in the
// order Assemble reports them.
func (a *Assembler) Errors() []*ParseError {
	return a.errors
}

// Assemble converts the whole source. The program is nil when any error
// was found.
func (a *Assembler) Assemble() bytecode.Program {
	a.errors = nil
	a.checkStopCount()

	var prog bytecode.Program
	for {
		ln, ok := a.lexer.Next()
		if !ok {
			break
		}
		if ln.Blank() {
			continue
		}
		if inst, ok := a.assembleLine(ln); ok {
			prog = append(prog, inst)
		}
	}

	if len(a.errors) > 0 {
		return nil
	}
	if prog == nil {
		prog = bytecode.Program{}
	}
	return prog
}

// checkStopCount enforces the single STOP rule on the raw source text.
func (a *Assembler) checkStopCount() {
	n := strings.Count(a.source, stopMnemonic)
	if n == 1 {
		return
	}
	tok := Token{Literal: stopMnemonic}
	if n > 1 {
		// Point at the second occurrence.
		first := strings.Index(a.source, stopMnemonic)
		second := first + len(stopMnemonic) + strings.Index(a.source[first+len(stopMnemonic):], stopMnemonic)
		tok.Pos = positionOf(a.source, second)
	}
	a.errorf(tok, msgStopCount)
}

func (a *Assembler) assembleLine(ln Line) (bytecode.Instruction, bool) {
	head := ln.Tokens[0]
	cmd := strings.ToUpper(head.Literal)
	op, ok := bytecode.LookupMnemonic(cmd)
	if !ok {
		a.errorf(head, "Unknown command '%s' on line %d", cmd, ln.Number)
		return bytecode.Instruction{}, false
	}

	if !op.HasOperand() {
		if len(ln.Tokens) != 1 {
			a.errorf(ln.Tokens[1], "Command '%s' on line %d does not take an argument", cmd, ln.Number)
			return bytecode.Instruction{}, false
		}
		return bytecode.Inst(op), true
	}

	if len(ln.Tokens) != 2 {
		tok := head
		if len(ln.Tokens) > 2 {
			tok = ln.Tokens[2]
		}
		a.errorf(tok, "Command '%s' on line %d requires an argument", cmd, ln.Number)
		return bytecode.Instruction{}, false
	}

	arg := ln.Tokens[1]
	index, ok := a.parseOperand(arg, cmd, ln.Number)
	if !ok {
		return bytecode.Instruction{}, false
	}
	return bytecode.InstArg(op, index), true
}

// parseOperand reads a decimal array index in [0, ArrayCapacity). Digits
// may be grouped with single underscores.
func (a *Assembler) parseOperand(arg Token, cmd string, line int) (uint8, bool) {
	digits, ok := word.StripDigitGroups(arg.Literal)
	if !ok {
		a.errorf(arg, "Invalid argument '%s' for command '%s' on line %d", arg.Literal, cmd, line)
		return 0, false
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			// Too large for int64 but still an integer; report its value.
			n, _ := new(big.Int).SetString(strings.TrimPrefix(digits, "+"), 10)
			a.errorf(arg, "Argument %s on line %d must be between 0 and %d", n.String(), line, word.ArrayCapacity-1)
			return 0, false
		}
		a.errorf(arg, "Invalid argument '%s' for command '%s' on line %d", arg.Literal, cmd, line)
		return 0, false
	}
	if v < 0 || v >= word.ArrayCapacity {
		a.errorf(arg, "Argument %d on line %d must be between 0 and %d", v, line, word.ArrayCapacity-1)
		return 0, false
	}
	return uint8(v), true
}

// positionOf converts a byte offset into a line/column position using the
// same line breaks as the lexer.
func positionOf(source string, offset int) Position {
	pos := Position{Offset: offset, Line: 1, Column: 1}
	for i := 0; i < offset; i++ {
		switch source[i] {
		case '\r':
			if i+1 < len(source) && source[i+1] == '\n' {
				continue
			}
			pos.Line++
			pos.Column = 1
		case '\n':
			pos.Line++
			pos.Column = 1
		default:
			pos.Column++
		}
	}
	return pos
}

// ---------------------------------------------------------------------------
// Convenience entry points
// ---------------------------------------------------------------------------

// Assemble converts assembly source into bytecode. On failure the error is
// the first *ParseError found.
func Assemble(source string) (bytecode.Program, error) {
	a := NewAssembler(source)
	prog := a.Assemble()
	if errs := a.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return prog, nil
}

// MustAssemble is like Assemble but panics on error. Intended for tests
// and fixed program text.
func MustAssemble(source string) bytecode.Program {
	prog, err := Assemble(source)
	if err != nil {
		panic(err)
	}
	return prog
}

// Diagnose returns every problem in the source, in source order with the
// STOP rule first.
func Diagnose(source string) []*ParseError {
	a := NewAssembler(source)
	a.Assemble()
	return a.Errors()
}
