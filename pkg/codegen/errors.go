package codegen

import (
	"errors"
	"fmt"

	"github.com/chazu/stackc/pkg/bytecode"
)

// ErrNoStop is wrapped by the InternalError returned for a program that
// has no STOP instruction. Such a program would run off the end of the
// function.
var ErrNoStop = errors.New("program has no STOP instruction")

// InternalError reports bytecode the generator cannot lower. A conforming
// assembler never produces it.
type InternalError struct {
	Index int // instruction position, -1 for whole-program problems
	Inst  bytecode.Instruction
	Err   error
}

func (e *InternalError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("codegen internal error: %v", e.Err)
	}
	return fmt.Sprintf("codegen internal error at instruction %d (opcode 0x%02X): %v",
		e.Index, byte(e.Inst.Op), e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
