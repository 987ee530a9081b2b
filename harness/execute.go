// Package harness runs translation units against word arrays: it encodes
// the arrays into native buffers, lowers the unit, calls the entry point
// and decodes both buffers back.
package harness

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/stackc/compiler"
	"github.com/chazu/stackc/jit"
	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/pkg/codegen"
	"github.com/chazu/stackc/pkg/ir"
	"github.com/chazu/stackc/pkg/word"
)

var log = commonlog.GetLogger("stackc.harness")

// ErrTrap is wrapped by errors from code that stopped without returning a
// status: an unreachable block or an out-of-range access.
var ErrTrap = errors.New("runtime trap")

// Result is the outcome of one execution. Stack faults are reported in
// Status, not as errors.
type Result struct {
	Status bytecode.Status
	In     word.Array
	Out    word.Array

	// Set by Pipeline.
	RunID  uuid.UUID
	Cached bool
}

// Execute runs the entry function of unit with copies of in and out and
// returns the status together with both arrays as found after the call.
func Execute(in, out word.Array, unit *ir.Module) (*Result, error) {
	engine, err := jit.Lower(unit)
	if err != nil {
		return nil, fmt.Errorf("lowering translation unit: %w", err)
	}
	fn, err := engine.Lookup(codegen.EntryName)
	if err != nil {
		return nil, fmt.Errorf("resolving entry point: %w", err)
	}

	inBuf, outBuf := in.Encode(), out.Encode()
	status, err := invoke(fn, inBuf, outBuf)
	if err != nil {
		return nil, err
	}
	if status > uint8(bytecode.StatusUnderflow) {
		return nil, fmt.Errorf("entry point returned undefined status %d", status)
	}

	log.Debugf("executed %s: status %d", unit.Name, status)
	return &Result{
		Status: bytecode.Status(status),
		In:     inBuf.Decode(),
		Out:    outBuf.Decode(),
	}, nil
}

// invoke calls fn, turning a trap into an error.
func invoke(fn jit.Entry, in, out *word.Buffer) (status uint8, err error) {
	defer func() {
		if r := recover(); r != nil {
			if trap, ok := r.(*jit.Trap); ok {
				err = fmt.Errorf("%w: %w", ErrTrap, trap)
				return
			}
			err = fmt.Errorf("%w: %v", ErrTrap, r)
		}
	}()
	return fn(in, out), nil
}

// Run assembles, compiles and executes source in one step.
func Run(source string, in, out word.Array) (*Result, error) {
	prog, err := compiler.Assemble(source)
	if err != nil {
		return nil, err
	}
	unit, err := codegen.Compile(prog)
	if err != nil {
		return nil, err
	}
	return Execute(in, out, unit)
}
