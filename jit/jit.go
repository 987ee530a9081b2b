// Package jit lowers an ir.Module into Go closures that can be called
// directly. Each IR block becomes a slice of pre-bound steps plus a
// terminator closure; registers and constants live in a per-call frame,
// so a lowered function is safe to call from many goroutines at once.
package jit

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/tliron/commonlog"

	"github.com/chazu/stackc/pkg/ir"
	"github.com/chazu/stackc/pkg/word"
)

var log = commonlog.GetLogger("stackc.jit")

var (
	// ErrNoFunction is returned by Lookup for a name the module does not
	// define.
	ErrNoFunction = errors.New("no such function")

	// ErrSignature is returned by Lookup for a function whose signature is
	// not (i256*, i256*) -> i8.
	ErrSignature = errors.New("function is not callable as (i256*, i256*) -> i8")
)

// Entry is the native call boundary: two word buffers in, status byte out.
type Entry func(in, out *word.Buffer) uint8

// Trap is the panic value raised when lowered code reaches an unreachable
// block or addresses memory outside its region.
type Trap struct {
	Function string
	Block    string
	Msg      string
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap in @%s/%%%s: %s", t.Function, t.Block, t.Msg)
}

// Engine holds the lowered functions of one module.
type Engine struct {
	module *ir.Module
	funcs  map[string]*function
}

// Lower verifies m and lowers every function in it.
func Lower(m *ir.Module) (*Engine, error) {
	if err := ir.Verify(m); err != nil {
		return nil, err
	}

	e := &Engine{
		module: m,
		funcs:  make(map[string]*function, len(m.Functions)),
	}
	// Allocate first so that calls can bind to functions lowered later.
	for _, f := range m.Functions {
		e.funcs[f.Name] = &function{name: f.Name, src: f}
	}
	for _, f := range m.Functions {
		e.lowerFunction(e.funcs[f.Name])
	}

	log.Debugf("lowered module %s: %d functions, %d instructions", m.Name, len(m.Functions), m.InstrCount())
	return e, nil
}

// Module returns the module the engine was lowered from.
func (e *Engine) Module() *ir.Module {
	return e.module
}

// Lookup resolves a function with the entry signature.
func (e *Engine) Lookup(name string) (Entry, error) {
	fn, ok := e.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: @%s", ErrNoFunction, name)
	}
	if !isEntry(fn.src) {
		return nil, fmt.Errorf("%w: @%s is %s", ErrSignature, name, fn.src.Signature())
	}
	return func(in, out *word.Buffer) uint8 {
		ret := fn.call([]slot{{buf: in}, {buf: out}})
		return uint8(ret[0].w.Uint64())
	}, nil
}

func isEntry(f *ir.Function) bool {
	return len(f.Params) == 2 &&
		f.Params[0].Typ == ir.WordPtr &&
		f.Params[1].Typ == ir.WordPtr &&
		len(f.Results) == 1 &&
		f.Results[0] == ir.I8
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// slot holds one register or constant. Which field is live depends on the
// register type.
type slot struct {
	w     uint256.Int
	stack *stackRecord
	buf   *word.Buffer
}

// stackRecord is the %Stack type: a fixed arena and a cursor.
type stackRecord struct {
	data []uint256.Int
	top  uint64
}

type step func(f []slot)

// terminator returns the next block, or nil and the returned values.
type terminator func(f []slot) (*block, []slot)

type block struct {
	name  string
	steps []step
	term  terminator
}

type constSlot struct {
	idx int
	w   uint256.Int
}

type function struct {
	name   string
	src    *ir.Function
	nslots int
	consts []constSlot
	params []int
	entry  *block
}

// call runs the function in a fresh frame.
func (fn *function) call(args []slot) []slot {
	f := make([]slot, fn.nslots)
	for _, c := range fn.consts {
		f[c.idx].w = c.w
	}
	for i, p := range fn.params {
		f[p] = args[i]
	}

	b := fn.entry
	for {
		for _, s := range b.steps {
			s(f)
		}
		next, ret := b.term(f)
		if next == nil {
			return ret
		}
		b = next
	}
}
