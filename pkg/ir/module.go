package ir

import (
	"fmt"
	"strconv"
)

// Block is a basic block: straight-line instructions and one terminator.
type Block struct {
	Name   string
	Instrs []*Instr
	Term   *Terminator
	fn     *Function
}

// Terminated reports whether the block already has its terminator.
func (b *Block) Terminated() bool {
	return b.Term != nil
}

// Function returns the function that owns the block.
func (b *Block) Function() *Function {
	return b.fn
}

// Function is a named routine. The first block is the entry block.
type Function struct {
	Name    string
	Params  []*Reg
	Results []Type
	Blocks  []*Block

	nextReg    int
	blockNames map[string]int
}

// NewBlock appends a block. Names are made unique within the function by
// appending a counter.
func (f *Function) NewBlock(name string) *Block {
	if f.blockNames == nil {
		f.blockNames = make(map[string]int)
	}
	unique := name
	if n, seen := f.blockNames[name]; seen {
		unique = name + "." + strconv.Itoa(n)
		f.blockNames[name] = n + 1
	} else {
		f.blockNames[name] = 1
	}
	b := &Block{Name: unique, fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the entry block, or nil for an empty function.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Param returns the named parameter, or nil.
func (f *Function) Param(name string) *Reg {
	for _, p := range f.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Signature renders the parameter and result types.
func (f *Function) Signature() string {
	params := make([]Type, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Typ
	}
	s := "("
	for i, t := range params {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + ") -> " + formatTypes(f.Results)
}

func (f *Function) newReg(name string, t Type) *Reg {
	r := &Reg{ID: f.nextReg, Name: name, Typ: t}
	f.nextReg++
	return r
}

// NumRegs returns the number of registers allocated so far, parameters
// included. Register IDs are dense in [0, NumRegs).
func (f *Function) NumRegs() int {
	return f.nextReg
}

// Module is a translation unit.
type Module struct {
	Name string
	// StackCapacity is the slot count of the %Stack record type. Zero
	// means the module declares no stack type.
	StackCapacity int
	Functions     []*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewFunction adds a function with the given parameters and results.
// It panics if the name is taken.
func (m *Module) NewFunction(name string, params []Param, results ...Type) *Function {
	if m.Lookup(name) != nil {
		panic(fmt.Sprintf("ir: duplicate function @%s", name))
	}
	f := &Function{Name: name, Results: results}
	for _, p := range params {
		f.Params = append(f.Params, f.newReg(p.Name, p.Typ))
	}
	m.Functions = append(m.Functions, f)
	return f
}

// Lookup returns the named function, or nil.
func (m *Module) Lookup(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// InstrCount returns the number of instructions and terminators in the
// module.
func (m *Module) InstrCount() int {
	n := 0
	for _, f := range m.Functions {
		for _, b := range f.Blocks {
			n += len(b.Instrs)
			if b.Term != nil {
				n++
			}
		}
	}
	return n
}
