package ir

import "fmt"

// Builder appends instructions to the current block of a function.
// Emitting into a block that already has a terminator panics: that is a
// code generator bug, not an input error.
type Builder struct {
	fn    *Function
	block *Block
}

// NewBuilder creates a builder for fn with no current block.
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// Function returns the function being built.
func (b *Builder) Function() *Function { return b.fn }

// Block returns the current block.
func (b *Builder) Block() *Block { return b.block }

// SetBlock makes blk the current block.
func (b *Builder) SetBlock(blk *Block) {
	if blk.fn != b.fn {
		panic(fmt.Sprintf("ir: block %%%s belongs to another function", blk.Name))
	}
	b.block = blk
}

func (b *Builder) emit(in *Instr) {
	if b.block == nil {
		panic("ir: no current block")
	}
	if b.block.Terminated() {
		panic(fmt.Sprintf("ir: block %%%s is already terminated", b.block.Name))
	}
	b.block.Instrs = append(b.block.Instrs, in)
}

func (b *Builder) def(op Op, name string, t Type, args ...Value) *Reg {
	r := b.fn.newReg(name, t)
	b.emit(&Instr{Op: op, Dst: []*Reg{r}, Args: args})
	return r
}

// Alloca allocates a fresh stack record in the current activation.
func (b *Builder) Alloca(name string) *Reg {
	return b.def(OpAlloca, name, StackPtr)
}

// Top reads the cursor of a stack record.
func (b *Builder) Top(stack Value) *Reg {
	return b.def(OpTop, "", I32, stack)
}

// SetTop writes the cursor of a stack record.
func (b *Builder) SetTop(stack, top Value) {
	b.emit(&Instr{Op: OpSetTop, Args: []Value{stack, top}})
}

// Load reads the word at ptr[idx].
func (b *Builder) Load(ptr, idx Value) *Reg {
	return b.def(OpLoad, "", I256, ptr, idx)
}

// Store writes v to ptr[idx].
func (b *Builder) Store(ptr, idx, v Value) {
	b.emit(&Instr{Op: OpStore, Args: []Value{ptr, idx, v}})
}

// Add returns x + y wrapped to the width of x.
func (b *Builder) Add(x, y Value) *Reg {
	return b.def(OpAdd, "", x.Type(), x, y)
}

// Sub returns x - y wrapped to the width of x.
func (b *Builder) Sub(x, y Value) *Reg {
	return b.def(OpSub, "", x.Type(), x, y)
}

// ICmp compares x and y.
func (b *Builder) ICmp(p Pred, x, y Value) *Reg {
	r := b.fn.newReg("", I1)
	b.emit(&Instr{Op: OpICmp, Pred: p, Dst: []*Reg{r}, Args: []Value{x, y}})
	return r
}

// Call calls fn and returns one register per result.
func (b *Builder) Call(fn *Function, args ...Value) []*Reg {
	dst := make([]*Reg, len(fn.Results))
	for i, t := range fn.Results {
		dst[i] = b.fn.newReg("", t)
	}
	b.emit(&Instr{Op: OpCall, Callee: fn.Name, Dst: dst, Args: args})
	return dst
}

func (b *Builder) terminate(t *Terminator) {
	if b.block == nil {
		panic("ir: no current block")
	}
	if b.block.Terminated() {
		panic(fmt.Sprintf("ir: block %%%s is already terminated", b.block.Name))
	}
	b.block.Term = t
}

// Ret returns from the function.
func (b *Builder) Ret(vals ...Value) {
	b.terminate(&Terminator{Kind: TermRet, Values: vals})
}

// Br jumps to target.
func (b *Builder) Br(target *Block) {
	b.terminate(&Terminator{Kind: TermBr, Then: target})
}

// CondBr jumps to then when cond is true and to els otherwise.
func (b *Builder) CondBr(cond Value, then, els *Block) {
	b.terminate(&Terminator{Kind: TermCondBr, Cond: cond, Then: then, Else: els})
}

// Unreachable marks the end of a block control never reaches.
func (b *Builder) Unreachable() {
	b.terminate(&Terminator{Kind: TermUnreachable})
}
