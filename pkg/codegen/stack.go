package codegen

import (
	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/pkg/ir"
)

// StackCapacity is the slot count of the generated stack record.
const StackCapacity = bytecode.StackCapacity

// Names of the generated stack subroutines.
const (
	PushName = "stack_push"
	PopName  = "stack_pop"
	PeekName = "stack_peek"
)

// StackOps holds the stack subroutines of a module.
//
//	stack_push(%Stack*, i256) -> i8          0, or 1 when full
//	stack_pop(%Stack*)        -> (i256, i8)  value and 0, or (0, 2) when empty
//	stack_peek(%Stack*)       -> (i256, i8)  like pop without moving top
//
// A failing call leaves the record unchanged.
type StackOps struct {
	Push *ir.Function
	Pop  *ir.Function
	Peek *ir.Function
}

// GenStack declares the %Stack record type in m and emits the three stack
// subroutines. Calling it again on the same module returns the existing
// subroutines.
func GenStack(m *ir.Module) *StackOps {
	if ops := lookupStack(m); ops != nil {
		return ops
	}
	m.StackCapacity = StackCapacity
	return &StackOps{
		Push: genPush(m),
		Pop:  genPop(m, PopName, true),
		Peek: genPop(m, PeekName, false),
	}
}

func lookupStack(m *ir.Module) *StackOps {
	push, pop, peek := m.Lookup(PushName), m.Lookup(PopName), m.Lookup(PeekName)
	if push == nil || pop == nil || peek == nil {
		return nil
	}
	return &StackOps{Push: push, Pop: pop, Peek: peek}
}

func genPush(m *ir.Module) *ir.Function {
	fn := m.NewFunction(PushName, []ir.Param{{Name: "stack", Typ: ir.StackPtr}, {Name: "value", Typ: ir.I256}}, ir.I8)
	stack, value := fn.Params[0], fn.Params[1]

	b := ir.NewBuilder(fn)
	entry := fn.NewBlock("entry")
	full := fn.NewBlock("full")
	store := fn.NewBlock("store")

	b.SetBlock(entry)
	top := b.Top(stack)
	isFull := b.ICmp(ir.Uge, top, ir.ConstInt(ir.I32, StackCapacity))
	b.CondBr(isFull, full, store)

	b.SetBlock(full)
	b.Ret(ir.ConstInt(ir.I8, uint64(bytecode.StatusOverflow)))

	b.SetBlock(store)
	b.Store(stack, top, value)
	b.SetTop(stack, b.Add(top, ir.ConstInt(ir.I32, 1)))
	b.Ret(ir.ConstInt(ir.I8, uint64(bytecode.StatusOK)))
	return fn
}

// genPop emits pop, or peek when consume is false.
func genPop(m *ir.Module, name string, consume bool) *ir.Function {
	fn := m.NewFunction(name, []ir.Param{{Name: "stack", Typ: ir.StackPtr}}, ir.I256, ir.I8)
	stack := fn.Params[0]

	b := ir.NewBuilder(fn)
	entry := fn.NewBlock("entry")
	empty := fn.NewBlock("empty")
	load := fn.NewBlock("load")

	b.SetBlock(entry)
	top := b.Top(stack)
	isEmpty := b.ICmp(ir.Eq, top, ir.ConstInt(ir.I32, 0))
	b.CondBr(isEmpty, empty, load)

	b.SetBlock(empty)
	b.Ret(ir.ConstInt(ir.I256, 0), ir.ConstInt(ir.I8, uint64(bytecode.StatusUnderflow)))

	b.SetBlock(load)
	idx := b.Sub(top, ir.ConstInt(ir.I32, 1))
	if consume {
		b.SetTop(stack, idx)
	}
	v := b.Load(stack, idx)
	b.Ret(v, ir.ConstInt(ir.I8, uint64(bytecode.StatusOK)))
	return fn
}
