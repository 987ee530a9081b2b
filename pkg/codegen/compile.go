package codegen

import (
	"fmt"

	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/pkg/ir"
)

// EntryName is the name of the compiled function in the module.
const EntryName = "function"

// ModuleName is the name given to compiled modules.
const ModuleName = "stack_machine"

// Compile lowers a program into a translation unit holding the stack
// subroutines and
//
//	function(i256* in, i256* out) -> i8
//
// Instructions run in order. STOP returns 0; every stack call is followed
// by a status check that returns 1 (push) or 2 (pop, peek) on failure.
// Code after a STOP is still emitted, in blocks nothing branches to.
func Compile(prog bytecode.Program) (*ir.Module, error) {
	if prog.CountOp(bytecode.OpStop) == 0 {
		return nil, &InternalError{Index: -1, Err: ErrNoStop}
	}

	m := ir.NewModule(ModuleName)
	c := &compiler{ops: GenStack(m)}
	c.fn = m.NewFunction(EntryName, []ir.Param{{Name: "in", Typ: ir.WordPtr}, {Name: "out", Typ: ir.WordPtr}}, ir.I8)
	c.in, c.out = c.fn.Params[0], c.fn.Params[1]
	c.b = ir.NewBuilder(c.fn)
	c.b.SetBlock(c.fn.NewBlock("entry"))
	c.stack = c.b.Alloca("stack")

	for i, inst := range prog {
		if err := c.instruction(inst); err != nil {
			return nil, &InternalError{Index: i, Inst: inst, Err: err}
		}
	}

	// The last block follows a STOP; nothing reaches its end.
	c.b.Unreachable()
	return m, nil
}

type compiler struct {
	ops   *StackOps
	fn    *ir.Function
	b     *ir.Builder
	in    *ir.Reg
	out   *ir.Reg
	stack *ir.Reg

	// Shared fault exits, created on first use.
	overflow  *ir.Block
	underflow *ir.Block
}

func (c *compiler) instruction(inst bytecode.Instruction) error {
	switch inst.Op {
	case bytecode.OpStop:
		c.b.Ret(ir.ConstInt(ir.I8, uint64(bytecode.StatusOK)))
		c.b.SetBlock(c.fn.NewBlock("dead"))

	case bytecode.OpLoad:
		v := c.b.Load(c.in, index(inst))
		c.push(v)

	case bytecode.OpStore:
		v := c.peek()
		c.b.Store(c.out, index(inst), v)

	case bytecode.OpPop:
		c.pop()

	case bytecode.OpAdd:
		v2 := c.pop()
		v1 := c.pop()
		c.push(c.b.Add(v1, v2))

	case bytecode.OpSub:
		v2 := c.pop()
		v1 := c.pop()
		c.push(c.b.Sub(v1, v2))

	case bytecode.OpDup:
		v := c.peek()
		c.push(v)

	default:
		return fmt.Errorf("unknown opcode 0x%02X", byte(inst.Op))
	}
	return nil
}

func index(inst bytecode.Instruction) ir.Value {
	return ir.ConstInt(ir.I32, uint64(inst.Operand))
}

func (c *compiler) push(v ir.Value) {
	res := c.b.Call(c.ops.Push, c.stack, v)
	c.check(res[0], bytecode.StatusOverflow)
}

func (c *compiler) pop() ir.Value {
	res := c.b.Call(c.ops.Pop, c.stack)
	c.check(res[1], bytecode.StatusUnderflow)
	return res[0]
}

func (c *compiler) peek() ir.Value {
	res := c.b.Call(c.ops.Peek, c.stack)
	c.check(res[1], bytecode.StatusUnderflow)
	return res[0]
}

// check branches to the fault exit when status is non-zero and continues
// in a fresh block otherwise.
func (c *compiler) check(status ir.Value, fault bytecode.Status) {
	failed := c.b.ICmp(ir.Ne, status, ir.ConstInt(ir.I8, 0))
	cont := c.fn.NewBlock("ok")
	c.b.CondBr(failed, c.faultBlock(fault), cont)
	c.b.SetBlock(cont)
}

func (c *compiler) faultBlock(fault bytecode.Status) *ir.Block {
	slot := &c.underflow
	name := "underflow"
	if fault == bytecode.StatusOverflow {
		slot = &c.overflow
		name = "overflow"
	}
	if *slot == nil {
		blk := c.fn.NewBlock(name)
		cur := c.b.Block()
		c.b.SetBlock(blk)
		c.b.Ret(ir.ConstInt(ir.I8, uint64(fault)))
		c.b.SetBlock(cur)
		*slot = blk
	}
	return *slot
}
