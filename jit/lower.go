package jit

import (
	"github.com/holiman/uint256"

	"github.com/chazu/stackc/pkg/ir"
	"github.com/chazu/stackc/pkg/word"
)

// lowerer compiles one function. Register IDs index the frame directly;
// constants get slots after the registers.
type lowerer struct {
	e      *Engine
	fn     *function
	blocks map[*ir.Block]*block
	cur    string
}

func (e *Engine) lowerFunction(fn *function) {
	src := fn.src
	l := &lowerer{
		e:      e,
		fn:     fn,
		blocks: make(map[*ir.Block]*block, len(src.Blocks)),
	}
	fn.nslots = src.NumRegs()
	for _, p := range src.Params {
		fn.params = append(fn.params, p.ID)
	}
	for _, b := range src.Blocks {
		l.blocks[b] = &block{name: b.Name}
	}
	for _, b := range src.Blocks {
		l.cur = b.Name
		blk := l.blocks[b]
		for _, in := range b.Instrs {
			blk.steps = append(blk.steps, l.instr(in))
		}
		blk.term = l.term(b.Term)
	}
	fn.entry = l.blocks[src.Entry()]
}

// operand returns the frame index of a value.
func (l *lowerer) operand(v ir.Value) int {
	switch x := v.(type) {
	case *ir.Reg:
		return x.ID
	case *ir.Const:
		idx := l.fn.nslots
		l.fn.nslots++
		l.fn.consts = append(l.fn.consts, constSlot{idx: idx, w: x.Val})
		return idx
	}
	panic("jit: unsupported operand")
}

func (l *lowerer) instr(in *ir.Instr) step {
	fnName, blockName := l.fn.name, l.cur
	trap := func(msg string) {
		panic(&Trap{Function: fnName, Block: blockName, Msg: msg})
	}

	switch in.Op {
	case ir.OpAlloca:
		dst := in.Dst[0].ID
		capacity := l.e.module.StackCapacity
		return func(f []slot) {
			f[dst].stack = &stackRecord{data: make([]uint256.Int, capacity)}
		}

	case ir.OpTop:
		dst, s := in.Dst[0].ID, l.operand(in.Args[0])
		return func(f []slot) {
			f[dst].w.SetUint64(f[s].stack.top)
		}

	case ir.OpSetTop:
		s, v := l.operand(in.Args[0]), l.operand(in.Args[1])
		return func(f []slot) {
			st := f[s].stack
			top := &f[v].w
			if !top.IsUint64() || top.Uint64() > uint64(len(st.data)) {
				trap("stack cursor " + top.Dec() + " out of range")
			}
			st.top = top.Uint64()
		}

	case ir.OpLoad:
		dst, p, i := in.Dst[0].ID, l.operand(in.Args[0]), l.operand(in.Args[1])
		if in.Args[0].Type() == ir.StackPtr {
			return func(f []slot) {
				st := f[p].stack
				idx := checkIndex(&f[i].w, len(st.data), trap)
				f[dst].w = st.data[idx]
			}
		}
		return func(f []slot) {
			idx := checkIndex(&f[i].w, word.ArrayCapacity, trap)
			f[dst].w = f[p].buf.Word(idx)
		}

	case ir.OpStore:
		p, i, v := l.operand(in.Args[0]), l.operand(in.Args[1]), l.operand(in.Args[2])
		if in.Args[0].Type() == ir.StackPtr {
			return func(f []slot) {
				st := f[p].stack
				idx := checkIndex(&f[i].w, len(st.data), trap)
				st.data[idx] = f[v].w
			}
		}
		return func(f []slot) {
			idx := checkIndex(&f[i].w, word.ArrayCapacity, trap)
			f[p].buf.SetWord(idx, &f[v].w)
		}

	case ir.OpAdd, ir.OpSub:
		dst, x, y := in.Dst[0].ID, l.operand(in.Args[0]), l.operand(in.Args[1])
		sub := in.Op == ir.OpSub
		t := in.Args[0].Type()
		mask := ir.Mask(t)
		narrow := t != ir.I256
		return func(f []slot) {
			if sub {
				f[dst].w.Sub(&f[x].w, &f[y].w)
			} else {
				f[dst].w.Add(&f[x].w, &f[y].w)
			}
			if narrow {
				f[dst].w.And(&f[dst].w, &mask)
			}
		}

	case ir.OpICmp:
		dst, x, y := in.Dst[0].ID, l.operand(in.Args[0]), l.operand(in.Args[1])
		var test func(a, b *uint256.Int) bool
		switch in.Pred {
		case ir.Eq:
			test = func(a, b *uint256.Int) bool { return a.Eq(b) }
		case ir.Ne:
			test = func(a, b *uint256.Int) bool { return !a.Eq(b) }
		case ir.Ult:
			test = func(a, b *uint256.Int) bool { return a.Lt(b) }
		default:
			test = func(a, b *uint256.Int) bool { return !a.Lt(b) }
		}
		return func(f []slot) {
			if test(&f[x].w, &f[y].w) {
				f[dst].w.SetOne()
			} else {
				f[dst].w.Clear()
			}
		}

	case ir.OpCall:
		callee := l.e.funcs[in.Callee]
		args := make([]int, len(in.Args))
		for i, a := range in.Args {
			args[i] = l.operand(a)
		}
		dsts := make([]int, len(in.Dst))
		for i, d := range in.Dst {
			dsts[i] = d.ID
		}
		return func(f []slot) {
			vals := make([]slot, len(args))
			for i, a := range args {
				vals[i] = f[a]
			}
			ret := callee.call(vals)
			for i, d := range dsts {
				f[d] = ret[i]
			}
		}
	}
	panic("jit: unknown instruction " + in.Op.String())
}

func (l *lowerer) term(t *ir.Terminator) terminator {
	switch t.Kind {
	case ir.TermRet:
		vals := make([]int, len(t.Values))
		for i, v := range t.Values {
			vals[i] = l.operand(v)
		}
		return func(f []slot) (*block, []slot) {
			ret := make([]slot, len(vals))
			for i, v := range vals {
				ret[i] = f[v]
			}
			return nil, ret
		}

	case ir.TermBr:
		target := l.blocks[t.Then]
		return func(f []slot) (*block, []slot) {
			return target, nil
		}

	case ir.TermCondBr:
		c := l.operand(t.Cond)
		then, els := l.blocks[t.Then], l.blocks[t.Else]
		return func(f []slot) (*block, []slot) {
			if f[c].w.IsZero() {
				return els, nil
			}
			return then, nil
		}
	}

	fnName, blockName := l.fn.name, l.cur
	return func(f []slot) (*block, []slot) {
		panic(&Trap{Function: fnName, Block: blockName, Msg: "reached unreachable"})
	}
}

func checkIndex(idx *uint256.Int, limit int, trap func(string)) int {
	if !idx.IsUint64() || idx.Uint64() >= uint64(limit) {
		trap("index " + idx.Dec() + " out of range")
	}
	return int(idx.Uint64())
}
