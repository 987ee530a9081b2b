package ir

import (
	"fmt"

	"github.com/chazu/stackc/pkg/word"
)

// VerifyError reports a malformed module.
type VerifyError struct {
	Function string
	Block    string
	Msg      string
}

func (e *VerifyError) Error() string {
	switch {
	case e.Function == "":
		return "ir: " + e.Msg
	case e.Block == "":
		return fmt.Sprintf("ir: @%s: %s", e.Function, e.Msg)
	}
	return fmt.Sprintf("ir: @%s/%%%s: %s", e.Function, e.Block, e.Msg)
}

// Verify checks that a module is well formed: every block is terminated
// and branches stay inside the function, registers are defined exactly
// once and every use has a definition, operand types match,
// calls name an existing function with a matching signature, and constant
// indices are inside the addressed region. It returns the first problem
// found.
//
// Definitions are checked for existence, not dominance.
func Verify(m *Module) error {
	if m == nil {
		return &VerifyError{Msg: "nil module"}
	}
	seen := make(map[string]bool)
	for _, f := range m.Functions {
		if seen[f.Name] {
			return &VerifyError{Function: f.Name, Msg: "duplicate function"}
		}
		seen[f.Name] = true
	}
	for _, f := range m.Functions {
		v := &verifier{m: m, f: f}
		if err := v.function(); err != nil {
			return err
		}
	}
	return nil
}

type verifier struct {
	m       *Module
	f       *Function
	block   string
	defined map[*Reg]bool
}

func (v *verifier) errorf(format string, args ...interface{}) error {
	return &VerifyError{Function: v.f.Name, Block: v.block, Msg: fmt.Sprintf(format, args...)}
}

func (v *verifier) function() error {
	f := v.f
	if len(f.Blocks) == 0 {
		return v.errorf("function has no blocks")
	}

	v.defined = make(map[*Reg]bool)
	for _, p := range f.Params {
		if p.Typ == Void {
			return v.errorf("parameter %s has type void", p)
		}
		v.defined[p] = true
	}

	blocks := make(map[*Block]bool)
	names := make(map[string]bool)
	for _, b := range f.Blocks {
		if names[b.Name] {
			return v.errorf("duplicate block %%%s", b.Name)
		}
		names[b.Name] = true
		blocks[b] = true
	}

	// Collect definitions first so that a use in an earlier block of a
	// later definition is accepted; uniqueness is enforced here.
	for _, b := range f.Blocks {
		v.block = b.Name
		for _, in := range b.Instrs {
			for _, d := range in.Dst {
				if v.defined[d] {
					return v.errorf("register %s defined twice", d)
				}
				v.defined[d] = true
			}
		}
	}

	for _, b := range f.Blocks {
		v.block = b.Name
		for _, in := range b.Instrs {
			if err := v.instr(in); err != nil {
				return err
			}
		}
		if b.Term == nil {
			return v.errorf("block has no terminator")
		}
		if err := v.term(b.Term, blocks); err != nil {
			return err
		}
	}
	v.block = ""
	return nil
}

func (v *verifier) use(val Value) error {
	switch x := val.(type) {
	case nil:
		return v.errorf("missing operand")
	case *Reg:
		if !v.defined[x] {
			return v.errorf("use of undefined register %s", x)
		}
	case *Const:
		if !x.Typ.IsInt() {
			return v.errorf("constant of non-integer type %s", x.Typ)
		}
		if x.Val.Gt(mask(x.Typ)) {
			return v.errorf("constant %s does not fit %s", x.Val.Dec(), x.Typ)
		}
	}
	return nil
}

func (v *verifier) uses(vals ...Value) error {
	for _, val := range vals {
		if err := v.use(val); err != nil {
			return err
		}
	}
	return nil
}

func (v *verifier) arity(in *Instr, args, dst int) error {
	if len(in.Args) != args {
		return v.errorf("%s takes %d operands, got %d", in.Op, args, len(in.Args))
	}
	if len(in.Dst) != dst {
		return v.errorf("%s defines %d registers, got %d", in.Op, dst, len(in.Dst))
	}
	return nil
}

func (v *verifier) expect(val Value, t Type, what string) error {
	if val.Type() != t {
		return v.errorf("%s: %s has type %s, want %s", what, val, val.Type(), t)
	}
	return nil
}

func (v *verifier) instr(in *Instr) error {
	switch in.Op {
	case OpAlloca:
		if err := v.arity(in, 0, 1); err != nil {
			return err
		}
		if v.m.StackCapacity <= 0 {
			return v.errorf("alloca in a module without a stack type")
		}
		return v.expect(in.Dst[0], StackPtr, "alloca")

	case OpTop:
		if err := v.arity(in, 1, 1); err != nil {
			return err
		}
		if err := v.uses(in.Args...); err != nil {
			return err
		}
		if err := v.expect(in.Args[0], StackPtr, "gettop"); err != nil {
			return err
		}
		return v.expect(in.Dst[0], I32, "gettop")

	case OpSetTop:
		if err := v.arity(in, 2, 0); err != nil {
			return err
		}
		if err := v.uses(in.Args...); err != nil {
			return err
		}
		if err := v.expect(in.Args[0], StackPtr, "settop"); err != nil {
			return err
		}
		if err := v.expect(in.Args[1], I32, "settop"); err != nil {
			return err
		}
		return v.topBound(in.Args[1])

	case OpLoad:
		if err := v.arity(in, 2, 1); err != nil {
			return err
		}
		if err := v.uses(in.Args...); err != nil {
			return err
		}
		if err := v.address(in.Args[0], in.Args[1]); err != nil {
			return err
		}
		return v.expect(in.Dst[0], I256, "load")

	case OpStore:
		if err := v.arity(in, 3, 0); err != nil {
			return err
		}
		if err := v.uses(in.Args...); err != nil {
			return err
		}
		if err := v.address(in.Args[0], in.Args[1]); err != nil {
			return err
		}
		return v.expect(in.Args[2], I256, "store")

	case OpAdd, OpSub:
		if err := v.arity(in, 2, 1); err != nil {
			return err
		}
		if err := v.uses(in.Args...); err != nil {
			return err
		}
		t := in.Args[0].Type()
		if t != I8 && t != I32 && t != I256 {
			return v.errorf("%s on type %s", in.Op, t)
		}
		if err := v.expect(in.Args[1], t, in.Op.String()); err != nil {
			return err
		}
		return v.expect(in.Dst[0], t, in.Op.String())

	case OpICmp:
		if err := v.arity(in, 2, 1); err != nil {
			return err
		}
		if err := v.uses(in.Args...); err != nil {
			return err
		}
		t := in.Args[0].Type()
		if !t.IsInt() {
			return v.errorf("icmp on type %s", t)
		}
		if t == I1 && in.Pred != Eq && in.Pred != Ne {
			return v.errorf("icmp %s on i1", in.Pred)
		}
		if in.Pred > Uge {
			return v.errorf("unknown predicate %s", in.Pred)
		}
		if err := v.expect(in.Args[1], t, "icmp"); err != nil {
			return err
		}
		return v.expect(in.Dst[0], I1, "icmp")

	case OpCall:
		callee := v.m.Lookup(in.Callee)
		if callee == nil {
			return v.errorf("call to undefined function @%s", in.Callee)
		}
		if err := v.arity(in, len(callee.Params), len(callee.Results)); err != nil {
			return err
		}
		if err := v.uses(in.Args...); err != nil {
			return err
		}
		for i, p := range callee.Params {
			if err := v.expect(in.Args[i], p.Typ, "call @"+in.Callee); err != nil {
				return err
			}
		}
		for i, t := range callee.Results {
			if err := v.expect(in.Dst[i], t, "call @"+in.Callee); err != nil {
				return err
			}
		}
		return nil
	}
	return v.errorf("unknown instruction %s", in.Op)
}

// address checks a pointer/index pair.
func (v *verifier) address(ptr, idx Value) error {
	if err := v.expect(idx, I32, "index"); err != nil {
		return err
	}
	var limit int
	switch ptr.Type() {
	case WordPtr:
		limit = word.ArrayCapacity
	case StackPtr:
		limit = v.m.StackCapacity
	default:
		return v.errorf("address through non-pointer %s", typed(ptr))
	}
	if c, ok := idx.(*Const); ok && c.Uint64() >= uint64(limit) {
		return v.errorf("constant index %d out of range [0, %d)", c.Uint64(), limit)
	}
	return nil
}

func (v *verifier) topBound(top Value) error {
	if c, ok := top.(*Const); ok && c.Uint64() > uint64(v.m.StackCapacity) {
		return v.errorf("constant top %d exceeds capacity %d", c.Uint64(), v.m.StackCapacity)
	}
	return nil
}

func (v *verifier) term(t *Terminator, blocks map[*Block]bool) error {
	switch t.Kind {
	case TermRet:
		if len(t.Values) != len(v.f.Results) {
			return v.errorf("ret with %d values, function returns %d", len(t.Values), len(v.f.Results))
		}
		if err := v.uses(t.Values...); err != nil {
			return err
		}
		for i, want := range v.f.Results {
			if err := v.expect(t.Values[i], want, "ret"); err != nil {
				return err
			}
		}
		return nil

	case TermBr:
		if t.Then == nil || !blocks[t.Then] {
			return v.errorf("branch to a block outside the function")
		}
		return nil

	case TermCondBr:
		if err := v.uses(t.Cond); err != nil {
			return err
		}
		if err := v.expect(t.Cond, I1, "br"); err != nil {
			return err
		}
		if t.Then == nil || !blocks[t.Then] || t.Else == nil || !blocks[t.Else] {
			return v.errorf("branch to a block outside the function")
		}
		return nil

	case TermUnreachable:
		return nil
	}
	return v.errorf("unknown terminator kind %d", t.Kind)
}
