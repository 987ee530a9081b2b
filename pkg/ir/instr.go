package ir

import (
	"fmt"
	"strings"
)

// Op identifies an instruction.
type Op uint8

const (
	OpAlloca Op = iota // Dst = new stack record
	OpTop              // Dst = stack.top
	OpSetTop           // stack.top = Args[1]
	OpLoad             // Dst = Args[0][Args[1]]
	OpStore            // Args[0][Args[1]] = Args[2]
	OpAdd              // Dst = Args[0] + Args[1], wrapping
	OpSub              // Dst = Args[0] - Args[1], wrapping
	OpICmp             // Dst = Pred(Args[0], Args[1])
	OpCall             // Dst... = Callee(Args...)
)

var opNames = map[Op]string{
	OpAlloca: "alloca",
	OpTop:    "gettop",
	OpSetTop: "settop",
	OpLoad:   "load",
	OpStore:  "store",
	OpAdd:    "add",
	OpSub:    "sub",
	OpICmp:   "icmp",
	OpCall:   "call",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Pred is an integer comparison predicate. All comparisons are unsigned.
type Pred uint8

const (
	Eq Pred = iota
	Ne
	Ult
	Uge
)

var predNames = [...]string{Eq: "eq", Ne: "ne", Ult: "ult", Uge: "uge"}

func (p Pred) String() string {
	if int(p) < len(predNames) {
		return predNames[p]
	}
	return fmt.Sprintf("Pred(%d)", uint8(p))
}

// Instr is a non-terminating instruction.
type Instr struct {
	Op     Op
	Dst    []*Reg
	Args   []Value
	Pred   Pred   // OpICmp only
	Callee string // OpCall only
}

func (in *Instr) String() string {
	var sb strings.Builder
	if len(in.Dst) > 0 {
		for i, d := range in.Dst {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.String())
		}
		sb.WriteString(" = ")
	}
	sb.WriteString(in.Op.String())

	switch in.Op {
	case OpAlloca:
		sb.WriteString(" %Stack")
	case OpICmp:
		fmt.Fprintf(&sb, " %s %s %s, %s", in.Pred, in.Args[0].Type(), in.Args[0], in.Args[1])
	case OpAdd, OpSub:
		fmt.Fprintf(&sb, " %s %s, %s", in.Args[0].Type(), in.Args[0], in.Args[1])
	case OpLoad:
		fmt.Fprintf(&sb, " i256, %s[%s]", typed(in.Args[0]), typed(in.Args[1]))
	case OpStore:
		fmt.Fprintf(&sb, " %s, %s[%s]", typed(in.Args[2]), typed(in.Args[0]), typed(in.Args[1]))
	case OpCall:
		results := make([]Type, len(in.Dst))
		for i, d := range in.Dst {
			results[i] = d.Typ
		}
		fmt.Fprintf(&sb, " %s @%s(%s)", formatTypes(results), in.Callee, joinTyped(in.Args))
	default:
		sb.WriteString(" " + joinTyped(in.Args))
	}
	return sb.String()
}

func joinTyped(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = typed(v)
	}
	return strings.Join(parts, ", ")
}

// TermKind identifies a block terminator.
type TermKind uint8

const (
	TermRet TermKind = iota
	TermBr
	TermCondBr
	TermUnreachable
)

// Terminator ends a basic block.
type Terminator struct {
	Kind   TermKind
	Values []Value // TermRet
	Cond   Value   // TermCondBr
	Then   *Block  // TermBr target, TermCondBr true target
	Else   *Block  // TermCondBr false target
}

func (t *Terminator) String() string {
	switch t.Kind {
	case TermRet:
		if len(t.Values) == 0 {
			return "ret void"
		}
		return "ret " + joinTyped(t.Values)
	case TermBr:
		return "br label %" + t.Then.Name
	case TermCondBr:
		return fmt.Sprintf("br %s, label %%%s, label %%%s", typed(t.Cond), t.Then.Name, t.Else.Name)
	case TermUnreachable:
		return "unreachable"
	}
	return fmt.Sprintf("TermKind(%d)", uint8(t.Kind))
}

// Successors returns the blocks control may transfer to.
func (t *Terminator) Successors() []*Block {
	switch t.Kind {
	case TermBr:
		return []*Block{t.Then}
	case TermCondBr:
		return []*Block{t.Then, t.Else}
	}
	return nil
}
