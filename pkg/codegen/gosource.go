package codegen

import (
	"fmt"
	"go/token"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/chazu/stackc/pkg/ir"
	"github.com/chazu/stackc/pkg/word"
)

// goPrelude is the runtime support every generated file carries. Words
// are four little-endian uint64 limbs; buffers hold big-endian words.
const goPrelude = `
type word [4]uint64

type stackRecord struct {
	data [stackCapacity]word
	top  uint32
}

func loadWord(buf *[bufferSize]byte, i uint32) word {
	b := buf[i*32 : i*32+32]
	return word{
		binary.BigEndian.Uint64(b[24:32]),
		binary.BigEndian.Uint64(b[16:24]),
		binary.BigEndian.Uint64(b[8:16]),
		binary.BigEndian.Uint64(b[0:8]),
	}
}

func storeWord(buf *[bufferSize]byte, i uint32, w word) {
	b := buf[i*32 : i*32+32]
	binary.BigEndian.PutUint64(b[0:8], w[3])
	binary.BigEndian.PutUint64(b[8:16], w[2])
	binary.BigEndian.PutUint64(b[16:24], w[1])
	binary.BigEndian.PutUint64(b[24:32], w[0])
}

func addWord(x, y word) word {
	var z word
	var c uint64
	z[0], c = bits.Add64(x[0], y[0], 0)
	z[1], c = bits.Add64(x[1], y[1], c)
	z[2], c = bits.Add64(x[2], y[2], c)
	z[3], _ = bits.Add64(x[3], y[3], c)
	return z
}

func subWord(x, y word) word {
	var z word
	var b uint64
	z[0], b = bits.Sub64(x[0], y[0], 0)
	z[1], b = bits.Sub64(x[1], y[1], b)
	z[2], b = bits.Sub64(x[2], y[2], b)
	z[3], _ = bits.Sub64(x[3], y[3], b)
	return z
}

func ltWord(x, y word) bool {
	for i := 3; i >= 0; i-- {
		if x[i] != y[i] {
			return x[i] < y[i]
		}
	}
	return false
}
`

// GoCompiler translates a verified module to a standalone Go source file.
// Each IR function becomes a Go function; blocks become labelled
// statement runs joined by goto.
type GoCompiler struct {
	sb     strings.Builder
	indent int
	module *ir.Module
	names  map[*ir.Reg]string
}

// NewGoCompiler creates a Go source backend for m.
func NewGoCompiler(m *ir.Module) *GoCompiler {
	return &GoCompiler{module: m}
}

// EmitGo renders m as a Go source file in package pkg. The module is
// verified first and the output is type-checked before it is returned.
func EmitGo(m *ir.Module, pkg string) ([]byte, error) {
	if err := ir.Verify(m); err != nil {
		return nil, err
	}
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("invalid package name %q", pkg)
	}

	src := NewGoCompiler(m).CompileModule(pkg)
	out, err := imports.Process(m.Name+".go", []byte(src), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("format generated source: %w", err)
	}

	filename := m.Name + ".go"
	if errs := NewCodeValidator(filename).Validate(string(out)); len(errs) > 0 {
		return nil, fmt.Errorf("generated source does not type-check:\n%s", FormatValidationErrors(errs, filename))
	}
	return out, nil
}

// CompileModule generates the complete file without formatting it.
func (c *GoCompiler) CompileModule(pkg string) string {
	c.sb.Reset()
	c.indent = 0

	c.writeLine("// Code generated by stackc from module '%s'. DO NOT EDIT.", c.module.Name)
	c.writeLine("")
	c.writeLine("package %s", pkg)
	c.writeLine("")
	c.writeLine("import (")
	c.writeLine("\t\"encoding/binary\"")
	c.writeLine("\t\"math/bits\"")
	c.writeLine(")")
	c.writeLine("")
	c.writeLine("const (")
	c.writeLine("\tstackCapacity = %d", max(c.module.StackCapacity, 1))
	c.writeLine("\tbufferSize    = %d", word.BufferSize)
	c.writeLine(")")
	c.sb.WriteString(goPrelude)

	for _, fn := range c.module.Functions {
		c.writeLine("")
		c.compileFunction(fn)
	}
	return c.sb.String()
}

func (c *GoCompiler) compileFunction(fn *ir.Function) {
	c.names = make(map[*ir.Reg]string)

	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		c.names[p] = sanitizeName(p.Name)
		params[i] = c.names[p] + " " + goType(p.Typ)
	}

	c.writeLine("func %s(%s)%s {", sanitizeName(fn.Name), strings.Join(params, ", "), goResults(fn.Results))
	c.indent++

	// All registers are declared up front so that goto never jumps over
	// a declaration.
	used := usedRegs(fn)
	var locals []*ir.Reg
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			for _, d := range in.Dst {
				c.names[d] = localName(d)
				locals = append(locals, d)
			}
		}
	}
	if len(locals) > 0 {
		c.writeLine("var (")
		for _, r := range locals {
			c.writeLine("\t%s %s", c.names[r], goType(r.Typ))
		}
		c.writeLine(")")
		for _, r := range locals {
			if !used[r] {
				c.writeLine("_ = %s", c.names[r])
			}
		}
	}

	targets := branchTargets(fn)
	for _, b := range fn.Blocks {
		if targets[b] {
			c.indent--
			c.writeLine("%s:", labelName(b))
			c.indent++
		}
		for _, in := range b.Instrs {
			c.compileInstr(in)
		}
		c.compileTerm(b.Term)
	}

	c.indent--
	c.writeLine("}")
}

func (c *GoCompiler) compileInstr(in *ir.Instr) {
	switch in.Op {
	case ir.OpAlloca:
		c.writeLine("%s = new(stackRecord)", c.dst(in))
	case ir.OpTop:
		c.writeLine("%s = %s.top", c.dst(in), c.val(in.Args[0]))
	case ir.OpSetTop:
		c.writeLine("%s.top = %s", c.val(in.Args[0]), c.val(in.Args[1]))
	case ir.OpLoad:
		if in.Args[0].Type() == ir.StackPtr {
			c.writeLine("%s = %s.data[%s]", c.dst(in), c.val(in.Args[0]), c.val(in.Args[1]))
		} else {
			c.writeLine("%s = loadWord(%s, %s)", c.dst(in), c.val(in.Args[0]), c.val(in.Args[1]))
		}
	case ir.OpStore:
		if in.Args[0].Type() == ir.StackPtr {
			c.writeLine("%s.data[%s] = %s", c.val(in.Args[0]), c.val(in.Args[1]), c.val(in.Args[2]))
		} else {
			c.writeLine("storeWord(%s, %s, %s)", c.val(in.Args[0]), c.val(in.Args[1]), c.val(in.Args[2]))
		}
	case ir.OpAdd, ir.OpSub:
		x, y := c.val(in.Args[0]), c.val(in.Args[1])
		if in.Args[0].Type() == ir.I256 {
			helper := "addWord"
			if in.Op == ir.OpSub {
				helper = "subWord"
			}
			c.writeLine("%s = %s(%s, %s)", c.dst(in), helper, x, y)
			return
		}
		op := "+"
		if in.Op == ir.OpSub {
			op = "-"
		}
		c.writeLine("%s = %s %s %s", c.dst(in), x, op, y)
	case ir.OpICmp:
		c.writeLine("%s = %s", c.dst(in), c.compare(in))
	case ir.OpCall:
		args := make([]string, len(in.Args))
		for i, a := range in.Args {
			args[i] = c.val(a)
		}
		call := fmt.Sprintf("%s(%s)", sanitizeName(in.Callee), strings.Join(args, ", "))
		if len(in.Dst) == 0 {
			c.writeLine("%s", call)
			return
		}
		c.writeLine("%s = %s", c.dst(in), call)
	default:
		c.writeLine("// unknown instruction %s", in.Op)
	}
}

func (c *GoCompiler) compare(in *ir.Instr) string {
	x, y := c.val(in.Args[0]), c.val(in.Args[1])
	if in.Args[0].Type() == ir.I256 {
		switch in.Pred {
		case ir.Eq:
			return x + " == " + y
		case ir.Ne:
			return x + " != " + y
		case ir.Ult:
			return "ltWord(" + x + ", " + y + ")"
		default:
			return "!ltWord(" + x + ", " + y + ")"
		}
	}
	op := map[ir.Pred]string{ir.Eq: "==", ir.Ne: "!=", ir.Ult: "<", ir.Uge: ">="}[in.Pred]
	return x + " " + op + " " + y
}

func (c *GoCompiler) compileTerm(t *ir.Terminator) {
	switch t.Kind {
	case ir.TermRet:
		if len(t.Values) == 0 {
			c.writeLine("return")
			return
		}
		vals := make([]string, len(t.Values))
		for i, v := range t.Values {
			vals[i] = c.val(v)
		}
		c.writeLine("return %s", strings.Join(vals, ", "))
	case ir.TermBr:
		c.writeLine("goto %s", labelName(t.Then))
	case ir.TermCondBr:
		c.writeLine("if %s {", c.val(t.Cond))
		c.writeLine("\tgoto %s", labelName(t.Then))
		c.writeLine("}")
		c.writeLine("goto %s", labelName(t.Else))
	case ir.TermUnreachable:
		c.writeLine("panic(\"unreachable\")")
	}
}

func (c *GoCompiler) dst(in *ir.Instr) string {
	names := make([]string, len(in.Dst))
	for i, d := range in.Dst {
		names[i] = c.names[d]
	}
	return strings.Join(names, ", ")
}

func (c *GoCompiler) val(v ir.Value) string {
	switch x := v.(type) {
	case *ir.Reg:
		return c.names[x]
	case *ir.Const:
		return goConst(x)
	}
	return "nil"
}

// writeLine writes an indented line to the output.
func (c *GoCompiler) writeLine(format string, args ...interface{}) {
	for i := 0; i < c.indent; i++ {
		c.sb.WriteString("\t")
	}
	c.sb.WriteString(fmt.Sprintf(format, args...))
	c.sb.WriteString("\n")
}

func goType(t ir.Type) string {
	switch t {
	case ir.I1:
		return "bool"
	case ir.I8:
		return "uint8"
	case ir.I32:
		return "uint32"
	case ir.I256:
		return "word"
	case ir.WordPtr:
		return "*[bufferSize]byte"
	case ir.StackPtr:
		return "*stackRecord"
	}
	return "struct{}"
}

func goResults(types []ir.Type) string {
	switch len(types) {
	case 0:
		return ""
	case 1:
		return " " + goType(types[0])
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = goType(t)
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func goConst(k *ir.Const) string {
	switch k.Typ {
	case ir.I1:
		return fmt.Sprint(!k.Val.IsZero())
	case ir.I256:
		if k.Val.IsZero() {
			return "word{}"
		}
		return fmt.Sprintf("word{%#x, %#x, %#x, %#x}", k.Val[0], k.Val[1], k.Val[2], k.Val[3])
	}
	return k.Val.Dec()
}

func usedRegs(fn *ir.Function) map[*ir.Reg]bool {
	used := make(map[*ir.Reg]bool)
	mark := func(vals ...ir.Value) {
		for _, v := range vals {
			if r, ok := v.(*ir.Reg); ok {
				used[r] = true
			}
		}
	}
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			mark(in.Args...)
		}
		mark(b.Term.Values...)
		if b.Term.Cond != nil {
			mark(b.Term.Cond)
		}
	}
	return used
}

func branchTargets(fn *ir.Function) map[*ir.Block]bool {
	targets := make(map[*ir.Block]bool)
	for _, b := range fn.Blocks {
		for _, s := range b.Term.Successors() {
			targets[s] = true
		}
	}
	return targets
}

func localName(r *ir.Reg) string {
	if r.Name != "" {
		return fmt.Sprintf("%s%d", sanitizeName(r.Name), r.ID)
	}
	return fmt.Sprintf("r%d", r.ID)
}

func labelName(b *ir.Block) string {
	return "L_" + sanitizeName(b.Name)
}

// sanitizeName converts an IR name to a valid Go identifier.
func sanitizeName(name string) string {
	result := strings.Builder{}
	for _, ch := range name {
		switch {
		case ch == '.' || ch == '-':
			result.WriteString("_")
		case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_':
			result.WriteRune(ch)
		}
	}
	s := result.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "_" + s
	}
	if token.IsKeyword(s) {
		s += "_"
	}
	return s
}
