package codegen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/chazu/stackc/pkg/bytecode"
	"github.com/chazu/stackc/pkg/ir"
)

func TestEmitGo(t *testing.T) {
	m, err := Compile(prog(
		bytecode.InstArg(bytecode.OpLoad, 0),
		bytecode.InstArg(bytecode.OpLoad, 1),
		bytecode.Inst(bytecode.OpSub),
		bytecode.Inst(bytecode.OpDup),
		bytecode.InstArg(bytecode.OpStore, 2),
		bytecode.Inst(bytecode.OpPop),
		bytecode.Inst(bytecode.OpStop),
		bytecode.Inst(bytecode.OpAdd),
	))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	src, err := EmitGo(m, "machine")
	if err != nil {
		t.Fatalf("EmitGo: %v", err)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "gen.go", src, 0)
	if err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, src)
	}
	if file.Name.Name != "machine" {
		t.Errorf("package = %s, want machine", file.Name.Name)
	}

	funcs := make(map[string]bool)
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			funcs[fn.Name.Name] = true
		}
	}
	for _, name := range []string{"function", "stack_push", "stack_pop", "stack_peek", "addWord", "subWord"} {
		if !funcs[name] {
			t.Errorf("generated source has no func %s", name)
		}
	}

	text := string(src)
	if !strings.HasPrefix(text, "// Code generated by stackc") {
		t.Errorf("missing generated-code header")
	}
	if !strings.Contains(text, "func function(in *[bufferSize]byte, out *[bufferSize]byte) uint8 {") {
		t.Errorf("unexpected entry signature:\n%s", text)
	}
	if !strings.Contains(text, `panic("unreachable")`) {
		t.Errorf("dead tail not terminated")
	}
}

func TestEmitGoRejectsInvalidModule(t *testing.T) {
	m := ir.NewModule("bad")
	m.NewFunction("f", nil).NewBlock("entry")
	if _, err := EmitGo(m, "main"); err == nil {
		t.Error("EmitGo accepted an unterminated block")
	}
}

func TestEmitGoRejectsBadPackage(t *testing.T) {
	m, err := Compile(prog(bytecode.Inst(bytecode.OpStop)))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := EmitGo(m, "not a package"); err == nil {
		t.Error("EmitGo accepted an invalid package name")
	}
}

func TestGoConst(t *testing.T) {
	tests := []struct {
		c    *ir.Const
		want string
	}{
		{ir.ConstInt(ir.I1, 1), "true"},
		{ir.ConstInt(ir.I8, 2), "2"},
		{ir.ConstInt(ir.I256, 0), "word{}"},
		{ir.ConstInt(ir.I256, 5), "word{0x5, 0x0, 0x0, 0x0}"},
	}
	for _, tc := range tests {
		if got := goConst(tc.c); got != tc.want {
			t.Errorf("goConst(%s) = %q, want %q", tc.c, got, tc.want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"stack_push": "stack_push",
		"ok.3":       "ok_3",
		"func":       "func_",
		"9lives":     "_9lives",
	}
	for in, want := range tests {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
