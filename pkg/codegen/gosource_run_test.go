package codegen

import (
	"fmt"
	"math/big"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/stackc/pkg/bytecode"
)

// driverSource fills the arrays, calls the generated entry point and prints
// the status followed by the first out words in decimal.
func driverSource(in, out []*big.Int, show int) string {
	var sb strings.Builder
	sb.WriteString("package main\n\nimport (\n\t\"fmt\"\n\t\"math/big\"\n)\n\n")
	sb.WriteString("func main() {\n\tvar in, out [bufferSize]byte\n")
	set := func(name string, vals []*big.Int) {
		for i, v := range vals {
			var buf [32]byte
			v.FillBytes(buf[:])
			for j, b := range buf {
				if b != 0 {
					fmt.Fprintf(&sb, "\t%s[%d] = 0x%02x\n", name, i*32+j, b)
				}
			}
		}
	}
	set("in", in)
	set("out", out)
	sb.WriteString("\tst := function(&in, &out)\n\tfmt.Print(st)\n")
	fmt.Fprintf(&sb, "\tfor i := 0; i < %d; i++ {\n", show)
	sb.WriteString("\t\tfmt.Print(\" \", new(big.Int).SetBytes(out[i*32:i*32+32]))\n\t}\n\tfmt.Println()\n}\n")
	return sb.String()
}

// runEmitted writes the generated machine plus a driver into a scratch
// directory and executes them with the go tool.
func runEmitted(t *testing.T, p bytecode.Program, in, out []*big.Int, show int) string {
	t.Helper()
	m, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	src, err := EmitGo(m, "main")
	if err != nil {
		t.Fatalf("EmitGo: %v", err)
	}

	dir := t.TempDir()
	files := map[string]string{
		"go.mod":  "module machine\n\ngo 1.21\n",
		"gen.go":  string(src),
		"main.go": driverSource(in, out, show),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cmd := exec.Command("go", "run", ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off")
	got, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("go run: %v\n%s\n--- gen.go ---\n%s", err, got, src)
	}
	return strings.TrimSpace(string(got))
}

func words(vals ...string) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, s := range vals {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			panic("bad word " + s)
		}
		out[i] = v
	}
	return out
}

// ============ Emitted Go Execution Tests ============

func TestEmitGoRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("builds generated code with the go tool")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go tool not on PATH")
	}

	const maxWord = "115792089237316195423570985008687907853269984665640564039457584007913129639935"

	overflow := make(bytecode.Program, 0, bytecode.StackCapacity+2)
	for i := 0; i <= bytecode.StackCapacity; i++ {
		overflow = append(overflow, bytecode.InstArg(bytecode.OpLoad, 0))
	}
	overflow = append(overflow, bytecode.Inst(bytecode.OpStop))

	tests := []struct {
		name string
		prog bytecode.Program
		in   []*big.Int
		out  []*big.Int
		want string
	}{
		{
			name: "add",
			prog: prog(
				bytecode.InstArg(bytecode.OpLoad, 0),
				bytecode.InstArg(bytecode.OpLoad, 1),
				bytecode.Inst(bytecode.OpAdd),
				bytecode.InstArg(bytecode.OpStore, 2),
				bytecode.Inst(bytecode.OpStop),
			),
			in:   words("10", "20"),
			want: "0 0 0 30",
		},
		{
			name: "sub wraps below zero",
			prog: prog(
				bytecode.InstArg(bytecode.OpLoad, 0),
				bytecode.InstArg(bytecode.OpLoad, 1),
				bytecode.Inst(bytecode.OpSub),
				bytecode.InstArg(bytecode.OpStore, 0),
				bytecode.Inst(bytecode.OpStop),
			),
			in:   words("0", "1"),
			want: "0 " + maxWord + " 0 0",
		},
		{
			name: "add wraps past max",
			prog: prog(
				bytecode.InstArg(bytecode.OpLoad, 0),
				bytecode.InstArg(bytecode.OpLoad, 1),
				bytecode.Inst(bytecode.OpAdd),
				bytecode.Inst(bytecode.OpDup),
				bytecode.InstArg(bytecode.OpStore, 1),
				bytecode.InstArg(bytecode.OpStore, 2),
				bytecode.Inst(bytecode.OpStop),
			),
			in:   words(maxWord, "3"),
			want: "0 0 2 2",
		},
		{
			name: "underflow",
			prog: prog(
				bytecode.Inst(bytecode.OpPop),
				bytecode.Inst(bytecode.OpStop),
			),
			out:  words("7"),
			want: "2 7 0 0",
		},
		{
			name: "overflow",
			prog: overflow,
			in:   words("1"),
			out:  words("0", "9"),
			want: "1 0 9 0",
		},
		{
			name: "early stop",
			prog: prog(
				bytecode.Inst(bytecode.OpStop),
				bytecode.InstArg(bytecode.OpLoad, 0),
				bytecode.InstArg(bytecode.OpStore, 1),
				bytecode.Inst(bytecode.OpStop),
			),
			in:   words("5"),
			want: "0 0 0 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runEmitted(t, tt.prog, tt.in, tt.out, 3)
			if got != tt.want {
				t.Errorf("status and out[0:3] = %q, want %q", got, tt.want)
			}
		})
	}
}
