package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleEmpty(t *testing.T) {
	output := Program{}.Disassemble()

	if !strings.Contains(output, "Stack Word Bytecode") {
		t.Error("Disassembly missing header")
	}
	if !strings.Contains(output, "Instructions: 0") {
		t.Error("Disassembly missing instruction count")
	}
}

func TestDisassembleSimple(t *testing.T) {
	p := Program{
		InstArg(OpLoad, 0),
		InstArg(OpLoad, 1),
		Inst(OpAdd),
		InstArg(OpStore, 2),
		Inst(OpStop),
	}

	output := p.DisassembleWithName("add.sasm")

	for _, want := range []string{"=== add.sasm ===", "0000  LOAD 0", "0002  ADD", "0003  STORE 2", "0004  STOP", "Max stack depth: 2"} {
		if !strings.Contains(output, want) {
			t.Errorf("Disassembly missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "unreachable") || strings.Contains(output, "faults") {
		t.Errorf("unexpected annotations:\n%s", output)
	}
}

func TestDisassembleMarksDeadCode(t *testing.T) {
	p := Program{
		InstArg(OpLoad, 0),
		Inst(OpStop),
		InstArg(OpLoad, 1),
	}

	output := p.Disassemble()
	if !strings.Contains(output, "0002  LOAD 1     ; unreachable") {
		t.Errorf("expected dead LOAD to be marked:\n%s", output)
	}
}

func TestDisassembleMarksUnderflow(t *testing.T) {
	p := Program{
		InstArg(OpLoad, 0),
		Inst(OpPop),
		InstArg(OpStore, 1),
		Inst(OpStop),
	}

	output := p.Disassemble()
	if !strings.Contains(output, "STORE 1    ; faults: stack underflow") {
		t.Errorf("expected STORE to be marked as underflow:\n%s", output)
	}
	if !strings.Contains(output, "STOP       ; unreachable") {
		t.Errorf("expected STOP after fault to be unreachable:\n%s", output)
	}
}

// ============ Static Analysis Tests ============

func TestAnalyzeOverflow(t *testing.T) {
	p := make(Program, 0, StackCapacity+2)
	for i := 0; i < StackCapacity+1; i++ {
		p = append(p, InstArg(OpLoad, 0))
	}
	p = append(p, Inst(OpStop))

	faults, maxDepth := p.Analyze()
	if maxDepth != StackCapacity {
		t.Errorf("maxDepth = %d, want %d", maxDepth, StackCapacity)
	}
	if faults[StackCapacity] != StatusOverflow {
		t.Errorf("fault at push %d = %v, want overflow", StackCapacity+1, faults[StackCapacity])
	}
	if faults[StackCapacity-1] != StatusOK {
		t.Errorf("push %d should not fault", StackCapacity)
	}
}

func TestAnalyzeAddWithOneOperand(t *testing.T) {
	p := Program{InstArg(OpLoad, 0), Inst(OpAdd), Inst(OpStop)}
	faults, _ := p.Analyze()
	if faults[1] != StatusUnderflow {
		t.Errorf("ADD with one operand = %v, want underflow", faults[1])
	}
}

func TestAnalyzeDupOnFullStack(t *testing.T) {
	p := make(Program, 0, StackCapacity+2)
	for i := 0; i < StackCapacity; i++ {
		p = append(p, InstArg(OpLoad, 0))
	}
	p = append(p, Inst(OpDup), Inst(OpStop))

	faults, _ := p.Analyze()
	if faults[StackCapacity] != StatusOverflow {
		t.Errorf("DUP on full stack = %v, want overflow", faults[StackCapacity])
	}
}
