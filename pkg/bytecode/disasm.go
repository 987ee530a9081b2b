package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable listing with a name header.
func (p Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Stack Word Bytecode v%d\n", FormatVersion))
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n", len(p)))

	faults, maxDepth := p.Analyze()
	sb.WriteString(fmt.Sprintf("; Max stack depth: %d\n", maxDepth))
	sb.WriteString("\n")

	sb.WriteString("; Code:\n")
	reachable := true
	for i, inst := range p {
		line := fmt.Sprintf("%04X  %-10s", i, inst.String())
		switch {
		case !reachable:
			line += " ; unreachable"
		case faults[i] != StatusOK:
			line += " ; faults: " + faults[i].String()
		}
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")

		if inst.Op == OpStop || faults[i] != StatusOK {
			reachable = false
		}
	}

	return sb.String()
}

// Analyze statically follows the single execution path and reports, for
// each instruction, the fault it raises (StatusOK for none). It also
// returns the deepest stack reached before the first fault or STOP.
// Instructions after that point are reported as StatusOK.
func (p Program) Analyze() ([]Status, int) {
	faults := make([]Status, len(p))
	d, maxDepth := 0, 0
	for i, inst := range p {
		info := GetOpcodeInfo(inst.Op)
		// ADD and SUB pop both operands before pushing, DUP and STORE
		// peek, so fewer than StackPop values always underflows.
		if d < info.StackPop {
			faults[i] = StatusUnderflow
			break
		}
		if d-info.StackPop+info.StackPush > StackCapacity {
			faults[i] = StatusOverflow
			break
		}
		d += info.StackPush - info.StackPop
		if d > maxDepth {
			maxDepth = d
		}
		if inst.Op == OpStop {
			break
		}
	}
	return faults, maxDepth
}
