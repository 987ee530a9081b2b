package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
		if info.Doc == "" {
			t.Errorf("%s has no doc line", info.Name)
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got := OpcodeCount(); got != 7 {
		t.Errorf("Expected 7 opcodes, got %d", got)
	}
}

func TestOpcodeEncoding(t *testing.T) {
	tests := []struct {
		op   Opcode
		code byte
		name string
	}{
		{OpStop, 0x00, "STOP"},
		{OpLoad, 0x01, "LOAD"},
		{OpStore, 0x02, "STORE"},
		{OpPop, 0x03, "POP"},
		{OpAdd, 0x04, "ADD"},
		{OpSub, 0x05, "SUB"},
		{OpDup, 0x06, "DUP"},
	}

	for _, tt := range tests {
		if byte(tt.op) != tt.code {
			t.Errorf("%s = 0x%02X, want 0x%02X", tt.name, byte(tt.op), tt.code)
		}
		if got := tt.op.String(); got != tt.name {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", tt.code, got, tt.name)
		}
		op, ok := LookupMnemonic(tt.name)
		if !ok || op != tt.op {
			t.Errorf("LookupMnemonic(%q) = %v, %v", tt.name, op, ok)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
	if op.Valid() {
		t.Error("0xEE should not be valid")
	}
}

func TestOperandArity(t *testing.T) {
	for _, op := range AllOpcodes() {
		want := op == OpLoad || op == OpStore
		if op.HasOperand() != want {
			t.Errorf("%s.HasOperand() = %v, want %v", op, op.HasOperand(), want)
		}
	}
}

func TestLookupMnemonicIsCaseSensitive(t *testing.T) {
	if _, ok := LookupMnemonic("load"); ok {
		t.Error("lookup expects upper-case mnemonics")
	}
}

func TestStatusString(t *testing.T) {
	if StatusOK.Fault() {
		t.Error("StatusOK is not a fault")
	}
	if !StatusOverflow.Fault() || !StatusUnderflow.Fault() {
		t.Error("overflow and underflow are faults")
	}
	if got := Status(9).String(); got != "Status(9)" {
		t.Errorf("Status(9).String() = %q", got)
	}
}
