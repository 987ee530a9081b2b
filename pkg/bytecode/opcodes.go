package bytecode

import (
	"fmt"
	"sort"
)

// Opcode represents a stack machine instruction.
type Opcode byte

const (
	OpStop  Opcode = 0x00 // Return status 0
	OpLoad  Opcode = 0x01 // Push in[operand]: LOAD <index:u8>
	OpStore Opcode = 0x02 // Write top of stack to out[operand] without popping: STORE <index:u8>
	OpPop   Opcode = 0x03 // Pop and discard top of stack
	OpAdd   Opcode = 0x04 // Pop two, push sum modulo 2^256
	OpSub   Opcode = 0x05 // Pop two, push difference (a - b where b is TOS) modulo 2^256
	OpDup   Opcode = 0x06 // Duplicate top of stack
)

// OpcodeInfo provides metadata about each opcode for the assembler,
// disassembler and editor tooling.
type OpcodeInfo struct {
	Name       string // Assembly mnemonic
	HasOperand bool   // LOAD and STORE take an array index
	StackPop   int    // Values consumed from the stack
	StackPush  int    // Values pushed onto the stack
	Doc        string // One-line description
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpStop:  {"STOP", false, 0, 0, "Stop execution and return status 0."},
	OpLoad:  {"LOAD", true, 0, 1, "Push in[index] onto the stack."},
	OpStore: {"STORE", true, 1, 1, "Copy the top of the stack to out[index]. The value stays on the stack."},
	OpPop:   {"POP", false, 1, 0, "Pop and discard the top of the stack."},
	OpAdd:   {"ADD", false, 2, 1, "Pop b, pop a, push a + b modulo 2^256."},
	OpSub:   {"SUB", false, 2, 1, "Pop b, pop a, push a - b modulo 2^256."},
	OpDup:   {"DUP", false, 1, 2, "Push a copy of the top of the stack."},
}

var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupMnemonic returns the opcode for an upper-case mnemonic.
func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonics[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// HasOperand reports whether the opcode carries an array index.
func (op Opcode) HasOperand() bool {
	return GetOpcodeInfo(op).HasOperand
}

// Valid reports whether op is one of the seven defined opcodes.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// AllOpcodes returns the defined opcodes in numeric order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	sort.Slice(opcodes, func(i, j int) bool { return opcodes[i] < opcodes[j] })
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}

// StackCapacity is the fixed number of slots in the machine stack.
const StackCapacity = 1024
