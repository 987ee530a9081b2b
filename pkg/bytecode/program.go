package bytecode

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// FormatVersion is the current binary program format version.
// Increment when making incompatible changes to the format.
const FormatVersion uint16 = 1

// Magic bytes for program files: "SWBC" (Stack Word ByteCode)
var FormatMagic = []byte{'S', 'W', 'B', 'C'}

// Instruction is one decoded bytecode instruction. Operand is meaningful
// only for opcodes with HasOperand.
type Instruction struct {
	Op      Opcode `cbor:"1,keyasint"`
	Operand uint8  `cbor:"2,keyasint,omitempty"`
}

// Inst builds an instruction without operand.
func Inst(op Opcode) Instruction {
	return Instruction{Op: op}
}

// InstArg builds an instruction with an array index operand.
func InstArg(op Opcode, index uint8) Instruction {
	return Instruction{Op: op, Operand: index}
}

// String renders the instruction in assembly syntax.
func (i Instruction) String() string {
	if i.Op.HasOperand() {
		return i.Op.String() + " " + strconv.Itoa(int(i.Operand))
	}
	return i.Op.String()
}

// Program is an ordered instruction sequence. Position is control flow:
// execution is sequential and only STOP terminates.
type Program []Instruction

// String renders the program as assembly text, one instruction per line.
// Assembling the result yields an equal program.
func (p Program) String() string {
	var sb strings.Builder
	for _, inst := range p {
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Equal reports whether two programs hold the same instructions.
func (p Program) Equal(other Program) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// CountOp returns how many instructions use op.
func (p Program) CountOp(op Opcode) int {
	n := 0
	for _, inst := range p {
		if inst.Op == op {
			n++
		}
	}
	return n
}

// Encode writes the program to the binary container format:
//
//	[magic:4] [version:2] [flags:2]
//	[count:4] [instructions:...]
//
// Each instruction is its opcode byte, followed by one operand byte for
// LOAD and STORE.
func (p Program) Encode() ([]byte, error) {
	buf := make([]byte, 0, 12+2*len(p))

	buf = append(buf, FormatMagic...)
	buf = binary.BigEndian.AppendUint16(buf, FormatVersion)
	buf = binary.BigEndian.AppendUint16(buf, 0)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p)))

	for i, inst := range p {
		if !inst.Op.Valid() {
			return nil, fmt.Errorf("instruction %d: unknown opcode 0x%02X", i, byte(inst.Op))
		}
		buf = append(buf, byte(inst.Op))
		if inst.Op.HasOperand() {
			buf = append(buf, inst.Operand)
		}
	}

	return buf, nil
}

// Decode reads a program written by Encode.
func Decode(data []byte) (Program, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("bytecode too short: need at least 12 bytes, got %d", len(data))
	}

	if string(data[0:4]) != string(FormatMagic) {
		return nil, fmt.Errorf("invalid bytecode magic: expected %q, got %q", FormatMagic, data[0:4])
	}

	version := binary.BigEndian.Uint16(data[4:6])
	if version > FormatVersion {
		return nil, fmt.Errorf("bytecode version %d is newer than supported version %d", version, FormatVersion)
	}

	count := binary.BigEndian.Uint32(data[8:12])
	pos := 12

	// Every instruction takes at least one byte.
	if int(count) > len(data)-pos {
		return nil, fmt.Errorf("instruction count %d exceeds %d remaining bytes", count, len(data)-pos)
	}

	p := make(Program, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading instruction %d", i)
		}
		op := Opcode(data[pos])
		pos++
		if !op.Valid() {
			return nil, fmt.Errorf("instruction %d: unknown opcode 0x%02X", i, byte(op))
		}

		inst := Instruction{Op: op}
		if op.HasOperand() {
			if pos >= len(data) {
				return nil, fmt.Errorf("unexpected end of bytecode reading operand of instruction %d", i)
			}
			inst.Operand = data[pos]
			pos++
		}
		p = append(p, inst)
	}

	if pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after %d instructions", len(data)-pos, count)
	}

	return p, nil
}
