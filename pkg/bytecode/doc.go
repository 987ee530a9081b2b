// Package bytecode defines the instruction set of the 256-bit stack machine
// and its encoded forms.
//
// The instruction set has seven opcodes:
//
//	STOP        return status 0
//	LOAD  i     push in[i]
//	STORE i     out[i] = top of stack (value stays on the stack)
//	POP         discard top of stack
//	ADD         pop b, pop a, push a+b mod 2^256
//	SUB         pop b, pop a, push a-b mod 2^256
//	DUP         push a copy of the top of stack
//
// # Representations
//
//   - Program: the decoded form, an ordered []Instruction produced by the
//     assembler in package compiler and consumed by package codegen.
//
//   - Binary container: Program.Encode/Decode, a compact "SWBC" file with a
//     version header, one opcode byte per instruction plus one operand byte
//     for LOAD and STORE.
//
//   - CBOR: MarshalProgram/UnmarshalProgram, used by the compile cache and
//     the RPC layer.
//
// # Status codes
//
// A compiled program returns a Status: StatusOK when it reaches STOP,
// StatusOverflow when a push finds the 1024-slot stack full, and
// StatusUnderflow when a pop or peek finds it empty. Stack faults are
// ordinary results, not errors.
package bytecode
