package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal programs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a program to CBOR bytes.
func MarshalProgram(p Program) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// UnmarshalProgram deserializes a program from CBOR bytes and rejects
// unknown opcodes.
func UnmarshalProgram(data []byte) (Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	for i, inst := range p {
		if !inst.Op.Valid() {
			return nil, fmt.Errorf("bytecode: instruction %d: unknown opcode 0x%02X", i, byte(inst.Op))
		}
	}
	return p, nil
}
