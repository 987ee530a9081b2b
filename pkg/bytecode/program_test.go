package bytecode

import (
	"bytes"
	"strings"
	"testing"
)

func sampleProgram() Program {
	return Program{
		InstArg(OpLoad, 0),
		InstArg(OpLoad, 255),
		Inst(OpAdd),
		Inst(OpDup),
		InstArg(OpStore, 2),
		Inst(OpPop),
		Inst(OpSub),
		Inst(OpStop),
	}
}

func TestProgramString(t *testing.T) {
	p := Program{InstArg(OpLoad, 7), Inst(OpDup), Inst(OpStop)}
	want := "LOAD 7\nDUP\nSTOP\n"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestProgramCountOp(t *testing.T) {
	p := sampleProgram()
	if got := p.CountOp(OpLoad); got != 2 {
		t.Errorf("CountOp(LOAD) = %d, want 2", got)
	}
	if got := p.CountOp(OpStop); got != 1 {
		t.Errorf("CountOp(STOP) = %d, want 1", got)
	}
}

// ============ Binary Container Tests ============

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := sampleProgram()

	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasPrefix(data, FormatMagic) {
		t.Errorf("encoded program missing magic: %x", data[:4])
	}
	// 12 header bytes + 8 opcodes + 3 operands
	if len(data) != 12+8+3 {
		t.Errorf("encoded size = %d, want 23", len(data))
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !got.Equal(p) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got, p)
	}
}

func TestEncodeRejectsUnknownOpcode(t *testing.T) {
	p := Program{{Op: Opcode(0x42)}}
	if _, err := p.Encode(); err == nil {
		t.Error("expected error for unknown opcode")
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := Program{InstArg(OpLoad, 1), Inst(OpStop)}.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	badMagic := append([]byte{}, valid...)
	badMagic[0] = 'X'

	newer := append([]byte{}, valid...)
	newer[5] = byte(FormatVersion + 1)

	badOp := append([]byte{}, valid...)
	badOp[12] = 0x99

	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"short", valid[:5], "too short"},
		{"magic", badMagic, "invalid bytecode magic"},
		{"version", newer, "newer than supported"},
		{"truncated operand", valid[:13], "exceeds"},
		{"unknown opcode", badOp, "unknown opcode"},
		{"trailing", append(append([]byte{}, valid...), 0x00), "trailing bytes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

// ============ CBOR Wire Tests ============

func TestMarshalProgramRoundTrip(t *testing.T) {
	p := sampleProgram()

	data, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram failed: %v", err)
	}
	got, err := UnmarshalProgram(data)
	if err != nil {
		t.Fatalf("UnmarshalProgram failed: %v", err)
	}
	if !got.Equal(p) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got, p)
	}
}

func TestMarshalProgramDeterministic(t *testing.T) {
	a, err := MarshalProgram(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	b, err := MarshalProgram(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding should be deterministic")
	}
}

func TestUnmarshalProgramRejectsUnknownOpcode(t *testing.T) {
	data, err := MarshalProgram(Program{{Op: Opcode(0x30)}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := UnmarshalProgram(data); err == nil {
		t.Error("expected error for unknown opcode")
	}
}
