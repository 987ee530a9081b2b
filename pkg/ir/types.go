package ir

import "fmt"

// Type is the type of a value or register.
type Type uint8

const (
	Void     Type = iota
	I1            // comparison result
	I8            // status byte
	I32           // stack cursor and array index
	I256          // machine word
	WordPtr       // pointer to a word array (i256*)
	StackPtr      // pointer to a stack record (%Stack*)
)

var typeNames = map[Type]string{
	Void:     "void",
	I1:       "i1",
	I8:       "i8",
	I32:      "i32",
	I256:     "i256",
	WordPtr:  "i256*",
	StackPtr: "%Stack*",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Bits returns the width of an integer type, or 0 for other types.
func (t Type) Bits() int {
	switch t {
	case I1:
		return 1
	case I8:
		return 8
	case I32:
		return 32
	case I256:
		return 256
	}
	return 0
}

// IsInt reports whether t is an integer type.
func (t Type) IsInt() bool {
	return t.Bits() > 0
}

// IsPtr reports whether t is a pointer type.
func (t Type) IsPtr() bool {
	return t == WordPtr || t == StackPtr
}

// formatTypes renders a result list: "void", "i8" or "{ i256, i8 }".
func formatTypes(types []Type) string {
	switch len(types) {
	case 0:
		return Void.String()
	case 1:
		return types[0].String()
	}
	s := "{ "
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + " }"
}
