package bytecode

import "fmt"

// Status is the byte returned by a compiled function.
type Status uint8

const (
	StatusOK        Status = 0 // Normal termination via STOP
	StatusOverflow  Status = 1 // Push on a full stack
	StatusUnderflow Status = 2 // Pop or peek on an empty stack
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOverflow:
		return "stack overflow"
	case StatusUnderflow:
		return "stack underflow"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Fault reports whether the status is a stack fault.
func (s Status) Fault() bool {
	return s == StatusOverflow || s == StatusUnderflow
}
