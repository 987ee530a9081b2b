package ir

import (
	"fmt"
	"strings"
)

// String prints the module as an LLVM-flavoured listing.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", m.Name)
	if m.StackCapacity > 0 {
		fmt.Fprintf(&sb, "%%Stack = type { [%d x i256], i32 }\n", m.StackCapacity)
	}
	for _, f := range m.Functions {
		sb.WriteByte('\n')
		sb.WriteString(f.String())
	}
	return sb.String()
}

// String prints one function definition.
func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = typed(p)
	}
	fmt.Fprintf(&sb, "define %s @%s(%s) {\n", formatTypes(f.Results), f.Name, strings.Join(params, ", "))
	for i, b := range f.Blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(b.Name + ":\n")
		for _, in := range b.Instrs {
			sb.WriteString("  " + in.String() + "\n")
		}
		if b.Term != nil {
			sb.WriteString("  " + b.Term.String() + "\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
