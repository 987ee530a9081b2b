package codegen

// In-memory validation of generated Go source using go/parser and go/types.

import (
	"errors"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"strconv"
	"strings"
)

// ValidationError represents a Go validation error with position info
type ValidationError struct {
	Line     int
	Column   int
	Function string // function containing the error, "<package>" outside any
	Message  string
}

// CodeValidator validates generated Go source code in-memory
type CodeValidator struct {
	fset     *token.FileSet
	filename string
}

// NewCodeValidator creates a validator for the given filename (used in error messages)
func NewCodeValidator(filename string) *CodeValidator {
	return &CodeValidator{
		filename: filename,
	}
}

// Validate parses and type-checks Go source code, returning any errors.
// Imports are resolved from source, so only standard library imports are
// expected in generated code.
func (cv *CodeValidator) Validate(source string) []ValidationError {
	cv.fset = token.NewFileSet()

	file, err := parser.ParseFile(cv.fset, cv.filename, source, parser.AllErrors)
	if err != nil {
		return cv.parseErrorsToValidationErrors(err)
	}

	funcMap := cv.buildFunctionMap(file)

	var typeCheckErrors []ValidationError
	conf := types.Config{
		Importer: importer.ForCompiler(cv.fset, "source", nil),
		Error: func(err error) {
			// types.Error has a Pos field (not a Pos() method)
			var typeErr types.Error
			if !errors.As(err, &typeErr) {
				return
			}
			pos := cv.fset.Position(typeErr.Pos)
			name := "<package>"
			if fn := funcMap[pos.Line]; fn != nil {
				name = fn.Name
			}
			typeCheckErrors = append(typeCheckErrors, ValidationError{
				Line:     pos.Line,
				Column:   pos.Column,
				Function: name,
				Message:  typeErr.Msg,
			})
		},
	}

	_, _ = conf.Check(file.Name.Name, cv.fset, []*ast.File{file}, nil)
	return typeCheckErrors
}

// FunctionsWithErrors returns the set of function names that have errors
func FunctionsWithErrors(errs []ValidationError) map[string]bool {
	fns := make(map[string]bool)
	for _, err := range errs {
		if err.Function != "" && err.Function != "<package>" {
			fns[err.Function] = true
		}
	}
	return fns
}

type functionInfo struct {
	Name      string
	StartLine int
	EndLine   int
}

func (cv *CodeValidator) parseErrorsToValidationErrors(err error) []ValidationError {
	var list scanner.ErrorList
	if !errors.As(err, &list) {
		return []ValidationError{{Line: 1, Column: 1, Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(list))
	for _, e := range list {
		out = append(out, ValidationError{
			Line:    e.Pos.Line,
			Column:  e.Pos.Column,
			Message: e.Msg,
		})
	}
	return out
}

func (cv *CodeValidator) buildFunctionMap(file *ast.File) map[int]*functionInfo {
	funcMap := make(map[int]*functionInfo)

	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			startPos := cv.fset.Position(fn.Pos())
			endPos := cv.fset.Position(fn.End())

			info := &functionInfo{
				Name:      fn.Name.Name,
				StartLine: startPos.Line,
				EndLine:   endPos.Line,
			}

			// Map each line in the function to this function info
			for line := startPos.Line; line <= endPos.Line; line++ {
				funcMap[line] = info
			}
		}
	}

	return funcMap
}

// FormatValidationErrors returns a human-readable error report
func FormatValidationErrors(errs []ValidationError, filename string) string {
	if len(errs) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, err := range errs {
		sb.WriteString("  " + filename + ":")
		sb.WriteString(strconv.Itoa(err.Line) + ":" + strconv.Itoa(err.Column) + ": ")
		if err.Function != "" && err.Function != "<package>" {
			sb.WriteString(err.Function + ": ")
		}
		sb.WriteString(err.Message)
		sb.WriteString("\n")
	}

	return sb.String()
}
