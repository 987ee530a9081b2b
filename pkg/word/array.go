package word

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ValidationError reports a malformed array file.
type ValidationError struct {
	Name string // File name as given by the caller
	Line int    // 1-based line number, 0 when the error concerns the whole file
	Msg  string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ReadArray reads an array in the line-oriented array file format: one
// decimal word per line, blank lines and lines starting with '#' ignored,
// at most ArrayCapacity values. Missing trailing values are zero.
func ReadArray(r io.Reader, name string) (*Array, error) {
	var a Array
	n := 0
	lineNum := 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		w, err := Parse(line)
		if err != nil {
			if errors.Is(err, ErrRange) {
				return nil, &ValidationError{
					Name: name,
					Line: lineNum,
					Msg:  fmt.Sprintf("Integer %s on line %d in '%s' must be between 0 and 2^%d - 1", line, lineNum, name, Bits),
				}
			}
			return nil, &ValidationError{
				Name: name,
				Line: lineNum,
				Msg:  fmt.Sprintf("Invalid integer '%s' on line %d in '%s'", line, lineNum, name),
			}
		}

		if n >= ArrayCapacity {
			return nil, &ValidationError{
				Name: name,
				Line: lineNum,
				Msg:  fmt.Sprintf("The array in '%s' exceeds maximum size of %d elements", name, ArrayCapacity),
			}
		}
		a[n] = w
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	return &a, nil
}

// ReadArrayFile opens path and reads it with ReadArray.
func ReadArrayFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()
	return ReadArray(f, path)
}
