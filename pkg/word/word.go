// Package word defines the 256-bit machine word and the fixed-size word
// arrays exchanged with compiled functions.
//
// Words are unsigned and all arithmetic on them wraps modulo 2^256. Arrays
// cross the native call boundary as flat buffers of big-endian 32-byte words.
package word

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

const (
	// Bits is the word width.
	Bits = 256

	// Size is the encoded size of one word in bytes.
	Size = Bits / 8

	// ArrayCapacity is the number of words in the in and out arrays. It also
	// bounds the operand of LOAD and STORE.
	ArrayCapacity = 256

	// BufferSize is the encoded size of one array.
	BufferSize = ArrayCapacity * Size
)

// Word is a 256-bit unsigned integer.
type Word = uint256.Int

// Array is a full in or out array.
type Array [ArrayCapacity]Word

// Buffer is the native memory layout of an Array: ArrayCapacity big-endian
// words laid out back to back.
type Buffer [BufferSize]byte

var (
	// ErrSyntax is returned by Parse for text that is not a decimal integer.
	ErrSyntax = errors.New("not a decimal integer")

	// ErrRange is returned by Parse for integers outside [0, 2^256).
	ErrRange = errors.New("integer out of range")
)

// Parse reads a decimal word. Negative values and values of 2^256 or more
// are rejected with ErrRange.
func Parse(s string) (Word, error) {
	var w Word
	s = strings.TrimSpace(s)
	digits, ok := StripDigitGroups(s)
	if !ok {
		return w, fmt.Errorf("%q: %w", s, ErrSyntax)
	}
	b, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return w, fmt.Errorf("%q: %w", s, ErrSyntax)
	}
	if b.Sign() < 0 {
		return w, fmt.Errorf("%s: %w", s, ErrRange)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return w, fmt.Errorf("%s: %w", s, ErrRange)
	}
	return *v, nil
}

// StripDigitGroups removes the underscores that group digits, as in
// 1_000_000. It reports false when an underscore does not sit between two
// digits.
func StripDigitGroups(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			sb.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return sb.String(), true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// MustParse is like Parse but panics on error. Intended for tests and
// constant tables.
func MustParse(s string) Word {
	w, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return w
}

// FromUint64 returns a word holding v.
func FromUint64(v uint64) Word {
	var w Word
	w.SetUint64(v)
	return w
}

// Max returns 2^256 - 1.
func Max() Word {
	var w Word
	w.SetAllOne()
	return w
}

// ArrayOf returns an array whose leading elements are vals, zero-padded.
// Values past ArrayCapacity are ignored.
func ArrayOf(vals ...uint64) Array {
	var a Array
	for i, v := range vals {
		if i >= ArrayCapacity {
			break
		}
		a[i].SetUint64(v)
	}
	return a
}

// Len returns the index one past the last non-zero element.
func (a *Array) Len() int {
	for i := ArrayCapacity - 1; i >= 0; i-- {
		if !a[i].IsZero() {
			return i + 1
		}
	}
	return 0
}

// Strings renders the first n elements in decimal.
func (a *Array) Strings(n int) []string {
	if n > ArrayCapacity {
		n = ArrayCapacity
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = a[i].Dec()
	}
	return out
}

// String renders the whole array like a bracketed list.
func (a *Array) String() string {
	return "[" + strings.Join(a.Strings(ArrayCapacity), ", ") + "]"
}

// Encode writes the array into a fresh big-endian buffer.
func (a *Array) Encode() *Buffer {
	var buf Buffer
	for i := range a {
		b := a[i].Bytes32()
		copy(buf[i*Size:], b[:])
	}
	return &buf
}

// Decode reads every word of the buffer into an array.
func (b *Buffer) Decode() Array {
	var a Array
	for i := range a {
		a[i].SetBytes32(b[i*Size : (i+1)*Size])
	}
	return a
}

// Word returns element i of the buffer.
func (b *Buffer) Word(i int) Word {
	var w Word
	w.SetBytes32(b[i*Size : (i+1)*Size])
	return w
}

// SetWord overwrites element i of the buffer.
func (b *Buffer) SetWord(i int, w *Word) {
	enc := w.Bytes32()
	copy(b[i*Size:(i+1)*Size], enc[:])
}
