package ir

import (
	"fmt"
	"strconv"

	"github.com/chazu/stackc/pkg/word"
)

// Value is an instruction operand: a constant or a register.
type Value interface {
	Type() Type
	String() string
}

// Const is an integer constant.
type Const struct {
	Typ Type
	Val word.Word
}

// ConstInt returns an integer constant of type t. v is truncated to the
// width of t.
func ConstInt(t Type, v uint64) *Const {
	c := &Const{Typ: t}
	c.Val.SetUint64(v)
	c.Val.And(&c.Val, mask(t))
	return c
}

// ConstWord returns an i256 constant.
func ConstWord(v word.Word) *Const {
	return &Const{Typ: I256, Val: v}
}

func (c *Const) Type() Type { return c.Typ }

func (c *Const) String() string {
	if c.Typ == I1 {
		if c.Val.IsZero() {
			return "false"
		}
		return "true"
	}
	return c.Val.Dec()
}

// Uint64 returns the low 64 bits of the constant.
func (c *Const) Uint64() uint64 {
	return c.Val.Uint64()
}

// Reg is a register: a function parameter or an instruction result.
type Reg struct {
	ID   int
	Name string // optional, printed instead of the number
	Typ  Type
}

func (r *Reg) Type() Type { return r.Typ }

func (r *Reg) String() string {
	if r.Name != "" {
		return "%" + r.Name
	}
	return "%" + strconv.Itoa(r.ID)
}

// Param describes a function parameter.
type Param struct {
	Name string
	Typ  Type
}

func typed(v Value) string {
	return fmt.Sprintf("%s %s", v.Type(), v)
}

var masks = func() map[Type]*word.Word {
	m := make(map[Type]*word.Word)
	for _, t := range []Type{I1, I8, I32} {
		w := new(word.Word).SetUint64(1)
		w.Lsh(w, uint(t.Bits()))
		w.SubUint64(w, 1)
		m[t] = w
	}
	all := word.Max()
	m[I256] = &all
	return m
}()

// mask returns the all-ones value of an integer type.
func mask(t Type) *word.Word {
	if m, ok := masks[t]; ok {
		return m
	}
	return new(word.Word)
}

// Mask returns the all-ones value of integer type t. Arithmetic on t
// wraps by and-ing with it.
func Mask(t Type) word.Word {
	return *mask(t)
}
