// Package value holds Kozi's tagged-union runtime value: Nil, Bool, Number
// or String. It is the one type shared by the compiler's constant pool, the
// VM's operand stack and globals table, and the GC's root tracer.
package value

import (
	"math"
	"strconv"

	"kozi/internal/heap"
)

// Kind tags which field of a Value is significant.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
)

// Value is Kozi's dynamically-typed runtime value. Strings hold a handle
// into the GC heap; the other variants are stored inline.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    *heap.Object
}

func Nil() Value                  { return Value{Kind: KindNil} }
func NewBool(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func NewNumber(n float64) Value   { return Value{Kind: KindNumber, Number: n} }
func NewString(o *heap.Object) Value { return Value{Kind: KindString, Str: o} }

// IsFalsey reports whether the value is falsey: Nil or Bool(false).
// Everything else, including Number(0) and the empty string, is truthy.
func (v Value) IsFalsey() bool {
	return v.Kind == KindNil || (v.Kind == KindBool && !v.Bool)
}

// Equal implements Kozi's equality: values of different kinds are never
// equal; numbers use IEEE equality; strings compare by interned-handle
// identity (byte-equal contents always share a handle, so this coincides
// with content equality).
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindNumber:
		return v.Number == o.Number
	case KindString:
		return v.Str == o.Str
	default:
		return false
	}
}

// String formats the value the way Print does: numbers in a general decimal
// format, booleans as true/false, nil as nil, strings as their contents.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.Number)
	case KindString:
		return string(v.Str.Chars)
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
}
