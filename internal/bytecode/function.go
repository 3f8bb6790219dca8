// Package bytecode holds CompiledFunction: the byte vector, parallel line
// table and constant pool the compiler emits into and the VM executes.
package bytecode

import (
	"errors"

	"kozi/internal/opcode"
	"kozi/internal/value"
)

// maxConstants bounds the constant pool to what a 16-bit index can address.
const maxConstants = 1 << 16

// Function is a compiled chunk of bytecode: Code and Lines are parallel
// (len(Code) == len(Lines) always), Lines[i] is the source line of the
// token that produced Code[i]. Constants is append-only during compilation.
type Function struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

// New returns an empty Function, ready for the compiler to emit into.
func New() *Function {
	return &Function{}
}

// WriteByte appends a single bytecode byte recording the given source line.
func (f *Function) WriteByte(b byte, line int) {
	f.Code = append(f.Code, b)
	f.Lines = append(f.Lines, line)
}

// WriteOp appends an opcode byte.
func (f *Function) WriteOp(op opcode.Op, line int) {
	f.WriteByte(byte(op), line)
}

// AddConstant interns v into the constant pool, deduplicating by value
// equality (so adding the same value twice returns the same index and
// appends exactly once; strings dedup structurally because they are
// interned before ever reaching the pool). Returns an error once the pool
// would overflow a 16-bit index.
func (f *Function) AddConstant(v value.Value) (int, error) {
	for i, c := range f.Constants {
		if c.Equal(v) {
			return i, nil
		}
	}
	if len(f.Constants) >= maxConstants {
		return 0, errors.New("Too many constants.")
	}
	f.Constants = append(f.Constants, v)
	return len(f.Constants) - 1, nil
}

// Reset clears the instruction stream and line table but preserves the
// constant pool, for reuse across REPL-style recompiles of the same
// top-level function.
func (f *Function) Reset() {
	f.Code = f.Code[:0]
	f.Lines = f.Lines[:0]
}
