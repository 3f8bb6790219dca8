package compiler

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kozi/internal/bytecode"
	"kozi/internal/heap"
	"kozi/internal/opcode"
)

func compile(t *testing.T, src string) (*bytecode.Function, bool, string) {
	t.Helper()
	fn := bytecode.New()
	gc := heap.New()
	var out bytes.Buffer
	c := New(src, fn, gc, &out)
	ok := c.Compile()
	return fn, ok, out.String()
}

func TestCompile_SimpleExpressionStatement(t *testing.T) {
	fn, ok, errs := compile(t, "1 + 2;")
	require.True(t, ok, errs)
	require.NotEmpty(t, fn.Code)
	assert.Equal(t, opcode.Constant, opcode.Op(fn.Code[0]))
}

func TestCompile_PrintStatement(t *testing.T) {
	fn, ok, errs := compile(t, `print "hello";`)
	require.True(t, ok, errs)

	var sawPrint bool
	for _, b := range fn.Code {
		if opcode.Op(b) == opcode.Print {
			sawPrint = true
		}
	}
	assert.True(t, sawPrint)
}

func TestCompile_GlobalLetBinding(t *testing.T) {
	fn, ok, errs := compile(t, "let x = 1; print x;")
	require.True(t, ok, errs)

	var sawDefine, sawGet bool
	for _, b := range fn.Code {
		switch opcode.Op(b) {
		case opcode.DefineGlobal:
			sawDefine = true
		case opcode.GetGlobal:
			sawGet = true
		}
	}
	assert.True(t, sawDefine)
	assert.True(t, sawGet)
}

func TestCompile_LocalShadowingInNestedBlock(t *testing.T) {
	_, ok, errs := compile(t, "let x = 1; { let x = 2; print x; }")
	require.True(t, ok, errs)
}

func TestCompile_RedeclaringLocalInSameScopeIsAnError(t *testing.T) {
	_, ok, errs := compile(t, "{ let x = 1; let x = 2; }")
	assert.False(t, ok)
	assert.Contains(t, errs, "Already a let binding with this name in this scope.")
}

func TestCompile_SelfReferentialInitializerIsAnError(t *testing.T) {
	_, ok, errs := compile(t, "{ let x = x; }")
	assert.False(t, ok)
	assert.Contains(t, errs, "Can't read local let binding in its own initializer.")
}

func TestCompile_IfElse(t *testing.T) {
	_, ok, errs := compile(t, `if (true) { print 1; } else { print 2; }`)
	require.True(t, ok, errs)
}

func TestCompile_WhileLoopEmitsBackwardLoop(t *testing.T) {
	fn, ok, errs := compile(t, "let i = 0; while (i < 3) { i = i + 1; }")
	require.True(t, ok, errs)

	var sawLoop bool
	for _, b := range fn.Code {
		if opcode.Op(b) == opcode.Loop {
			sawLoop = true
		}
	}
	assert.True(t, sawLoop)
}

func TestCompile_ForLoopDesugarsToWhile(t *testing.T) {
	fn, ok, errs := compile(t, "for (let i = 0; i < 3; i = i + 1) { print i; }")
	require.True(t, ok, errs)

	var sawLoop bool
	for _, b := range fn.Code {
		if opcode.Op(b) == opcode.Loop {
			sawLoop = true
		}
	}
	assert.True(t, sawLoop)
}

func TestCompile_CompoundAssignment(t *testing.T) {
	fn, ok, errs := compile(t, "let x = 1; x += 2;")
	require.True(t, ok, errs)

	var sawAdd bool
	for _, b := range fn.Code {
		if opcode.Op(b) == opcode.Add {
			sawAdd = true
		}
	}
	assert.True(t, sawAdd)
}

func TestCompile_InvalidAssignmentTarget(t *testing.T) {
	_, ok, errs := compile(t, "1 + 2 = 3;")
	assert.False(t, ok)
	assert.Contains(t, errs, "Invalid assignment target.")
}

func TestCompile_ExpectExpression(t *testing.T) {
	_, ok, errs := compile(t, "let x = ;")
	assert.False(t, ok)
	assert.Contains(t, errs, "Expect expression.")
}

func TestCompile_256LocalsCompileThe257thErrors(t *testing.T) {
	var b strings.Builder
	b.WriteString("{\n")
	for i := 0; i < maxLocals; i++ {
		fmt.Fprintf(&b, "let v%d = %d;\n", i, i)
	}
	b.WriteString("}\n")
	_, ok, errs := compile(t, b.String())
	require.True(t, ok, errs)

	b.Reset()
	b.WriteString("{\n")
	for i := 0; i < maxLocals+1; i++ {
		fmt.Fprintf(&b, "let v%d = %d;\n", i, i)
	}
	b.WriteString("}\n")
	_, ok, errs = compile(t, b.String())
	assert.False(t, ok)
	assert.Contains(t, errs, "Too many local let bindings in function.")
}

func TestPatchJump_BoundaryAt65535And65536(t *testing.T) {
	fn := bytecode.New()
	gc := heap.New()
	var out bytes.Buffer
	c := New("", fn, gc, &out)

	offset := c.emitJump(opcode.Jump)
	for i := 0; i < 0xffff; i++ {
		c.emitByte(0)
	}
	c.patchJump(offset)
	assert.Empty(t, out.String())

	fn2 := bytecode.New()
	c2 := New("", fn2, gc, &out)
	offset2 := c2.emitJump(opcode.Jump)
	for i := 0; i < 0x10000; i++ {
		c2.emitByte(0)
	}
	c2.patchJump(offset2)
	assert.Contains(t, out.String(), "Too much code to jump over.")
}

func TestCompile_AndOrShortCircuit(t *testing.T) {
	fn, ok, errs := compile(t, "print true and false; print false or true;")
	require.True(t, ok, errs)

	var sawJump, sawJumpFalse bool
	for _, b := range fn.Code {
		switch opcode.Op(b) {
		case opcode.Jump:
			sawJump = true
		case opcode.JumpFalse:
			sawJumpFalse = true
		}
	}
	assert.True(t, sawJump)
	assert.True(t, sawJumpFalse)
}
