package vm

import (
	"fmt"
	"io"

	"kozi/internal/bytecode"
	"kozi/internal/opcode"
)

// printStack renders the operand stack as "[ a ][ b ]...", matching the
// teacher's cpu debug trace shape, to the VM's sink when KOZI_TRACE is set.
func (v *VM) printStack() {
	fmt.Fprint(v.out, "          ")
	for i := 0; i < v.sp; i++ {
		fmt.Fprintf(v.out, "[ %s ]", v.stack[i].String())
	}
	fmt.Fprintln(v.out)
}

// disassembleInstruction prints the instruction at offset in the VM's
// current function to its trace output, then returns the offset following
// it. It is also exposed standalone as Disassemble for the kozidebug tool.
func (v *VM) disassembleInstruction(offset int) int {
	return disassembleInstruction(v.out, v.fn, offset)
}

// Disassemble writes every instruction in fn to w, one per line, in the
// "OFFSET LINE OPCODE operands" layout the teacher's dump subcommand uses.
func Disassemble(w io.Writer, name string, fn *bytecode.Function) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(fn.Code); {
		offset = disassembleInstruction(w, fn, offset)
	}
}

func disassembleInstruction(w io.Writer, fn *bytecode.Function, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && fn.Lines[offset] == fn.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", fn.Lines[offset])
	}

	op := opcode.Op(fn.Code[offset])
	switch op {
	case opcode.Constant, opcode.DefineGlobal, opcode.GetGlobal, opcode.SetGlobal:
		return constantInstruction(w, op, fn, offset)
	case opcode.GetLocal, opcode.SetLocal:
		return slotInstruction(w, op, fn, offset)
	case opcode.Jump, opcode.JumpFalse:
		return jumpInstruction(w, op, fn, offset, 1)
	case opcode.Loop:
		return jumpInstruction(w, op, fn, offset, -1)
	default:
		fmt.Fprintf(w, "%s\n", op)
		return offset + 1
	}
}

// readU16At decodes a two-byte big-endian operand starting at offset,
// matching the VM's own readU16 exactly so disassembly can never drift
// from execution.
func readU16At(fn *bytecode.Function, offset int) int {
	hi := fn.Code[offset]
	lo := fn.Code[offset+1]
	return int(hi)<<8 | int(lo)
}

func constantInstruction(w io.Writer, op opcode.Op, fn *bytecode.Function, offset int) int {
	idx := readU16At(fn, offset+1)
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, fn.Constants[idx].String())
	return offset + 3
}

func slotInstruction(w io.Writer, op opcode.Op, fn *bytecode.Function, offset int) int {
	slot := readU16At(fn, offset+1)
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 3
}

func jumpInstruction(w io.Writer, op opcode.Op, fn *bytecode.Function, offset int, sign int) int {
	jump := readU16At(fn, offset+1)
	target := offset + 3 + sign*jump
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, target)
	return offset + 3
}
