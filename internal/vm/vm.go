// Package vm is Kozi's stack-based bytecode interpreter, generalized from
// the teacher's cpu.CPU register-machine dispatch loop (cpu/cpu.go's
// decode-execute for-loop, run-to-Halt/trap structure) into a fixed-size
// operand stack machine matching the instruction set the compiler emits.
package vm

import (
	"fmt"
	"io"
	"os"

	"kozi/internal/bytecode"
	"kozi/internal/diag"
	"kozi/internal/heap"
	"kozi/internal/opcode"
	"kozi/internal/value"
)

// stackMax is the VM's fixed operand stack capacity.
const stackMax = 256

// Status is the outcome of one Interpret call, feeding the CLI's exit code.
type Status int

const (
	Ok Status = iota
	CompileError
	RuntimeErr
)

// VM executes one CompiledFunction at a time against a shared global
// namespace and GC heap, the way the teacher's CPU carries its registers
// and memory across successive Run calls.
type VM struct {
	gc      *heap.GC
	globals map[*heap.Object]value.Value
	out     io.Writer // print statements and trace output
	errOut  io.Writer // runtime diagnostics

	fn    *bytecode.Function
	ip    int
	stack [stackMax]value.Value
	sp    int

	trace bool
}

// New creates a VM sharing gc for allocation. Print output (and, when
// KOZI_TRACE is set, execution trace output) goes to out; runtime
// diagnostics go to errOut. It registers itself as the GC's RootTracer so
// collections triggered by string interning during execution can see the
// operand stack and globals.
func New(gc *heap.GC, out, errOut io.Writer) *VM {
	v := &VM{
		gc:      gc,
		globals: make(map[*heap.Object]value.Value),
		out:     out,
		errOut:  errOut,
		trace:   os.Getenv("KOZI_TRACE") != "",
	}
	gc.SetRootTracer(v)
	return v
}

// TraceRoots implements heap.RootTracer: it marks every object reachable
// from the operand stack, the globals table's keys and values, and the
// current function's constant pool.
func (v *VM) TraceRoots(mark func(*heap.Object)) {
	for i := 0; i < v.sp; i++ {
		markValue(v.stack[i], mark)
	}
	for k, val := range v.globals {
		mark(k)
		markValue(val, mark)
	}
	if v.fn != nil {
		for _, c := range v.fn.Constants {
			markValue(c, mark)
		}
	}
}

func markValue(val value.Value, mark func(*heap.Object)) {
	if val.Kind == value.KindString {
		mark(val.Str)
	}
}

// Interpret runs fn to completion (a Return instruction) or until a runtime
// error, reporting diagnostics to the VM's sink.
func (v *VM) Interpret(fn *bytecode.Function) Status {
	v.fn = fn
	v.ip = 0
	v.sp = 0
	return v.run()
}

func (v *VM) push(val value.Value) {
	v.stack[v.sp] = val
	v.sp++
}

func (v *VM) pop() value.Value {
	v.sp--
	return v.stack[v.sp]
}

func (v *VM) peek(distance int) value.Value {
	return v.stack[v.sp-1-distance]
}

func (v *VM) readByte() byte {
	b := v.fn.Code[v.ip]
	v.ip++
	return b
}

func (v *VM) readOp() opcode.Op { return opcode.Op(v.readByte()) }

// readU16 decodes a two-byte big-endian operand, matching the disassembler.
func (v *VM) readU16() int {
	hi := v.readByte()
	lo := v.readByte()
	return int(hi)<<8 | int(lo)
}

func (v *VM) readConstant() value.Value {
	idx := v.readU16()
	return v.fn.Constants[idx]
}

func (v *VM) currentLine() int {
	if v.ip == 0 {
		return v.fn.Lines[0]
	}
	return v.fn.Lines[v.ip-1]
}

func (v *VM) runtimeError(format string, args ...interface{}) Status {
	msg := fmt.Sprintf(format, args...)
	diag.RuntimeError(v.errOut, v.currentLine(), msg)
	v.sp = 0
	return RuntimeErr
}

// run is the decode-execute loop: one switch over the opcode at ip,
// mirroring the teacher's CPU.Run for-loop, but against a stack instead of
// registers.
func (v *VM) run() Status {
	for {
		if v.trace {
			v.printStack()
			v.disassembleInstruction(v.ip)
		}

		op := v.readOp()
		switch op {
		case opcode.Constant:
			v.push(v.readConstant())

		case opcode.Nil:
			v.push(value.Nil())
		case opcode.True:
			v.push(value.NewBool(true))
		case opcode.False:
			v.push(value.NewBool(false))
		case opcode.Pop:
			v.pop()

		case opcode.Negate:
			a := v.peek(0)
			if a.Kind != value.KindNumber {
				return v.runtimeError("Operand must be a number.")
			}
			v.pop()
			v.push(value.NewNumber(-a.Number))

		case opcode.Not:
			v.push(value.NewBool(v.pop().IsFalsey()))

		case opcode.Add:
			b, a := v.peek(0), v.peek(1)
			switch {
			case a.Kind == value.KindNumber && b.Kind == value.KindNumber:
				v.pop()
				v.pop()
				v.push(value.NewNumber(a.Number + b.Number))
			case a.Kind == value.KindString && b.Kind == value.KindString:
				v.pop()
				v.pop()
				concat := append(append([]byte{}, a.Str.Chars...), b.Str.Chars...)
				v.push(value.NewString(v.gc.Intern(concat)))
			default:
				return v.runtimeError("Operands must be numbers or strings.")
			}

		case opcode.Subtract:
			if s := v.binaryNumberOp(func(a, b float64) float64 { return a - b }); s != Ok {
				return s
			}
		case opcode.Multiply:
			if s := v.binaryNumberOp(func(a, b float64) float64 { return a * b }); s != Ok {
				return s
			}
		case opcode.Divide:
			if s := v.binaryNumberOp(func(a, b float64) float64 { return a / b }); s != Ok {
				return s
			}

		case opcode.Equal:
			b, a := v.pop(), v.pop()
			v.push(value.NewBool(a.Equal(b)))
		case opcode.NotEqual:
			b, a := v.pop(), v.pop()
			v.push(value.NewBool(!a.Equal(b)))

		case opcode.Greater, opcode.GreaterEqual, opcode.Less, opcode.LessEqual:
			if s := v.compareOp(op); s != Ok {
				return s
			}

		case opcode.Print:
			fmt.Fprintln(v.out, v.pop().String())

		case opcode.DefineGlobal:
			name := v.readConstant()
			v.globals[name.Str] = v.peek(0)
			v.pop()

		case opcode.GetGlobal:
			name := v.readConstant()
			val, ok := v.globals[name.Str]
			if !ok {
				return v.runtimeError("Undefined let binding '%s'.", string(name.Str.Chars))
			}
			v.push(val)

		case opcode.SetGlobal:
			name := v.readConstant()
			if _, ok := v.globals[name.Str]; !ok {
				return v.runtimeError("Undefined let binding '%s'.", string(name.Str.Chars))
			}
			v.globals[name.Str] = v.peek(0)

		case opcode.GetLocal:
			slot := v.readU16()
			v.push(v.stack[slot])

		case opcode.SetLocal:
			slot := v.readU16()
			v.stack[slot] = v.peek(0)

		case opcode.Jump:
			offset := v.readU16()
			v.ip += offset

		case opcode.JumpFalse:
			offset := v.readU16()
			if v.peek(0).IsFalsey() {
				v.ip += offset
			}

		case opcode.Loop:
			offset := v.readU16()
			v.ip -= offset

		case opcode.Return:
			return Ok

		default:
			return v.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (v *VM) binaryNumberOp(f func(a, b float64) float64) Status {
	b, a := v.peek(0), v.peek(1)
	if a.Kind != value.KindNumber || b.Kind != value.KindNumber {
		return v.runtimeError("Operands must be numbers.")
	}
	v.pop()
	v.pop()
	v.push(value.NewNumber(f(a.Number, b.Number)))
	return Ok
}

func (v *VM) compareOp(op opcode.Op) Status {
	b, a := v.peek(0), v.peek(1)
	if a.Kind != value.KindNumber || b.Kind != value.KindNumber {
		return v.runtimeError("Operands must be numbers.")
	}
	v.pop()
	v.pop()
	var result bool
	switch op {
	case opcode.Greater:
		result = a.Number > b.Number
	case opcode.GreaterEqual:
		result = a.Number >= b.Number
	case opcode.Less:
		result = a.Number < b.Number
	case opcode.LessEqual:
		result = a.Number <= b.Number
	}
	v.push(value.NewBool(result))
	return Ok
}
