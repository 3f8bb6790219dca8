// Package opcode defines Kozi's bytecode instruction set: one byte per
// opcode, generalized from the teacher's register-machine Op table to the
// stack-machine operations a Pratt compiler emits directly with no AST.
package opcode

// Op is a single bytecode instruction.
type Op byte

const (
	// Constant pushes constants[operand] (2-byte big-endian index).
	Constant Op = iota
	Nil
	True
	False
	Pop

	Negate
	Not

	Add
	Subtract
	Multiply
	Divide

	Equal
	NotEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	Print

	// DefineGlobal/GetGlobal/SetGlobal take a 2-byte constant index naming
	// the global (a string constant).
	DefineGlobal
	GetGlobal
	SetGlobal

	// GetLocal/SetLocal take a 2-byte operand stack slot.
	GetLocal
	SetLocal

	// Jump/JumpFalse take a 2-byte big-endian forward offset.
	Jump
	JumpFalse

	// Loop takes a 2-byte big-endian backward offset (additive, beyond the
	// spec's forward-only jump table: while/for need a back edge).
	Loop

	Return
)

var names = [...]string{
	Constant:     "CONSTANT",
	Nil:          "NIL",
	True:         "TRUE",
	False:        "FALSE",
	Pop:          "POP",
	Negate:       "NEGATE",
	Not:          "NOT",
	Add:          "ADD",
	Subtract:     "SUBTRACT",
	Multiply:     "MULTIPLY",
	Divide:       "DIVIDE",
	Equal:        "EQUAL",
	NotEqual:     "NOT_EQUAL",
	Greater:      "GREATER",
	GreaterEqual: "GREATER_EQUAL",
	Less:         "LESS",
	LessEqual:    "LESS_EQUAL",
	Print:        "PRINT",
	DefineGlobal: "DEFINE_GLOBAL",
	GetGlobal:    "GET_GLOBAL",
	SetGlobal:    "SET_GLOBAL",
	GetLocal:     "GET_LOCAL",
	SetLocal:     "SET_LOCAL",
	Jump:         "JUMP",
	JumpFalse:    "JUMP_FALSE",
	Loop:         "LOOP",
	Return:       "RETURN",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(names) && names[o] != "" {
		return names[o]
	}
	return "UNKNOWN"
}
