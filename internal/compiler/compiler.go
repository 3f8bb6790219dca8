// Package compiler is Kozi's single-pass Pratt compiler. Like the teacher's
// compiler.Compiler, it drives the scanner token by token and emits
// bytecode directly with no intermediate AST; unlike the teacher (whose
// forward references are label names patched through a fixups map), Kozi's
// control flow is fully structured, so jumps are patched immediately after
// their body compiles, the way a single-token-lookahead Pratt parser does.
package compiler

import (
	"io"
	"strconv"

	"kozi/internal/bytecode"
	"kozi/internal/diag"
	"kozi/internal/heap"
	"kozi/internal/lexer"
	"kozi/internal/opcode"
	"kozi/internal/token"
	"kozi/internal/value"
)

// maxLocals bounds the compiler's fixed local array, and therefore how
// many local let bindings a single function body may declare.
const maxLocals = 256

// local is a lexical binding awaiting resolution. depth == -1 means
// "declared but not yet initialized" — reading it in that state is a
// compile error, since it would read the old value of a shadowed outer
// binding or garbage off the stack.
type local struct {
	name  token.Token
	depth int
}

// Compiler compiles one source buffer into a bytecode.Function.
type Compiler struct {
	lexer *lexer.Lexer
	fn    *bytecode.Function
	gc    *heap.GC
	sink  io.Writer

	previous token.Token
	current  token.Token

	hadError  bool
	panicMode bool

	locals     [maxLocals]local
	localCount int
	scopeDepth int
}

// New creates a Compiler bound to fn, ready to consume src. Diagnostics are
// written to sink, per the design note on threading an output handle
// through constructors instead of a process-wide sink.
func New(src string, fn *bytecode.Function, gc *heap.GC, sink io.Writer) *Compiler {
	c := &Compiler{lexer: lexer.New(src), fn: fn, gc: gc, sink: sink}
	c.advance()
	return c
}

// Compile parses and emits declarations until EOF, then emits the top-level
// Return. It returns true iff no errors were recorded; compilation always
// runs to end of file so multiple errors can be reported in one pass.
func (c *Compiler) Compile() bool {
	for c.current.Kind != token.EOF {
		c.declaration()
	}
	c.emitOp(opcode.Return)
	return !c.hadError
}

// ---- token stream -------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		tok, scanErr := c.lexer.NextToken()
		if scanErr == nil {
			c.current = tok
			return
		}
		c.reportError(scanErr.Line, scanErr.Column, scanErr.Message)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, message string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// ---- error reporting -----------------------------------------------------

func (c *Compiler) reportError(line, column int, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	diag.CompileError(c.sink, line, column, message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.reportError(c.current.Line, c.current.Column, message)
}

func (c *Compiler) error(message string) {
	c.reportError(c.previous.Line, c.previous.Column, message)
}

// synchronize discards tokens until a likely statement boundary, so one bad
// token doesn't cascade into a wall of spurious errors.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.Semicolon {
			return
		}
		switch c.current.Kind {
		case token.Class, token.Fun, token.Let, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

// ---- emission -------------------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.fn.WriteByte(b, c.previous.Line)
}

func (c *Compiler) emitOp(op opcode.Op) {
	c.emitByte(byte(op))
}

func (c *Compiler) emitU16(v int) {
	c.emitByte(byte(v >> 8))
	c.emitByte(byte(v & 0xff))
}

func (c *Compiler) emitOpU16(op opcode.Op, v int) {
	c.emitOp(op)
	c.emitU16(v)
}

func (c *Compiler) emitConstant(v value.Value) {
	idx, err := c.fn.AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.emitOpU16(opcode.Constant, idx)
}

// emitJump writes op followed by a two-byte placeholder and returns the
// placeholder's offset, for patchJump to back-fill once the jump target is
// known.
func (c *Compiler) emitJump(op opcode.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.fn.Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.fn.Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.fn.Code[offset] = byte(jump >> 8)
	c.fn.Code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits a backward Loop to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(opcode.Loop)

	offset := len(c.fn.Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Too much code to jump over.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset & 0xff))
}

// ---- declarations and statements ------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(token.Let):
		c.letDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) letDeclaration() {
	global := c.parseVariable("Expect let binding name.")

	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emitOp(opcode.Nil)
	}
	c.consume(token.Semicolon, "Expect ';' after let binding declaration.")

	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitOp(opcode.Print)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitOp(opcode.Pop)
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitOp(opcode.Pop)
		c.localCount--
	}
}

// ifStatement compiles:
//
//	<cond>
//	JumpFalse A
//	Pop
//	<then>
//	Jump B
//	A: Pop
//	<else or nothing>
//	B:
func (c *Compiler) ifStatement() {
	c.consume(token.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(opcode.JumpFalse)
	c.emitOp(opcode.Pop)
	c.statement()

	elseJump := c.emitJump(opcode.Jump)

	c.patchJump(thenJump)
	c.emitOp(opcode.Pop)

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.fn.Code)

	c.consume(token.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(opcode.JumpFalse)
	c.emitOp(opcode.Pop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(opcode.Pop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Let):
		c.letDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.fn.Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")

		exitJump = c.emitJump(opcode.JumpFalse)
		c.emitOp(opcode.Pop)
	}

	if !c.match(token.RightParen) {
		bodyJump := c.emitJump(opcode.Jump)

		incrementStart := len(c.fn.Code)
		c.expression()
		c.emitOp(opcode.Pop)
		c.consume(token.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(opcode.Pop)
	}

	c.endScope()
}

// ---- variables -------------------------------------------------------------

// parseVariable consumes an identifier and declares it: as a local if
// inside a scope, or as a global-name constant (whose pool index is
// returned) at the top level.
func (c *Compiler) parseVariable(message string) int {
	c.consume(token.Identifier, message)
	name := c.previous
	c.declareVariable(name)
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) identifierConstant(name token.Token) int {
	obj := c.gc.Intern([]byte(name.Lexeme))
	idx, err := c.fn.AddConstant(value.NewString(obj))
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return idx
}

func (c *Compiler) declareVariable(name token.Token) {
	if c.scopeDepth == 0 {
		return
	}

	for i := c.localCount - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.error("Already a let binding with this name in this scope.")
		}
	}

	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if c.localCount == maxLocals {
		c.error("Too many local let bindings in function.")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: -1}
	c.localCount++
}

func (c *Compiler) defineVariable(global int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpU16(opcode.DefineGlobal, global)
}

func (c *Compiler) markInitialized() {
	c.locals[c.localCount-1].depth = c.scopeDepth
}

// resolveLocal scans from the most recently declared local down to the
// oldest, returning the first matching slot. An explicit signed descending
// loop, not an unsigned counter decremented past zero.
func (c *Compiler) resolveLocal(name token.Token) (slot int, ok bool) {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].name.Lexeme == name.Lexeme {
			return i, true
		}
	}
	return 0, false
}

func (c *Compiler) variable(canAssign bool) { c.namedVariable(c.previous, canAssign) }

// namedVariable resolves name to a local or global slot and, if canAssign
// and the next token is one of the assignment forms, compiles the RHS and
// emits the matching setter; otherwise emits the getter.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	slot, isLocal := c.resolveLocal(name)

	var getOp, setOp opcode.Op
	if isLocal {
		if c.locals[slot].depth == -1 {
			c.error("Can't read local let binding in its own initializer.")
		}
		getOp, setOp = opcode.GetLocal, opcode.SetLocal
	} else {
		slot = c.identifierConstant(name)
		getOp, setOp = opcode.GetGlobal, opcode.SetGlobal
	}

	if !canAssign {
		c.emitOpU16(getOp, slot)
		return
	}

	switch {
	case c.match(token.Equal):
		c.expression()
		c.emitOpU16(setOp, slot)
	case c.match(token.PlusEqual):
		c.compoundAssign(getOp, setOp, slot, opcode.Add)
	case c.match(token.MinusEqual):
		c.compoundAssign(getOp, setOp, slot, opcode.Subtract)
	case c.match(token.StarEqual):
		c.compoundAssign(getOp, setOp, slot, opcode.Multiply)
	case c.match(token.SlashEqual):
		c.compoundAssign(getOp, setOp, slot, opcode.Divide)
	default:
		c.emitOpU16(getOp, slot)
	}
}

func (c *Compiler) compoundAssign(getOp, setOp opcode.Op, slot int, op opcode.Op) {
	c.emitOpU16(getOp, slot)
	c.expression()
	c.emitOp(op)
	c.emitOpU16(setOp, slot)
}

// ---- expressions -----------------------------------------------------------

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

// parsePrecedence advances once, invokes the previous token's prefix rule
// (an "Expect expression." error if it has none), then keeps consuming
// infix operators whose own precedence is at least prec.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefixRule := getRule(c.previous.Kind).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= getRule(c.current.Kind).prec {
		c.advance()
		infixRule := getRule(c.previous.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.NewNumber(n))
}

func (c *Compiler) stringLiteral(canAssign bool) {
	obj := c.gc.Intern([]byte(c.previous.Lexeme))
	c.emitConstant(value.NewString(obj))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Kind {
	case token.False:
		c.emitOp(opcode.False)
	case token.True:
		c.emitOp(opcode.True)
	case token.Nil:
		c.emitOp(opcode.Nil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(token.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	kind := c.previous.Kind
	c.parsePrecedence(precUnary)

	switch kind {
	case token.Minus:
		c.emitOp(opcode.Negate)
	case token.Bang:
		c.emitOp(opcode.Not)
	}
}

func (c *Compiler) binary(canAssign bool) {
	kind := c.previous.Kind
	r := getRule(kind)
	c.parsePrecedence(r.prec + 1)

	switch kind {
	case token.Plus:
		c.emitOp(opcode.Add)
	case token.Minus:
		c.emitOp(opcode.Subtract)
	case token.Star:
		c.emitOp(opcode.Multiply)
	case token.Slash:
		c.emitOp(opcode.Divide)
	case token.BangEqual:
		c.emitOp(opcode.NotEqual)
	case token.EqualEqual:
		c.emitOp(opcode.Equal)
	case token.Greater:
		c.emitOp(opcode.Greater)
	case token.GreaterEqual:
		c.emitOp(opcode.GreaterEqual)
	case token.Less:
		c.emitOp(opcode.Less)
	case token.LessEqual:
		c.emitOp(opcode.LessEqual)
	}
}

// and_ compiles short-circuit logical and: if the LHS (still on the stack)
// is falsey, skip the RHS and leave the LHS as the result.
func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(opcode.JumpFalse)
	c.emitOp(opcode.Pop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or_ compiles short-circuit logical or: if the LHS is truthy, skip the RHS.
func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(opcode.JumpFalse)
	endJump := c.emitJump(opcode.Jump)
	c.patchJump(elseJump)
	c.emitOp(opcode.Pop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}
