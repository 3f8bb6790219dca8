// Package repl implements Kozi's interactive prompt: one GC heap and one VM
// live for the whole session (each line is compiled into a fresh Function),
// so `let` bindings declared on one line are visible as globals on the
// next, the way the teacher's own REPL
// surface persists state across commands typed into cmd_run.
package repl

import (
	"bufio"
	"fmt"
	"io"

	"kozi/internal/bytecode"
	"kozi/internal/compiler"
	"kozi/internal/heap"
	"kozi/internal/vm"
)

const prompt = "> "

// Run reads lines from in, compiling and interpreting each one against a
// shared global namespace, until EOF. Output and diagnostics go to out.
func Run(in io.Reader, out io.Writer) {
	gc := heap.New()
	machine := vm.New(gc, out, out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		fn := bytecode.New()
		c := compiler.New(line, fn, gc, out)
		if !c.Compile() {
			continue
		}
		machine.Interpret(fn)
	}
}
