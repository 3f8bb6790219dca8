// Command kozi is Kozi's primary entry point: no arguments drops into the
// REPL, one argument runs that file, and anything else is a usage error.
// The exit code contract (0/64/65/70) mirrors the teacher's cmd_run.go, its
// subcommand generalized into the whole program since a single binary with
// no subcommand dispatch is what the language's CLI section specifies.
package main

import (
	"fmt"
	"os"

	"kozi/internal/bytecode"
	"kozi/internal/compiler"
	"kozi/internal/heap"
	"kozi/internal/repl"
	"kozi/internal/vm"
)

const (
	exitOK          = 0
	exitUsage       = 64
	exitCompileFail = 65
	exitRuntimeFail = 70
)

func main() {
	switch len(os.Args) {
	case 1:
		repl.Run(os.Stdin, os.Stdout)
	case 2:
		os.Exit(runFile(os.Args[1]))
	default:
		fmt.Fprintln(os.Stderr, "Usage: kozi <path>")
		os.Exit(exitUsage)
	}
}

func runFile(path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not read file '%s'.\n", path)
		return exitUsage
	}

	gc := heap.New()
	fn := bytecode.New()
	c := compiler.New(string(src), fn, gc, os.Stderr)
	if !c.Compile() {
		return exitCompileFail
	}

	machine := vm.New(gc, os.Stdout, os.Stderr)
	if status := machine.Interpret(fn); status != vm.Ok {
		return exitRuntimeFail
	}
	return exitOK
}
