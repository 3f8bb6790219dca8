// Command kozidebug is a developer tool for inspecting the scanner and
// compiler stages in isolation, structured on the teacher's subcommand
// dispatch (main.go's subcommands.Register calls, cmd_dump.go's dumpCmd):
// its "tokens" subcommand mirrors the teacher's dump, and "bytecode" mirrors
// its compile, generalized to Kozi's own token kinds and instruction set.
// It is a side binary: cmd/kozi's own argc/exit-code contract has no room
// for subcommand dispatch, so this lives next to it instead of inside it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"kozi/internal/bytecode"
	"kozi/internal/compiler"
	"kozi/internal/heap"
	"kozi/internal/lexer"
	"kozi/internal/token"
	"kozi/internal/vm"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&tokensCmd{}, "")
	subcommands.Register(&bytecodeCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

type tokensCmd struct{}

func (*tokensCmd) Name() string     { return "tokens" }
func (*tokensCmd) Synopsis() string { return "Scan the given file and print its token stream." }
func (*tokensCmd) Usage() string {
	return `tokens <file>:
Scan the file and print one line per token (or scan error) encountered.
`
}
func (*tokensCmd) SetFlags(*flag.FlagSet) {}

func (*tokensCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	for _, file := range f.Args() {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading %s: %s\n", file, err)
			return subcommands.ExitFailure
		}

		l := lexer.New(string(src))
		for {
			tok, scanErr := l.NextToken()
			if scanErr != nil {
				fmt.Printf("%d:%d error: %s\n", scanErr.Line, scanErr.Column, scanErr.Message)
				continue
			}
			fmt.Printf("%d:%d %-14s %q\n", tok.Line, tok.Column, tok.Kind, tok.Lexeme)
			if tok.Kind == token.EOF {
				break
			}
		}
	}
	return subcommands.ExitSuccess
}

type bytecodeCmd struct{}

func (*bytecodeCmd) Name() string     { return "bytecode" }
func (*bytecodeCmd) Synopsis() string { return "Compile the given file and disassemble it." }
func (*bytecodeCmd) Usage() string {
	return `bytecode <file>:
Compile the file and print its disassembled instruction stream.
`
}
func (*bytecodeCmd) SetFlags(*flag.FlagSet) {}

func (*bytecodeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	for _, file := range f.Args() {
		src, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error reading %s: %s\n", file, err)
			return subcommands.ExitFailure
		}

		gc := heap.New()
		fn := bytecode.New()
		c := compiler.New(string(src), fn, gc, os.Stderr)
		if !c.Compile() {
			return subcommands.ExitFailure
		}
		vm.Disassemble(os.Stdout, file, fn)
	}
	return subcommands.ExitSuccess
}
