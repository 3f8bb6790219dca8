// Package diag formats the two diagnostic shapes the compiler and VM report.
// Keeping the format in one place, instead of scattering fmt.Fprintf calls
// the way the teacher's Compiler.nextError does, is what lets both
// producers stay textually in sync with the contract in section 6.
package diag

import (
	"fmt"
	"io"
)

// CompileError writes "[line L:C] Error: <message>\n" to w.
func CompileError(w io.Writer, line, column int, message string) {
	fmt.Fprintf(w, "[line %d:%d] Error: %s\n", line, column, message)
}

// RuntimeError writes "<message>\n[line L] in script\n" to w.
func RuntimeError(w io.Writer, line int, message string) {
	fmt.Fprintf(w, "%s\n[line %d] in script\n", message, line)
}
