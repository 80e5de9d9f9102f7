// Package logging provides a package-level, injectable-writer log sink.
package logging

import (
	"fmt"
	"io"
	"os"
)

var writer io.Writer = os.Stdout

// SetWriter redirects log output. A nil w restores stdout.
func SetWriter(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	writer = w
}

// Logf writes a formatted log line.
func Logf(format string, args ...any) {
	fmt.Fprintln(writer, fmt.Sprintf(format, args...))
}
