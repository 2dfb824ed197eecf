package output

import (
	"fmt"
	"io"
)

// Infof prints an informational line with an info prefix.
func Infof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, "ℹ️  "+fmt.Sprintf(format, args...))
}

// Warnf prints a warning line with a warning prefix.
func Warnf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, "⚠️  "+fmt.Sprintf(format, args...))
}

// Successf prints a success line with a success prefix.
func Successf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, "✅ "+fmt.Sprintf(format, args...))
}

// Failuref prints a failure line with a failure prefix.
func Failuref(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, "❌ "+fmt.Sprintf(format, args...))
}
