package harness

import (
	"fmt"
	"io"
)

// Logger writes prefixed single-line messages. The harness logs through
// this rather than returning warnings because its output interleaves
// with DUT console traffic in live runs and needs to be tellable apart.
type Logger struct {
	w      io.Writer
	prefix string
}

// NewLogger builds a logger with a source tag, e.g. "OTB" or "TEST".
func NewLogger(w io.Writer, prefix string) *Logger {
	return &Logger{w: w, prefix: prefix}
}

// Inf logs an informational line.
func (l *Logger) Inf(format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}
	fmt.Fprintf(l.w, "[%s][INF] %s\n", l.prefix, fmt.Sprintf(format, args...))
}

// Err logs an error line.
func (l *Logger) Err(format string, args ...any) {
	if l == nil || l.w == nil {
		return
	}
	fmt.Fprintf(l.w, "[%s][ERR] %s\n", l.prefix, fmt.Sprintf(format, args...))
}
