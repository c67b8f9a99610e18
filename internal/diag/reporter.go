package diag

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Reporter writes diagnostics to the error stream, each prefixed with the
// tool name ("modopt: ...").
type Reporter struct {
	Tool string
	W    io.Writer

	count int
}

// NewReporter creates a Reporter for tool writing to w.
func NewReporter(tool string, w io.Writer) *Reporter {
	return &Reporter{Tool: tool, W: w}
}

// Printf writes one prefixed diagnostic line.
func (r *Reporter) Printf(format string, args ...any) {
	r.count++
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintf(r.W, "%s: %s\n", r.Tool, msg)
}

// Error reports err. Uncategorized errors get the generic message.
func (r *Reporter) Error(err error) {
	if err == nil {
		return
	}
	var de *Error
	if !errors.As(err, &de) {
		r.Printf("Unexpected unknown exception occurred: %v", err)
		return
	}
	r.Printf("%v", err)
}

// Detail writes text after a diagnostic without the prefix.
func (r *Reporter) Detail(text string) {
	if text == "" {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	io.WriteString(r.W, text)
}

// Count returns the number of diagnostics reported so far.
func (r *Reporter) Count() int {
	return r.count
}
