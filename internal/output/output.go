// Package output decides whether and where a binary module may be written.
//
// Resolve applies the pre-write rules: an existing file is never replaced
// without force, and binary output is never sent to a terminal without
// force. Open creates the file only when the module is ready to be written
// and registers it with the cleanup Registry until it is committed, so an
// interrupted run leaves no half-written file behind.
package output

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/roach88/modkit/internal/bytecode"
	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/ir"
)

// Stdout is the path naming standard output.
const Stdout = "-"

// Text and binary file extensions.
const (
	TextExt   = ".ll"
	BinaryExt = ".bc"
)

// ConsoleWarning is printed when binary output to a terminal is refused.
const ConsoleWarning = `you're attempting to print out a binary module.
This is inadvisable as it may cause display problems. If
you REALLY want to taste the module first-hand, you
can force output with the '-f' option.`

// Target is a requested output destination.
type Target struct {
	Path     string // file path or Stdout
	Force    bool   // overwrite existing files, write to terminals
	Compress bool
	Quiet    bool // suppress the console warning
}

// IsStdout reports whether t names standard output.
func (t Target) IsStdout() bool {
	return t.Path == "" || t.Path == Stdout
}

// Gate resolves output targets.
type Gate struct {
	Stdout io.Writer

	// IsTerminal reports whether a stream is attached to a terminal.
	// Defaults to IsTerminal.
	IsTerminal func(io.Writer) bool

	// Cleanup tracks files that must be removed if the run is interrupted.
	Cleanup *Registry
}

// Plan is a resolved destination. Nothing has been opened yet.
type Plan struct {
	target  Target
	gate    *Gate
	existed bool

	file *os.File
	w    io.Writer
}

// Resolve checks t against the pre-write rules. It fails with OutputConflict
// when t names an existing regular file and force is off, and with
// UnsafeDestination when t is a terminal and force is off. No stream is
// opened and no file is created.
func (g *Gate) Resolve(t Target) (*Plan, error) {
	p := &Plan{target: t, gate: g}

	if t.IsStdout() {
		if !t.Force && g.isTerminal(g.Stdout) {
			return nil, diag.New(diag.UnsafeDestination, "%s", ConsoleWarning)
		}
		return p, nil
	}

	info, err := os.Stat(t.Path)
	switch {
	case err == nil:
		p.existed = true
		if info.Mode().IsRegular() && !t.Force {
			return nil, conflict(t.Path)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, diag.Wrap(diag.IOFailure, err, "error opening '%s'", t.Path)
	}
	return p, nil
}

func conflict(path string) error {
	return diag.New(diag.OutputConflict, "error opening '%s': file exists!\nUse -f command line argument to force output", path)
}

// Path returns the destination path, Stdout for standard output.
func (p *Plan) Path() string {
	if p.target.IsStdout() {
		return Stdout
	}
	return p.target.Path
}

// Open returns the stream to write to, creating the file if needed. A
// created file stays registered for cleanup until Commit or Abort.
func (p *Plan) Open() (io.Writer, error) {
	if p.w != nil {
		return p.w, nil
	}
	if p.target.IsStdout() {
		p.w = p.gate.Stdout
		return p.w, nil
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !p.existed {
		// The file appeared after Resolve.
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(p.target.Path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) && !p.target.Force {
			return nil, conflict(p.target.Path)
		}
		return nil, diag.Wrap(diag.IOFailure, err, "error opening '%s'", p.target.Path)
	}

	if !p.target.Force && p.gate.isTerminal(f) {
		f.Close()
		if !p.existed {
			os.Remove(f.Name())
		}
		return nil, diag.New(diag.UnsafeDestination, "%s", ConsoleWarning)
	}

	p.file = f
	p.w = f
	if !p.existed {
		p.gate.Cleanup.Add(f.Name())
	}
	return f, nil
}

// Commit closes the file and keeps it.
func (p *Plan) Commit() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.gate.Cleanup.Remove(p.file.Name())
	p.file = nil
	if err != nil {
		return diag.Wrap(diag.IOFailure, err, "error writing '%s'", p.target.Path)
	}
	return nil
}

// Abort closes and deletes a file created by Open.
func (p *Plan) Abort() error {
	if p.file == nil {
		return nil
	}
	name := p.file.Name()
	p.file.Close()
	p.file = nil
	p.gate.Cleanup.Remove(name)
	if p.existed {
		return nil
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Emit serializes m to the plan's destination: open, write, commit. A write
// failure aborts the plan.
func (p *Plan) Emit(m *ir.Module) error {
	w, err := p.Open()
	if err != nil {
		return err
	}
	if err := bytecode.Write(w, m, bytecode.Options{Compress: p.target.Compress}); err != nil {
		p.Abort()
		return diag.Wrap(diag.IOFailure, err, "error writing '%s'", p.Path())
	}
	return p.Commit()
}

func (g *Gate) isTerminal(w io.Writer) bool {
	if g.IsTerminal != nil {
		return g.IsTerminal(w)
	}
	return IsTerminal(w)
}

// IsTerminal reports whether w is a file descriptor attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// DefaultPath derives the output path from the input path: standard input
// maps to standard output, "X.ll" to "X.bc", anything else gains ".bc".
func DefaultPath(input string) string {
	if input == "" || input == Stdout {
		return Stdout
	}
	return strings.TrimSuffix(input, TextExt) + BinaryExt
}
