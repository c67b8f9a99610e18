// Package asm reads and writes the textual module form. The text is a CUE
// document unified with the embedded #Module schema, so every structural
// error carries a source position.
package asm

import (
	_ "embed"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/token"

	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// StdinName is the file name reported for text read from standard input.
const StdinName = "<stdin>"

// ParseError is a malformed-text error with the position of the first
// offending token.
type ParseError struct {
	Message string
	Pos     token.Pos
	More    int // further errors reported by CUE
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.More > 0 {
		msg = fmt.Sprintf("%s (and %d more errors)", msg, e.More)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, msg)
	}
	return msg
}

// Parse decodes the text form of a module. name is used in error positions.
// Failures are diag.ParseFailure errors wrapping a *ParseError.
func Parse(name string, data []byte) (*ir.Module, error) {
	if name == "" || name == "-" {
		name = StdinName
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile module schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(name))
	if err := doc.Err(); err != nil {
		return nil, parseFailure(name, err)
	}

	v := schema.LookupPath(cue.ParsePath("#Module")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, parseFailure(name, err)
	}

	var m ir.Module
	if err := v.Decode(&m); err != nil {
		return nil, parseFailure(name, err)
	}
	return &m, nil
}

// Format writes the text form of m. Parse(Format(m)) yields a module equal
// to m.
func Format(w io.Writer, m *ir.Module) error {
	ctx := cuecontext.New()
	v := ctx.Encode(m)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode module: %w", err)
	}

	src, err := format.Node(v.Syntax(cue.Concrete(true)), format.Simplify())
	if err != nil {
		return fmt.Errorf("format module: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return err
	}
	if len(src) > 0 && src[len(src)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// parseFailure converts a CUE error into a ParseFailure. The first error is
// kept, positioned in the input file when CUE reports such a position.
func parseFailure(file string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return diag.Wrap(diag.ParseFailure, &ParseError{Message: err.Error()}, "")
	}

	first := errs[0]
	pe := &ParseError{Message: first.Error(), More: len(errs) - 1}
	for _, pos := range errors.Positions(first) {
		if !pe.Pos.IsValid() || pos.Filename() == file {
			pe.Pos = pos
		}
		if pos.Filename() == file {
			break
		}
	}
	return diag.Wrap(diag.ParseFailure, pe, "")
}
