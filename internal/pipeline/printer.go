package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/modkit/internal/pass"
)

// Printer is a read-only stage that prints the result of the analysis it
// wraps. Its granularity is the wrapped analysis's, fixed at construction:
// a module printer runs once, a function printer once per function and a
// block printer once per block.
type Printer struct {
	analysis pass.Analysis
	desc     string
	w        io.Writer
	quiet    bool
	gran     pass.Granularity
}

// NewPrinter wraps a. desc names the analysis in headers. In quiet mode
// nothing is written, but the result is still fetched.
func NewPrinter(a pass.Analysis, desc string, w io.Writer, quiet bool) *Printer {
	return &Printer{analysis: a, desc: desc, w: w, quiet: quiet, gran: a.Granularity()}
}

func (p *Printer) Name() string                  { return "print<" + p.analysis.Name() + ">" }
func (p *Printer) Granularity() pass.Granularity { return p.gran }

// Usage requires the wrapped analysis and preserves everything.
func (p *Printer) Usage() pass.Usage {
	return pass.Usage{Requires: []string{p.analysis.Name()}, PreservesAll: true}
}

// Run prints the analysis result for u. It never changes the module.
func (p *Printer) Run(ctx context.Context, an pass.Analyses, u pass.Unit) (bool, error) {
	res, err := an.Get(ctx, p.analysis.Name(), u)
	if err != nil {
		return false, err
	}
	if p.quiet {
		return false, nil
	}

	if _, err := io.WriteString(p.w, p.header(u)); err != nil {
		return false, err
	}
	return false, res.Print(p.w)
}

func (p *Printer) header(u pass.Unit) string {
	switch p.gran {
	case pass.Function:
		return fmt.Sprintf("Printing analysis '%s' for function '%s':\n", p.desc, u.Function.Name)
	case pass.Block:
		return fmt.Sprintf("Printing analysis '%s' for block '%s' in function '%s':\n", p.desc, u.Block.Label, u.Function.Name)
	}
	return fmt.Sprintf("Printing analysis '%s':\n", p.desc)
}
