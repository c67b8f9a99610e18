package passes

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// InstCountResult tallies the module's contents.
type InstCountResult struct {
	Functions int
	External  int
	Globals   int
	Blocks    int
	Instrs    int
	ByOpcode  map[ir.Opcode]int
}

func (r *InstCountResult) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "  functions: %d (%d external)\n  globals: %d\n  blocks: %d\n  instructions: %d\n",
		r.Functions, r.External, r.Globals, r.Blocks, r.Instrs); err != nil {
		return err
	}

	ops := make([]ir.Opcode, 0, len(r.ByOpcode))
	for op := range r.ByOpcode {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	for _, op := range ops {
		if _, err := fmt.Fprintf(w, "    %s: %d\n", op, r.ByOpcode[op]); err != nil {
			return err
		}
	}
	return nil
}

type instCount struct{ base }

func newInstCount() *instCount {
	return &instCount{base{name: InstCount, gran: pass.Module, usage: analysisUsage}}
}

func (p *instCount) Analyze(_ context.Context, _ pass.Analyses, u pass.Unit) (pass.Result, error) {
	m := u.Module
	r := &InstCountResult{Globals: len(m.Globals), ByOpcode: make(map[ir.Opcode]int)}
	for _, fn := range m.Functions {
		r.Functions++
		if fn.External {
			r.External++
		}
		r.Blocks += len(fn.Blocks)
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				r.Instrs++
				r.ByOpcode[in.Op]++
			}
		}
	}
	return r, nil
}
