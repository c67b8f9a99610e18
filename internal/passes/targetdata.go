package passes

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
	"github.com/roach88/modkit/internal/target"
)

// slotSize is the size in bytes of a global or a stack slot. Every value in
// a module is a 64-bit integer.
const slotSize = 8

// LayoutResult is the data layout of a module on a target machine.
type LayoutResult struct {
	Target      *target.Machine
	GlobalBytes int
	Frames      []Frame
}

// Frame is the stack frame size of one defined function.
type Frame struct {
	Function string
	Bytes    int
}

func (r *LayoutResult) Print(w io.Writer) error {
	t := r.Target
	if _, err := fmt.Fprintf(w, "  target: %s\n  pointer size: %d\n  endianness: %s\n  stack alignment: %d\n  global data: %d bytes\n",
		t.Name, t.PointerSize, t.Endian, t.StackAlign, r.GlobalBytes); err != nil {
		return err
	}
	for _, f := range r.Frames {
		if _, err := fmt.Fprintf(w, "  frame %s: %d bytes\n", f.Function, f.Bytes); err != nil {
			return err
		}
	}
	return nil
}

type targetData struct {
	base
	machine *target.Machine
}

func newTargetData(m *target.Machine) *targetData {
	return &targetData{
		base:    base{name: TargetData, gran: pass.Module, usage: analysisUsage},
		machine: m,
	}
}

func (p *targetData) Analyze(_ context.Context, _ pass.Analyses, u pass.Unit) (pass.Result, error) {
	if p.machine == nil {
		return nil, fmt.Errorf("%s: no target machine", TargetData)
	}
	r := &LayoutResult{Target: p.machine, GlobalBytes: len(u.Module.Globals) * slotSize}
	for _, fn := range u.Module.Functions {
		if fn.External {
			continue
		}
		r.Frames = append(r.Frames, Frame{Function: fn.Name, Bytes: frameSize(fn, p.machine.StackAlign)})
	}
	return r, nil
}

// frameSize is the space for fn's allocas rounded up to the stack alignment.
func frameSize(fn *ir.Function, align int) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op == ir.OpAlloca {
				n += slotSize
			}
		}
	}
	if align <= 1 || n%align == 0 {
		return n
	}
	return n + align - n%align
}
