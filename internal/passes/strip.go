package passes

import (
	"context"
	"fmt"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// strip renames the local values and block labels of every defined function
// to positional names: values v0, v1, ... (parameters first) and labels
// bb0, bb1, ... in block order.
type strip struct{ base }

func newStrip() *strip {
	return &strip{base{name: Strip, gran: pass.Module}}
}

func (p *strip) Run(_ context.Context, _ pass.Analyses, u pass.Unit) (bool, error) {
	changed := false
	for _, fn := range u.Module.Functions {
		if !fn.External && stripFunction(fn) {
			changed = true
		}
	}
	return changed, nil
}

func stripFunction(fn *ir.Function) bool {
	values := make(map[string]string)
	labels := make(map[string]string)
	changed := false

	rename := func(names map[string]string, old, prefix string) string {
		if n, ok := names[old]; ok {
			return n
		}
		n := fmt.Sprintf("%s%d", prefix, len(names))
		names[old] = n
		if n != old {
			changed = true
		}
		return n
	}

	for i, param := range fn.Params {
		fn.Params[i] = rename(values, param, "v")
	}
	for _, b := range fn.Blocks {
		b.Label = rename(labels, b.Label, "bb")
		for _, in := range b.Instrs {
			if in.Def != "" {
				in.Def = rename(values, in.Def, "v")
			}
		}
	}

	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			for j, arg := range in.Args {
				if name, ok := valueOperand(arg); ok {
					if n, known := values[name]; known {
						in.Args[j] = ir.Value(n)
					}
				} else if name, ok := labelOperand(arg); ok {
					if n, known := labels[name]; known {
						in.Args[j] = "^" + n
					}
				}
			}
		}
	}
	return changed
}
