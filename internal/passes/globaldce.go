package passes

import (
	"context"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// globalDCE removes functions and globals that nothing live refers to.
// Exported symbols and "main" are the roots.
type globalDCE struct{ base }

func newGlobalDCE() *globalDCE {
	return &globalDCE{base{name: GlobalDCE, gran: pass.Module}}
}

func (p *globalDCE) Run(_ context.Context, _ pass.Analyses, u pass.Unit) (bool, error) {
	m := u.Module
	live := make(map[string]bool)
	var work []*ir.Function

	mark := func(name string) {
		if live[name] {
			return
		}
		live[name] = true
		if fn := m.Function(name); fn != nil {
			work = append(work, fn)
		}
	}

	for _, g := range m.Globals {
		if g.Exported {
			mark(g.Name)
		}
	}
	for _, fn := range m.Functions {
		if fn.Exported || fn.Name == "main" {
			mark(fn.Name)
		}
	}

	for len(work) > 0 {
		fn := work[0]
		work = work[1:]
		for _, b := range fn.Blocks {
			for _, in := range b.Instrs {
				for _, arg := range in.Args {
					if name, ok := symbolOperand(arg); ok {
						mark(name)
					}
				}
			}
		}
	}

	changed := false
	functions := m.Functions[:0]
	for _, fn := range m.Functions {
		if live[fn.Name] {
			functions = append(functions, fn)
		} else {
			changed = true
		}
	}
	m.Functions = functions

	globals := m.Globals[:0]
	for _, g := range m.Globals {
		if live[g.Name] {
			globals = append(globals, g)
		} else {
			changed = true
		}
	}
	m.Globals = globals

	return changed, nil
}
