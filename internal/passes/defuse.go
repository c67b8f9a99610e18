package passes

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// Site locates a definition or use inside a function.
type Site struct {
	Block string
	Index int // instruction index; -1 for a parameter
}

func (s Site) String() string {
	if s.Index < 0 {
		return "param"
	}
	return fmt.Sprintf("%s#%d", s.Block, s.Index)
}

// DefUseInfo maps every local value of one function to its definition and
// its uses.
type DefUseInfo struct {
	Function string
	Defs     map[string]Site
	Uses     map[string][]Site

	order []string
}

// Used reports whether value has at least one use.
func (d *DefUseInfo) Used(value string) bool {
	return len(d.Uses[value]) > 0
}

// Values returns the defined values in definition order.
func (d *DefUseInfo) Values() []string {
	return append([]string(nil), d.order...)
}

// Print writes one line per value: its definition site and use sites.
func (d *DefUseInfo) Print(w io.Writer) error {
	for _, v := range d.order {
		uses := "none"
		if sites := d.Uses[v]; len(sites) > 0 {
			parts := make([]string, len(sites))
			for i, s := range sites {
				parts[i] = s.String()
			}
			uses = strings.Join(parts, ", ")
		}
		if _, err := fmt.Fprintf(w, "  %%%s: def %s, uses %s\n", v, d.Defs[v], uses); err != nil {
			return err
		}
	}
	return nil
}

func computeDefUse(fn *ir.Function) *DefUseInfo {
	d := &DefUseInfo{
		Function: fn.Name,
		Defs:     make(map[string]Site),
		Uses:     make(map[string][]Site),
	}
	define := func(v string, s Site) {
		if _, seen := d.Defs[v]; !seen {
			d.order = append(d.order, v)
		}
		d.Defs[v] = s
	}

	for _, p := range fn.Params {
		define(p, Site{Index: -1})
	}
	for _, b := range fn.Blocks {
		for i, in := range b.Instrs {
			if in.Def != "" {
				define(in.Def, Site{Block: b.Label, Index: i})
			}
			for _, arg := range in.Args {
				if v, ok := valueOperand(arg); ok {
					d.Uses[v] = append(d.Uses[v], Site{Block: b.Label, Index: i})
				}
			}
		}
	}
	return d
}

type defUse struct{ base }

func newDefUse() *defUse {
	return &defUse{base{name: DefUse, gran: pass.Function, usage: analysisUsage}}
}

func (p *defUse) Analyze(_ context.Context, _ pass.Analyses, u pass.Unit) (pass.Result, error) {
	return computeDefUse(u.Function), nil
}

// defUseOf fetches the def-use result for u's function.
func defUseOf(ctx context.Context, an pass.Analyses, u pass.Unit) (*DefUseInfo, error) {
	res, err := an.Get(ctx, DefUse, u)
	if err != nil {
		return nil, err
	}
	du, ok := res.(*DefUseInfo)
	if !ok {
		return nil, fmt.Errorf("analysis %s returned %T", DefUse, res)
	}
	return du, nil
}
