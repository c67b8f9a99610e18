package passes

import (
	"context"

	"github.com/roach88/modkit/internal/pass"
)

// die deletes instructions of one block whose result has no use and that
// have no side effects. It makes a single sweep; dce iterates to a fixpoint.
type die struct{ base }

func newDIE() *die {
	return &die{base{name: DIE, gran: pass.Block, usage: pass.Usage{Requires: []string{DefUse}}}}
}

func (p *die) Run(ctx context.Context, an pass.Analyses, u pass.Unit) (bool, error) {
	du, err := defUseOf(ctx, an, u)
	if err != nil {
		return false, err
	}

	b := u.Block
	kept := b.Instrs[:0]
	for _, in := range b.Instrs {
		if removable(in) && !du.Used(in.Def) {
			continue
		}
		kept = append(kept, in)
	}
	changed := len(kept) != len(b.Instrs)
	b.Instrs = kept
	return changed, nil
}
