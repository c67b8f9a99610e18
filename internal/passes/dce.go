package passes

import (
	"context"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// dce removes blocks unreachable from the entry block, then deletes unused
// side-effect-free instructions until none remain.
type dce struct{ base }

func newDCE() *dce {
	return &dce{base{name: DCE, gran: pass.Function}}
}

func (p *dce) Run(_ context.Context, _ pass.Analyses, u pass.Unit) (bool, error) {
	fn := u.Function
	changed := removeUnreachable(fn)

	for {
		du := computeDefUse(fn)
		removed := false
		for _, b := range fn.Blocks {
			kept := b.Instrs[:0]
			for _, in := range b.Instrs {
				if removable(in) && !du.Used(in.Def) {
					removed = true
					continue
				}
				kept = append(kept, in)
			}
			b.Instrs = kept
		}
		if !removed {
			return changed, nil
		}
		changed = true
	}
}

// removeUnreachable drops blocks not reachable from the first block and the
// phi entries that named them.
func removeUnreachable(fn *ir.Function) bool {
	if len(fn.Blocks) == 0 {
		return false
	}

	reachable := map[string]bool{fn.Blocks[0].Label: true}
	work := []*ir.Block{fn.Blocks[0]}
	for len(work) > 0 {
		b := work[0]
		work = work[1:]
		for _, s := range b.Successors() {
			if reachable[s] {
				continue
			}
			reachable[s] = true
			if next := fn.Block(s); next != nil {
				work = append(work, next)
			}
		}
	}

	kept := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if reachable[b.Label] {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(fn.Blocks) {
		return false
	}
	fn.Blocks = kept

	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op != ir.OpPhi {
				continue
			}
			var args []string
			for i := 0; i+1 < len(in.Args); i += 2 {
				if label, ok := labelOperand(in.Args[i]); ok && !reachable[label] {
					continue
				}
				args = append(args, in.Args[i], in.Args[i+1])
			}
			in.Args = args
		}
	}
	return true
}
