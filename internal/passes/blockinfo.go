package passes

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/modkit/internal/pass"
)

// BlockInfoResult summarizes one basic block.
type BlockInfoResult struct {
	Instrs       int
	Defs         int
	Predecessors []string
	Successors   []string
}

func (r *BlockInfoResult) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "  instructions: %d\n  values defined: %d\n  predecessors: %s\n  successors: %s\n",
		r.Instrs, r.Defs, labelList(r.Predecessors), labelList(r.Successors))
	return err
}

func labelList(labels []string) string {
	if len(labels) == 0 {
		return "(none)"
	}
	return strings.Join(labels, ", ")
}

type blockInfo struct{ base }

func newBlockInfo() *blockInfo {
	return &blockInfo{base{name: BlockInfo, gran: pass.Block, usage: analysisUsage}}
}

func (p *blockInfo) Analyze(_ context.Context, _ pass.Analyses, u pass.Unit) (pass.Result, error) {
	b := u.Block
	r := &BlockInfoResult{Instrs: len(b.Instrs), Successors: b.Successors()}
	for _, in := range b.Instrs {
		if in.Def != "" {
			r.Defs++
		}
	}
	for _, other := range u.Function.Blocks {
		for _, s := range other.Successors() {
			if s == b.Label {
				r.Predecessors = append(r.Predecessors, other.Label)
				break
			}
		}
	}
	return r, nil
}
