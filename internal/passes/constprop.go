package passes

import (
	"context"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// constProp folds binary instructions over immediates and propagates the
// resulting constants into their uses until nothing changes. A folded
// instruction becomes a copy of its value; dce or die removes it once it is
// unused.
type constProp struct{ base }

func newConstProp() *constProp {
	return &constProp{base{name: ConstProp, gran: pass.Function}}
}

func (p *constProp) Run(_ context.Context, _ pass.Analyses, u pass.Unit) (bool, error) {
	consts := make(map[string]int64)
	changed := false

	for {
		progress := false
		for _, b := range u.Function.Blocks {
			for _, in := range b.Instrs {
				if substituteConstants(in, consts) {
					progress, changed = true, true
				}
				if in.Def == "" {
					continue
				}
				if _, known := consts[in.Def]; known {
					continue
				}
				v, ok := constantValue(in)
				if !ok {
					continue
				}
				consts[in.Def] = v
				progress = true
				if in.Op != ir.OpCopy {
					in.Op = ir.OpCopy
					in.Args = []string{ir.Imm(v)}
					changed = true
				}
			}
		}
		if !progress {
			return changed, nil
		}
	}
}

// substituteConstants replaces value operands of in that name known
// constants. Call targets and labels are never operands of that kind.
func substituteConstants(in *ir.Instr, consts map[string]int64) bool {
	replaced := false
	for j, arg := range in.Args {
		name, ok := valueOperand(arg)
		if !ok {
			continue
		}
		if v, known := consts[name]; known {
			in.Args[j] = ir.Imm(v)
			replaced = true
		}
	}
	return replaced
}

// constantValue returns the value in computes if it is a constant.
func constantValue(in *ir.Instr) (int64, bool) {
	imm := func(arg string) (int64, bool) {
		op, err := ir.ParseOperand(arg)
		if err != nil || op.Kind != ir.OperandImm {
			return 0, false
		}
		return op.Imm, true
	}

	switch {
	case in.Op == ir.OpCopy && len(in.Args) == 1:
		return imm(in.Args[0])
	case in.Op.Info().Binary && len(in.Args) == 2:
		a, ok := imm(in.Args[0])
		if !ok {
			return 0, false
		}
		b, ok := imm(in.Args[1])
		if !ok {
			return 0, false
		}
		return ir.Fold(in.Op, a, b)
	}
	return 0, false
}
