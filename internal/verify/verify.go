// Package verify is the structural well-formedness check for modules. It
// reports every problem it finds rather than stopping at the first.
package verify

import (
	"fmt"
	"strings"

	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/ir"
)

// Verification error codes (E200-E299)
const (
	ErrModuleName      = "E201" // module name is empty
	ErrDuplicateSymbol = "E202" // function or global defined twice
	ErrFunctionBody    = "E203" // external with blocks, or definition without blocks
	ErrDuplicateLabel  = "E204" // block label used twice in a function
	ErrTerminator      = "E205" // block empty, unterminated, or terminator not last
	ErrUndefinedValue  = "E206" // %value not defined in the function
	ErrRedefinedValue  = "E207" // %value defined twice
	ErrUndefinedLabel  = "E208" // ^label not a block of the function
	ErrUndefinedCallee = "E209" // call target is not a function
	ErrOperandCount    = "E210" // operand count outside the opcode's arity
	ErrDefinition      = "E211" // def missing or unexpected
	ErrUndefinedSymbol = "E212" // @symbol not a global or function
	ErrUnknownOpcode   = "E213" // opcode not in the instruction set
	ErrOperandKind     = "E214" // operand has the wrong kind for its position
)

// Error is a single verification problem.
type Error struct {
	Code     string `json:"code"`
	Location string `json:"location"` // "fn:block#index", "fn", or "@global"
	Message  string `json:"message"`
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Location, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Module checks m and returns every problem found, in module order.
func Module(m *ir.Module) []Error {
	v := &verifier{m: m}
	v.run()
	return v.errs
}

// Check runs Module and folds the result into a single VerifyFailure error,
// or returns nil when the module is well formed.
func Check(m *ir.Module) error {
	errs := Module(m)
	if len(errs) == 0 {
		return nil
	}
	return &diag.Error{
		Kind:    diag.VerifyFailure,
		Message: fmt.Sprintf("module %q does not verify (%d error(s))", m.Name, len(errs)),
		Err:     List(errs),
	}
}

// List is a list of verification errors usable as an error.
type List []Error

func (l List) Error() string {
	lines := make([]string, len(l))
	for i, e := range l {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n")
}

type verifier struct {
	m       *ir.Module
	symbols map[string]bool
	errs    []Error
}

func (v *verifier) add(code, loc, format string, args ...any) {
	v.errs = append(v.errs, Error{Code: code, Location: loc, Message: fmt.Sprintf(format, args...)})
}

func (v *verifier) run() {
	if strings.TrimSpace(v.m.Name) == "" {
		v.add(ErrModuleName, "", "module name is required")
	}

	v.symbols = make(map[string]bool)
	for _, g := range v.m.Globals {
		if v.symbols[g.Name] {
			v.add(ErrDuplicateSymbol, "@"+g.Name, "duplicate symbol %q", g.Name)
		}
		v.symbols[g.Name] = true
	}
	for _, fn := range v.m.Functions {
		if v.symbols[fn.Name] {
			v.add(ErrDuplicateSymbol, fn.Name, "duplicate symbol %q", fn.Name)
		}
		v.symbols[fn.Name] = true
	}

	for _, fn := range v.m.Functions {
		v.function(fn)
	}
}

func (v *verifier) function(fn *ir.Function) {
	if fn.External {
		if len(fn.Blocks) > 0 {
			v.add(ErrFunctionBody, fn.Name, "external function must not have blocks")
		}
		return
	}
	if len(fn.Blocks) == 0 {
		v.add(ErrFunctionBody, fn.Name, "function definition has no blocks")
		return
	}

	labels := make(map[string]bool)
	for _, b := range fn.Blocks {
		if labels[b.Label] {
			v.add(ErrDuplicateLabel, fn.Name, "duplicate block label %q", b.Label)
		}
		labels[b.Label] = true
	}

	defs := make(map[string]bool)
	for _, p := range fn.Params {
		if defs[p] {
			v.add(ErrRedefinedValue, fn.Name, "parameter %%%s defined twice", p)
		}
		defs[p] = true
	}
	for _, b := range fn.Blocks {
		for i, in := range b.Instrs {
			if in.Def == "" {
				continue
			}
			if defs[in.Def] {
				v.add(ErrRedefinedValue, loc(fn, b, i), "value %%%s defined twice", in.Def)
			}
			defs[in.Def] = true
		}
	}

	for _, b := range fn.Blocks {
		v.block(fn, b, labels, defs)
	}
}

func (v *verifier) block(fn *ir.Function, b *ir.Block, labels, defs map[string]bool) {
	if len(b.Instrs) == 0 {
		v.add(ErrTerminator, fn.Name+":"+b.Label, "block is empty")
		return
	}

	for i, in := range b.Instrs {
		at := loc(fn, b, i)
		if !in.Op.Valid() {
			v.add(ErrUnknownOpcode, at, "unknown opcode %q", in.Op)
			continue
		}
		info := in.Op.Info()
		last := i == len(b.Instrs)-1

		switch {
		case info.Terminator && !last:
			v.add(ErrTerminator, at, "terminator %s is not the last instruction", in.Op)
		case !info.Terminator && last:
			v.add(ErrTerminator, at, "block does not end in a terminator")
		}

		n := len(in.Args)
		if n < info.MinArgs || (info.MaxArgs >= 0 && n > info.MaxArgs) {
			v.add(ErrOperandCount, at, "%s takes %s operand(s), got %d", in.Op, arity(info), n)
		} else if in.Op == ir.OpPhi && n%2 != 0 {
			v.add(ErrOperandCount, at, "phi takes label/value pairs, got %d operand(s)", n)
		}

		switch info.Def {
		case ir.DefAlways:
			if in.Def == "" {
				v.add(ErrDefinition, at, "%s must define a value", in.Op)
			}
		case ir.DefNever:
			if in.Def != "" {
				v.add(ErrDefinition, at, "%s cannot define a value", in.Op)
			}
		}

		v.operands(fn, in, at, labels, defs)
	}
}

func (v *verifier) operands(fn *ir.Function, in *ir.Instr, at string, labels, defs map[string]bool) {
	for j, arg := range in.Args {
		op, err := ir.ParseOperand(arg)
		if err != nil {
			v.add(ErrOperandKind, at, "operand %d: %v", j, err)
			continue
		}

		want, constrained := expectedKind(in.Op, j)
		if constrained && op.Kind != want {
			v.add(ErrOperandKind, at, "operand %d of %s must be a %s, got %s", j, in.Op, want, arg)
			continue
		}
		if !constrained && op.Kind == ir.OperandLabel {
			v.add(ErrOperandKind, at, "operand %d of %s cannot be a label", j, in.Op)
			continue
		}

		switch op.Kind {
		case ir.OperandValue:
			if !defs[op.Name] {
				v.add(ErrUndefinedValue, at, "use of undefined value %s", arg)
			}
		case ir.OperandLabel:
			if !labels[op.Name] {
				v.add(ErrUndefinedLabel, at, "branch to undefined block %s", arg)
			}
		case ir.OperandSymbol:
			if in.Op == ir.OpCall && j == 0 {
				if v.m.Function(op.Name) == nil {
					v.add(ErrUndefinedCallee, at, "call to undefined function %s", arg)
				}
			} else if !v.symbols[op.Name] {
				v.add(ErrUndefinedSymbol, at, "reference to undefined symbol %s", arg)
			}
		}
	}
}

// expectedKind returns the operand kind required at position j of op, if
// the position is constrained.
func expectedKind(op ir.Opcode, j int) (ir.OperandKind, bool) {
	switch op {
	case ir.OpBr:
		return ir.OperandLabel, true
	case ir.OpCondBr:
		if j > 0 {
			return ir.OperandLabel, true
		}
	case ir.OpCall:
		if j == 0 {
			return ir.OperandSymbol, true
		}
	case ir.OpPhi:
		// phi [^pred, value]...
		if j%2 == 0 {
			return ir.OperandLabel, true
		}
	}
	return 0, false
}

func arity(info ir.OpInfo) string {
	switch {
	case info.MaxArgs < 0:
		return fmt.Sprintf("at least %d", info.MinArgs)
	case info.MinArgs == info.MaxArgs:
		return fmt.Sprintf("%d", info.MinArgs)
	}
	return fmt.Sprintf("%d-%d", info.MinArgs, info.MaxArgs)
}

func loc(fn *ir.Function, b *ir.Block, i int) string {
	return fmt.Sprintf("%s:%s#%d", fn.Name, b.Label, i)
}
