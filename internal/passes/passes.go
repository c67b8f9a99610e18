// Package passes is the library of selectable passes: a handful of small
// transforms and the analyses they and the printers depend on.
package passes

import (
	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
	"github.com/roach88/modkit/internal/target"
)

// Pass names.
const (
	ConstProp  = "constprop"
	DIE        = "die"
	DCE        = "dce"
	GlobalDCE  = "globaldce"
	Strip      = "strip"
	InstCount  = "instcount"
	CallGraph  = "callgraph"
	DefUse     = "defuse"
	BlockInfo  = "blockinfo"
	TargetData = "targetdata"
)

// Descriptors returns the descriptor of every pass in listing order.
func Descriptors() []*pass.Descriptor {
	return []*pass.Descriptor{
		{Name: ConstProp, Description: "Simple constant propagation", Granularity: pass.Function,
			New: func() pass.Pass { return newConstProp() }},
		{Name: DIE, Description: "Dead Instruction Elimination", Granularity: pass.Block,
			New: func() pass.Pass { return newDIE() }},
		{Name: DCE, Description: "Dead Code Elimination", Granularity: pass.Function,
			New: func() pass.Pass { return newDCE() }},
		{Name: GlobalDCE, Description: "Dead Global Elimination", Granularity: pass.Module,
			New: func() pass.Pass { return newGlobalDCE() }},
		{Name: Strip, Description: "Strip local symbol names", Granularity: pass.Module,
			New: func() pass.Pass { return newStrip() }},

		{Name: InstCount, Description: "Counts the various types of Instructions", Granularity: pass.Module, Analysis: true,
			New: func() pass.Pass { return newInstCount() }},
		{Name: CallGraph, Description: "Call Graph Construction", Granularity: pass.Module, Analysis: true,
			New: func() pass.Pass { return newCallGraph() }},
		{Name: DefUse, Description: "Def-Use Chains", Granularity: pass.Function, Analysis: true,
			New: func() pass.Pass { return newDefUse() }},
		{Name: BlockInfo, Description: "Basic Block Information", Granularity: pass.Block, Analysis: true,
			New: func() pass.Pass { return newBlockInfo() }},
		{Name: TargetData, Description: "Target Data Layout", Granularity: pass.Module, Analysis: true,
			NewWithTarget: func(m *target.Machine) pass.Pass { return newTargetData(m) }},
	}
}

// Register adds every pass to r.
func Register(r *pass.Registry) {
	r.MustRegister(Descriptors()...)
}

// Default returns a registry holding every pass.
func Default() *pass.Registry {
	r := pass.NewRegistry()
	Register(r)
	return r
}

// base carries the identity every pass reports.
type base struct {
	name  string
	gran  pass.Granularity
	usage pass.Usage
}

func (b base) Name() string                  { return b.name }
func (b base) Granularity() pass.Granularity { return b.gran }
func (b base) Usage() pass.Usage             { return b.usage }

// analysisUsage is the usage of every analysis: analyses never invalidate
// anything.
var analysisUsage = pass.Usage{PreservesAll: true}

// valueOperand returns the local value named by arg, if arg is one.
func valueOperand(arg string) (string, bool) {
	op, err := ir.ParseOperand(arg)
	if err != nil || op.Kind != ir.OperandValue {
		return "", false
	}
	return op.Name, true
}

// symbolOperand returns the global or function named by arg, if arg is one.
func symbolOperand(arg string) (string, bool) {
	op, err := ir.ParseOperand(arg)
	if err != nil || op.Kind != ir.OperandSymbol {
		return "", false
	}
	return op.Name, true
}

// labelOperand returns the block label named by arg, if arg is one.
func labelOperand(arg string) (string, bool) {
	op, err := ir.ParseOperand(arg)
	if err != nil || op.Kind != ir.OperandLabel {
		return "", false
	}
	return op.Name, true
}

// removable reports whether in may be deleted when its result is unused.
func removable(in *ir.Instr) bool {
	return in.Def != "" && !in.Op.Info().SideEffects
}
