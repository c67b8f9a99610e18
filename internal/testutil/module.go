package testutil

import "github.com/roach88/modkit/internal/ir"

// DemoSource is the text form of DemoModule.
const DemoSource = `module: "demo"
functions: [{
	name:     "puts"
	external: true
	params: ["s"]
}, {
	name:     "main"
	exported: true
	params: ["a"]
	blocks: [{
		label: "entry"
		instrs: [
			{def: "x", op: "add", args: ["%a", "1"]},
			{def: "c", op: "lt", args: ["%x", "10"]},
			{op: "condbr", args: ["%c", "^small", "^big"]},
		]
	}, {
		label: "small"
		instrs: [
			{op: "call", args: ["@puts", "%x"]},
			{op: "ret", args: ["%x"]},
		]
	}, {
		label: "big"
		instrs: [{op: "ret", args: ["0"]}]
	}]
}]
`

// DemoModule returns a small well-formed module: an external declaration
// and a three-block exported function calling it.
func DemoModule() *ir.Module {
	return &ir.Module{
		Name: "demo",
		Functions: []*ir.Function{
			{Name: "puts", External: true, Params: []string{"s"}},
			{
				Name:     "main",
				Exported: true,
				Params:   []string{"a"},
				Blocks: []*ir.Block{
					{Label: "entry", Instrs: []*ir.Instr{
						{Def: "x", Op: ir.OpAdd, Args: []string{"%a", "1"}},
						{Def: "c", Op: ir.OpLt, Args: []string{"%x", "10"}},
						{Op: ir.OpCondBr, Args: []string{"%c", "^small", "^big"}},
					}},
					{Label: "small", Instrs: []*ir.Instr{
						{Op: ir.OpCall, Args: []string{"@puts", "%x"}},
						{Op: ir.OpRet, Args: []string{"%x"}},
					}},
					{Label: "big", Instrs: []*ir.Instr{
						{Op: ir.OpRet, Args: []string{"0"}},
					}},
				},
			},
		},
	}
}

// FoldableModule returns a module with constant arithmetic that constprop
// folds and dce then removes.
func FoldableModule() *ir.Module {
	return &ir.Module{
		Name: "fold",
		Functions: []*ir.Function{{
			Name:     "main",
			Exported: true,
			Blocks: []*ir.Block{{Label: "entry", Instrs: []*ir.Instr{
				{Def: "a", Op: ir.OpAdd, Args: []string{"2", "3"}},
				{Def: "b", Op: ir.OpMul, Args: []string{"%a", "4"}},
				{Op: ir.OpRet, Args: []string{"%b"}},
			}}},
		}},
	}
}
