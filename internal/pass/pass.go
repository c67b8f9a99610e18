// Package pass defines the pass model: the granularity tag every pass
// declares, the transform and analysis capabilities, and the registry of
// selectable pass descriptors.
package pass

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/modkit/internal/ir"
)

// Granularity is the unit a pass runs over. Every pass declares exactly one.
type Granularity int

const (
	Module Granularity = iota
	Function
	Block
)

func (g Granularity) String() string {
	switch g {
	case Module:
		return "module"
	case Function:
		return "function"
	case Block:
		return "block"
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// Unit is the piece of the module a pass invocation runs over. Function is
// set for function and block granularity, Block only for block granularity.
type Unit struct {
	Module   *ir.Module
	Function *ir.Function
	Block    *ir.Block
}

// Narrow returns the unit seen by a pass of granularity g.
func (u Unit) Narrow(g Granularity) Unit {
	switch g {
	case Module:
		return Unit{Module: u.Module}
	case Function:
		return Unit{Module: u.Module, Function: u.Function}
	}
	return u
}

func (u Unit) String() string {
	switch {
	case u.Block != nil:
		return u.Function.Name + ":" + u.Block.Label
	case u.Function != nil:
		return u.Function.Name
	case u.Module != nil:
		return u.Module.Name
	}
	return "<none>"
}

// Usage declares a pass's analysis dependencies.
type Usage struct {
	// Requires lists analyses that must be available before the pass runs.
	Requires []string

	// PreservesAll means the pass never invalidates cached analysis results.
	PreservesAll bool
}

// Pass is a constructed pass instance.
type Pass interface {
	Name() string
	Granularity() Granularity
	Usage() Usage
}

// Analyses gives a running pass access to the results of the analyses it
// declared in Usage.Requires.
type Analyses interface {
	Get(ctx context.Context, name string, u Unit) (Result, error)
}

// Transform is a pass that may mutate the module. Run reports whether it
// changed anything.
type Transform interface {
	Pass
	Run(ctx context.Context, an Analyses, u Unit) (changed bool, err error)
}

// Analysis is a read-only pass producing a printable result per unit.
type Analysis interface {
	Pass
	Analyze(ctx context.Context, an Analyses, u Unit) (Result, error)
}

// Result is an analysis result.
type Result interface {
	Print(w io.Writer) error
}

// IsAnalysis reports whether p is an analysis.
func IsAnalysis(p Pass) bool {
	_, ok := p.(Analysis)
	return ok
}
