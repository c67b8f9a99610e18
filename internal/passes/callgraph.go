package passes

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// CallGraphResult is the static call graph of a module.
type CallGraphResult struct {
	// Functions lists every function in module order.
	Functions []string

	// Callees maps a function to the functions it calls, deduplicated, in
	// first-call order.
	Callees map[string][]string

	// External marks declarations.
	External map[string]bool

	// Recursive lists the strongly connected components that form a cycle:
	// components of two or more functions, and self-calling functions.
	// Members of each component are sorted by name.
	Recursive [][]string
}

func (r *CallGraphResult) Print(w io.Writer) error {
	for _, fn := range r.Functions {
		line := fmt.Sprintf("  %s -> %s", fn, labelList(r.Callees[fn]))
		if r.External[fn] {
			line = fmt.Sprintf("  %s (external)", fn)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, scc := range r.Recursive {
		if _, err := fmt.Fprintf(w, "  recursive: %s\n", strings.Join(scc, ", ")); err != nil {
			return err
		}
	}
	return nil
}

type callGraph struct{ base }

func newCallGraph() *callGraph {
	return &callGraph{base{name: CallGraph, gran: pass.Module, usage: analysisUsage}}
}

func (p *callGraph) Analyze(_ context.Context, _ pass.Analyses, u pass.Unit) (pass.Result, error) {
	return buildCallGraph(u.Module), nil
}

func buildCallGraph(m *ir.Module) *CallGraphResult {
	r := &CallGraphResult{
		Callees:  make(map[string][]string),
		External: make(map[string]bool),
	}
	for _, fn := range m.Functions {
		r.Functions = append(r.Functions, fn.Name)
		r.External[fn.Name] = fn.External
		r.Callees[fn.Name] = callees(m, fn)
	}

	for _, scc := range tarjanSCC(r.Functions, r.Callees) {
		if len(scc) > 1 || hasSelfLoop(scc[0], r.Callees) {
			sort.Strings(scc)
			r.Recursive = append(r.Recursive, scc)
		}
	}
	return r
}

// callees returns the functions fn calls directly. Calls to names that are
// not functions of m are ignored.
func callees(m *ir.Module, fn *ir.Function) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			if in.Op != ir.OpCall || len(in.Args) == 0 {
				continue
			}
			name, ok := symbolOperand(in.Args[0])
			if !ok || seen[name] || m.Function(name) == nil {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func hasSelfLoop(node string, graph map[string][]string) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order, so the result is deterministic.
func tarjanSCC(nodes []string, graph map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of a component: pop it.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}
