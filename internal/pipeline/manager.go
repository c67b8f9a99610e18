package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
	"github.com/roach88/modkit/internal/target"
)

// Manager computes analysis results on demand and caches them per analysis
// and unit. It implements pass.Analyses.
type Manager struct {
	// Registry supplies analyses required by a stage but not selected
	// themselves. Target is used when such an analysis needs one.
	Registry *pass.Registry
	Target   *target.Lazy
	Logger   *slog.Logger

	provided map[string]pass.Analysis
	cache    map[cacheKey]pass.Result
	active   map[cacheKey]bool

	computed int
}

type cacheKey struct {
	name  string
	fn    *ir.Function
	block *ir.Block
}

// NewManager creates a Manager with an empty cache.
func NewManager(r *pass.Registry, t *target.Lazy, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		Registry: r,
		Target:   t,
		Logger:   logger,
		provided: make(map[string]pass.Analysis),
		cache:    make(map[cacheKey]pass.Result),
		active:   make(map[cacheKey]bool),
	}
}

// Provide makes a the instance used for its name. Analyses selected in the
// pipeline are provided so printers see the same instance.
func (m *Manager) Provide(a pass.Analysis) {
	m.provided[a.Name()] = a
}

// Get returns the result of the named analysis for the part of u matching
// the analysis's granularity, computing it if it is not cached.
func (m *Manager) Get(ctx context.Context, name string, u pass.Unit) (pass.Result, error) {
	a, err := m.analysis(name)
	if err != nil {
		return nil, err
	}

	g := a.Granularity()
	nu := u.Narrow(g)
	switch {
	case g == pass.Function && nu.Function == nil,
		g == pass.Block && nu.Block == nil:
		return nil, fmt.Errorf("analysis %s runs per %s and cannot be used on %s", name, g, u)
	}

	key := cacheKey{name: name, fn: nu.Function, block: nu.Block}
	if res, ok := m.cache[key]; ok {
		return res, nil
	}
	if m.active[key] {
		return nil, fmt.Errorf("analysis %s depends on itself", name)
	}

	m.active[key] = true
	defer delete(m.active, key)

	m.Logger.Debug("computing analysis", "name", name, "unit", nu.String())
	res, err := a.Analyze(ctx, m, nu)
	if err != nil {
		return nil, fmt.Errorf("analysis %s on %s: %w", name, nu, err)
	}
	m.cache[key] = res
	m.computed++
	return res, nil
}

// Invalidate drops every cached result.
func (m *Manager) Invalidate() {
	if len(m.cache) > 0 {
		m.Logger.Debug("invalidating analyses", "cached", len(m.cache))
	}
	clear(m.cache)
}

// Computed returns how many results have been computed so far.
func (m *Manager) Computed() int {
	return m.computed
}

func (m *Manager) analysis(name string) (pass.Analysis, error) {
	if a, ok := m.provided[name]; ok {
		return a, nil
	}
	if m.Registry == nil {
		return nil, fmt.Errorf("unknown analysis %q", name)
	}
	d, ok := m.Registry.Lookup(name)
	if !ok || !d.Analysis {
		return nil, fmt.Errorf("unknown analysis %q", name)
	}

	var p pass.Pass
	switch {
	case d.New != nil:
		p = d.New()
	case d.NewWithTarget != nil:
		machine, err := m.Target.Get()
		if err != nil {
			return nil, fmt.Errorf("analysis %s: %w", name, err)
		}
		p = d.NewWithTarget(machine)
	}
	a, ok := p.(pass.Analysis)
	if !ok {
		return nil, fmt.Errorf("cannot create analysis %q", name)
	}
	m.provided[name] = a
	return a, nil
}
