package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/pass"
)

// StageRecord describes one executed stage.
type StageRecord struct {
	Name        string
	Granularity pass.Granularity
	Units       int
	Changed     bool
}

// RunResult summarizes a pipeline run.
type RunResult struct {
	Stages []StageRecord
}

// Changed reports whether any stage changed the module.
func (r *RunResult) Changed() bool {
	for _, s := range r.Stages {
		if s.Changed {
			return true
		}
	}
	return false
}

// Runner executes pipelines.
type Runner struct {
	Manager *Manager
	Logger  *slog.Logger
}

// Run executes every stage of p exactly once, in order, over m. Module
// stages run once, function stages once per defined function and block
// stages once per block. The first stage error stops the run. A panic in a
// stage is recovered and returned as an UnknownFailure.
//
// The returned result lists the stages that completed, including on error.
func (r *Runner) Run(ctx context.Context, p *Pipeline, m *ir.Module) (res *RunResult, err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mgr := r.Manager
	if mgr == nil {
		mgr = NewManager(nil, nil, logger)
	}

	res = &RunResult{}
	current := ""
	defer func() {
		if v := recover(); v != nil {
			logger.Error("stage panicked", "stage", current, "panic", fmt.Sprint(v))
			err = diag.New(diag.UnknownFailure, "Unexpected unknown exception occurred.")
		}
	}()

	stages := p.Stages()
	for _, s := range stages {
		if a, ok := s.(pass.Analysis); ok {
			mgr.Provide(a)
		}
	}

	for _, s := range stages {
		current = s.Name()
		logger.Debug("running stage", "name", s.Name(), "granularity", s.Granularity())

		rec, err := runStage(ctx, mgr, s, m)
		if err != nil {
			return res, fmt.Errorf("%s: %w", s.Name(), err)
		}
		res.Stages = append(res.Stages, rec)
	}
	return res, nil
}

func runStage(ctx context.Context, mgr *Manager, s pass.Pass, m *ir.Module) (StageRecord, error) {
	rec := StageRecord{Name: s.Name(), Granularity: s.Granularity()}

	for _, u := range units(m, s.Granularity()) {
		changed, err := invoke(ctx, mgr, s, u)
		if err != nil {
			return rec, err
		}
		rec.Units++
		if changed {
			rec.Changed = true
			if !s.Usage().PreservesAll {
				mgr.Invalidate()
			}
		}
	}
	return rec, nil
}

func invoke(ctx context.Context, mgr *Manager, s pass.Pass, u pass.Unit) (bool, error) {
	switch p := s.(type) {
	case pass.Transform:
		return p.Run(ctx, mgr, u)
	case pass.Analysis:
		_, err := mgr.Get(ctx, p.Name(), u)
		return false, err
	}
	return false, fmt.Errorf("stage %s is neither a transform nor an analysis", s.Name())
}

// units lists the units a stage of granularity g runs over. The lists are
// snapshots so stages may add or remove functions and blocks.
func units(m *ir.Module, g pass.Granularity) []pass.Unit {
	if g == pass.Module {
		return []pass.Unit{{Module: m}}
	}

	var out []pass.Unit
	for _, fn := range m.Functions {
		if fn.External {
			continue
		}
		if g == pass.Function {
			out = append(out, pass.Unit{Module: m, Function: fn})
			continue
		}
		for _, b := range fn.Blocks {
			out = append(out, pass.Unit{Module: m, Function: fn, Block: b})
		}
	}
	return out
}
