package pipeline

import (
	"io"
	"log/slog"

	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/pass"
	"github.com/roach88/modkit/internal/target"
)

// Pipeline is an ordered list of stages.
type Pipeline struct {
	stages []pass.Pass
}

// Add appends a stage.
func (p *Pipeline) Add(s pass.Pass) {
	p.stages = append(p.stages, s)
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []pass.Pass {
	return append([]pass.Pass(nil), p.stages...)
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Builder instantiates the passes of a Spec.
type Builder struct {
	Registry *pass.Registry

	// Target supplies the machine description to target-dependent passes.
	// It is consulted only when such a pass is selected. Nil means no
	// target is available.
	Target *target.Lazy

	Logger *slog.Logger
	Report *diag.Reporter

	// Out receives analysis printer output, Diag receives module dumps.
	Out  io.Writer
	Diag io.Writer

	// Quiet suppresses printer output and the warnings below.
	Quiet bool
}

// Build creates the pipeline for spec. A pass that cannot be constructed is
// reported, left out, and returned among the errors; the rest of the
// pipeline is still built. In analysis-only mode transforms are skipped and
// every analysis is followed by its printer. With print-after-each a module
// dump follows every selection that was added: one dump per selection, after
// its printer if it has one, and none for a selection that failed to build.
func (b *Builder) Build(spec *Spec) (*Pipeline, []error) {
	p := &Pipeline{}
	var errs []error

	for _, name := range spec.Passes {
		d, ok := b.Registry.Lookup(name)
		if !ok {
			err := diag.New(diag.PassConstructionFailure, "cannot create pass: %s", name)
			b.report(err)
			errs = append(errs, err)
			continue
		}

		if spec.Analyze && !d.Analysis {
			if !b.Quiet && b.Report != nil {
				b.Report.Printf("warning: skipping transform pass '%s' in analysis-only mode", d.Name)
			}
			continue
		}

		inst, err := b.instantiate(d)
		if err != nil {
			b.report(err)
			errs = append(errs, err)
			continue
		}
		b.logger().Debug("added pass", "name", d.Name, "granularity", inst.Granularity())
		p.Add(inst)

		if a, ok := inst.(pass.Analysis); ok && spec.Analyze {
			p.Add(NewPrinter(a, d.DisplayName(), b.Out, b.Quiet))
		}
		if spec.PrintAfterEach {
			p.Add(&DumpStage{After: d.Name, W: b.Diag})
		}
	}
	return p, errs
}

// Finish appends the verifier stage when verify is set.
func (b *Builder) Finish(p *Pipeline, verify bool) {
	if verify {
		p.Add(VerifierStage{})
	}
}

// instantiate prefers the context-free constructor and falls back to the
// target-dependent one, loading the target machine on first need.
func (b *Builder) instantiate(d *pass.Descriptor) (pass.Pass, error) {
	var inst pass.Pass
	switch {
	case d.New != nil:
		inst = d.New()
	case d.NewWithTarget != nil:
		m, err := b.Target.Get()
		if err != nil {
			return nil, diag.Wrap(diag.PassConstructionFailure, err, "cannot create pass: %s", d.DisplayName())
		}
		inst = d.NewWithTarget(m)
	}
	if inst == nil {
		return nil, diag.New(diag.PassConstructionFailure, "cannot create pass: %s", d.DisplayName())
	}
	return inst, nil
}

func (b *Builder) report(err error) {
	if b.Report != nil {
		b.Report.Error(err)
	}
	b.logger().Debug("pass construction failed", "error", err)
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
