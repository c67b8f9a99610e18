package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/modkit/internal/bytecode"
	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/ir"
	"github.com/roach88/modkit/internal/journal"
	"github.com/roach88/modkit/internal/output"
	"github.com/roach88/modkit/internal/pass"
	"github.com/roach88/modkit/internal/passes"
	"github.com/roach88/modkit/internal/pipeline"
	"github.com/roach88/modkit/internal/target"
)

// OptimizeName is the optimizer's tool name and diagnostic prefix.
const OptimizeName = "modopt"

// OptimizeOptions holds flags for the optimizer.
type OptimizeOptions struct {
	*RootOptions
	Output             string
	Force              bool
	PrintAfterEach     bool
	DisableOutput      bool
	DisableVerify      bool
	DisableCompression bool
	Quiet              bool
	Analyze            bool
	Passes             []string
	Pipeline           string
	Target             string
	Journal            string
	ListPasses         bool

	// Registry overrides the pass registry (for testing). If nil,
	// passes.Default() is used.
	Registry *pass.Registry

	// JournalOptions are passed to journal.Open (for testing).
	JournalOptions []journal.Option
}

// NewOptimizeCommand creates the modopt command: binary module in, selected
// passes run in order, verified binary module out.
func NewOptimizeCommand(rootOpts *RootOptions) *cobra.Command {
	if rootOpts == nil {
		rootOpts = &RootOptions{}
	}
	return newOptimizeCommand(&OptimizeOptions{RootOptions: rootOpts})
}

func newOptimizeCommand(opts *OptimizeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   OptimizeName + " [input.bc]",
		Short: "Run passes over a binary module",
		Long: `Load a binary module, run the selected passes in the order given,
verify the result and write it in binary form.

Input defaults to standard input and output to standard output. With
--analyze only analyses run and their results are printed; no module is
written. Binary output to a terminal is skipped with a warning unless -f
is given.

Example:
  modopt -P constprop -P dce -o out.bc in.bc
  modopt --analyze -P instcount -P callgraph in.bc
  modopt --pipeline opt.yaml --journal runs.db in.bc > out.bc
  modopt --list-passes`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return guard(OptimizeName, opts.RootOptions, cmd, func() error {
				return runOptimize(opts, inputArg(args), cmd)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", output.Stdout, "output file")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite output files and write binary to terminals")
	cmd.Flags().BoolVarP(&opts.PrintAfterEach, "print-each", "p", false, "print the module to standard error after each pass")
	cmd.Flags().BoolVar(&opts.DisableOutput, "disable-output", false, "do not write the binary module")
	cmd.Flags().BoolVar(&opts.DisableVerify, "disable-verify", false, "do not verify the module after the passes")
	cmd.Flags().BoolVar(&opts.DisableCompression, "disable-compression", false, "do not compress the binary module")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress analysis output and warnings")
	cmd.Flags().BoolVar(&opts.Analyze, "analyze", false, "only run analyses and print their results")
	cmd.Flags().StringArrayVarP(&opts.Passes, "pass", "P", nil, "pass to run (repeatable, runs in the order given)")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "YAML pipeline file; -P passes run after its passes")
	cmd.Flags().StringVar(&opts.Target, "target", "", "TOML target machine description (default host)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")
	cmd.Flags().BoolVar(&opts.ListPasses, "list-passes", false, "list available passes and exit")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func (o *OptimizeOptions) registry() *pass.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return passes.Default()
}

// spec merges the pipeline file, if any, with the command-line selections.
func (o *OptimizeOptions) spec() (*pipeline.Spec, error) {
	spec := &pipeline.Spec{Verify: true}
	if o.Pipeline != "" {
		loaded, err := pipeline.LoadSpec(o.Pipeline)
		if err != nil {
			return nil, diag.Wrap(diag.IOFailure, err, "error loading pipeline '%s'", o.Pipeline)
		}
		spec = loaded
	}
	spec.Passes = append(spec.Passes, o.Passes...)
	spec.Analyze = spec.Analyze || o.Analyze
	spec.PrintAfterEach = spec.PrintAfterEach || o.PrintAfterEach
	if o.DisableVerify {
		spec.Verify = false
	}
	return spec, nil
}

func runOptimize(opts *OptimizeOptions, input string, cmd *cobra.Command) error {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	logger := newLogger(opts.Verbose, stderr)
	rep := diag.NewReporter(OptimizeName, stderr)
	reg := opts.registry()

	if opts.ListPasses {
		listPasses(stdout, reg)
		return nil
	}

	spec, err := opts.spec()
	if err != nil {
		return fail(rep, err)
	}
	if err := spec.CheckNames(reg); err != nil {
		reportLines(rep, err)
		return WrapExitError(ExitFailure, "", err)
	}

	defer opts.Cleanup.Watch()()

	data, name, err := readInput(cmd, input)
	if err != nil {
		return fail(rep, err)
	}
	if name == "" {
		name = output.Stdout
	}
	m, err := bytecode.Read(bytes.NewReader(data))
	if err != nil {
		return fail(rep, diag.Wrap(diag.ParseFailure, err, "%s: bytecode didn't read correctly", name))
	}

	rec := &journal.Run{
		Tool:          OptimizeName,
		Pipeline:      spec.Name,
		Input:         name,
		Passes:        spec.Passes,
		Status:        journal.StatusNoOutput,
		ToolVersion:   ir.ToolVersion,
		FormatVersion: ir.FormatVersion,
	}
	rec.InputHash = moduleHash(m, logger, "input")

	runErr := optimize(cmd.Context(), opts, spec, m, rec, cmd, rep, logger)
	if runErr != nil {
		rec.Status = journal.StatusFailed
		rec.Error = runErr.Error()
	}
	if opts.Journal != "" {
		recordRun(cmd.Context(), opts, rec, logger)
	}
	if runErr != nil {
		return fail(rep, runErr)
	}
	return nil
}

// optimize resolves the output, builds and runs the pipeline and writes the
// module. rec collects what happened for the journal.
func optimize(ctx context.Context, opts *OptimizeOptions, spec *pipeline.Spec, m *ir.Module,
	rec *journal.Run, cmd *cobra.Command, rep *diag.Reporter, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var plan *output.Plan
	if !opts.DisableOutput && !spec.Analyze {
		p, err := opts.gate(cmd).Resolve(output.Target{
			Path:     opts.Output,
			Force:    opts.Force,
			Compress: !opts.DisableCompression,
			Quiet:    opts.Quiet,
		})
		switch {
		case diag.Is(err, diag.UnsafeDestination):
			skipOutput(opts, rep, logger, err)
		case err != nil:
			return err
		default:
			plan = p
		}
	}

	tgt := target.FromFile(opts.Target)
	reg := opts.registry()
	b := &pipeline.Builder{
		Registry: reg,
		Target:   tgt,
		Logger:   logger,
		Report:   rep,
		Out:      cmd.OutOrStdout(),
		Diag:     cmd.ErrOrStderr(),
		Quiet:    opts.Quiet,
	}
	p, errs := b.Build(spec)
	b.Finish(p, spec.Verify)
	logger.Debug("pipeline built", "stages", p.Names(), "skipped", len(errs))

	runner := &pipeline.Runner{
		Manager: pipeline.NewManager(reg, tgt, logger),
		Logger:  logger,
	}
	res, err := runner.Run(ctx, p, m)
	if res != nil {
		for _, s := range res.Stages {
			rec.Stages = append(rec.Stages, journal.Stage{
				Name:        s.Name,
				Granularity: s.Granularity.String(),
				Units:       s.Units,
				Changed:     s.Changed,
			})
		}
	}
	if err != nil {
		return err
	}

	if plan == nil {
		return nil
	}
	if err := plan.Emit(m); err != nil {
		if diag.Is(err, diag.UnsafeDestination) {
			skipOutput(opts, rep, logger, err)
			return nil
		}
		return err
	}
	rec.Output = plan.Path()
	rec.OutputHash = moduleHash(m, logger, "output")
	rec.Status = journal.StatusOK
	return nil
}

// skipOutput handles a refused terminal destination: the module is not
// written and the run still succeeds.
func skipOutput(opts *OptimizeOptions, rep *diag.Reporter, logger *slog.Logger, err error) {
	if !opts.Quiet {
		rep.Error(err)
	}
	logger.Debug("binary output to terminal skipped")
}

// moduleHash hashes m for the journal. A failure is logged and leaves the
// hash empty.
func moduleHash(m *ir.Module, logger *slog.Logger, which string) string {
	h, err := ir.ModuleHash(m)
	if err != nil {
		logger.Warn("failed to hash module", "module", which, "error", err)
		return ""
	}
	return h
}

// recordRun writes rec to the journal. Journal failures are logged and do
// not change the outcome of the run.
func recordRun(ctx context.Context, opts *OptimizeOptions, rec *journal.Run, logger *slog.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	j, err := journal.Open(opts.Journal, append([]journal.Option{journal.WithLogger(logger)}, opts.JournalOptions...)...)
	if err != nil {
		logger.Warn("journal unavailable", "path", opts.Journal, "error", err)
		return
	}
	defer j.Close()
	if err := j.Record(ctx, rec); err != nil {
		logger.Warn("failed to record run", "path", opts.Journal, "error", err)
	}
}

func listPasses(w io.Writer, reg *pass.Registry) {
	all := reg.All()
	width := 0
	for _, d := range all {
		width = max(width, len(d.Name))
	}
	fmt.Fprintln(w, "Optimizations available:")
	for _, d := range all {
		kind := "transform"
		if d.Analysis {
			kind = "analysis"
		}
		fmt.Fprintf(w, "  %-*s  %-9s %-8s %s\n", width, d.Name, kind, d.Granularity, d.Description)
	}
}
