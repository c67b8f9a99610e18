package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/roach88/modkit/internal/asm"
	"github.com/roach88/modkit/internal/diag"
	"github.com/roach88/modkit/internal/output"
	"github.com/roach88/modkit/internal/verify"
)

// AssembleName is the assembler's tool name and diagnostic prefix.
const AssembleName = "modas"

// AssembleOptions holds flags for the assembler.
type AssembleOptions struct {
	*RootOptions
	Output             string
	Force              bool
	Dump               bool
	DisableCompression bool
	DisableVerify      bool
}

// NewAssembleCommand creates the modas command: text module in, verified
// binary module out.
func NewAssembleCommand(rootOpts *RootOptions) *cobra.Command {
	if rootOpts == nil {
		rootOpts = &RootOptions{}
	}
	opts := &AssembleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   AssembleName + " [input.ll]",
		Short: "Assemble a text module into a binary module",
		Long: `Parse a text module, verify it and write it in binary form.

Input defaults to standard input. Without -o the output path is the input
path with ".ll" replaced by ".bc", or standard output when reading standard
input. Existing files are never overwritten without -f, and binary output is
never written to a terminal without -f.

Example:
  modas demo.ll
  modas -o - demo.ll > demo.bc
  modas -d --disable-compression < demo.ll > demo.bc`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return guard(AssembleName, opts.RootOptions, cmd, func() error {
				return runAssemble(opts, inputArg(args), cmd)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default derived from input)")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite output files and write binary to terminals")
	cmd.Flags().BoolVarP(&opts.Dump, "dump", "d", false, "print the parsed module to standard error")
	cmd.Flags().BoolVar(&opts.DisableCompression, "disable-compression", false, "do not compress the binary module")
	cmd.Flags().BoolVar(&opts.DisableVerify, "disable-verify", false, "do not verify the parsed module")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

func runAssemble(opts *AssembleOptions, input string, cmd *cobra.Command) error {
	stderr := cmd.ErrOrStderr()
	logger := newLogger(opts.Verbose, stderr)
	rep := diag.NewReporter(AssembleName, stderr)

	defer opts.Cleanup.Watch()()

	data, name, err := readInput(cmd, input)
	if err != nil {
		return fail(rep, err)
	}
	logger.Debug("read input", "input", input, "bytes", len(data))

	m, err := asm.Parse(name, data)
	if err != nil {
		return fail(rep, err)
	}

	if !opts.DisableVerify {
		if err := verify.Check(m); err != nil {
			rep.Printf("assembly parsed, but does not verify as correct!")
			var list verify.List
			if errors.As(err, &list) {
				rep.Detail(list.Error())
			}
			return WrapExitError(ExitFailure, "", err)
		}
	}

	if opts.Dump {
		rep.Detail("Here's the assembly:")
		if err := asm.Format(stderr, m); err != nil {
			return fail(rep, diag.Wrap(diag.IOFailure, err, "error printing module"))
		}
	}

	path := opts.Output
	if path == "" {
		path = output.DefaultPath(input)
	}
	plan, err := opts.gate(cmd).Resolve(output.Target{
		Path:     path,
		Force:    opts.Force,
		Compress: !opts.DisableCompression,
	})
	if err != nil {
		return fail(rep, err)
	}

	if err := plan.Emit(m); err != nil {
		return fail(rep, err)
	}
	logger.Debug("module written", "module", m.Name, "output", plan.Path())
	return nil
}
